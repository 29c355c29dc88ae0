// Package errors: chip-ledger 전체에서 공용으로 사용되는 에러 타입들을 정의한다.
// 저장소/캐시 인프라 에러와 입력 검증, 미존재 에러를 구분한다.
package errors

import (
	"errors"
	"fmt"
)

// RedisError: Redis(Valkey) 작업을 수행하는 도중 발생한 에러
type RedisError struct {
	Operation string
	Err       error
}

func (e RedisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("redis error operation=%s", e.Operation)
	}
	return fmt.Sprintf("redis error operation=%s: %v", e.Operation, e.Err)
}

func (e RedisError) Unwrap() error { return e.Err }

// DatabaseError: 데이터베이스(PostgreSQL/SQLite) 작업을 수행하는 도중 발생한 에러
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("db error operation=%s", e.Operation)
	}
	return fmt.Sprintf("db error operation=%s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error { return e.Err }

// StoreError: 원격 문서 저장소 I/O 실패. 작업 이름과 대상(collection/id)을 함께 남긴다.
// 검증 실패나 미존재와 달리 운영자에게 노출되어야 하는 에러다.
type StoreError struct {
	Operation string
	Target    string
	Err       error
}

func (e StoreError) Error() string {
	msg := fmt.Sprintf("store error operation=%s", e.Operation)
	if e.Target != "" {
		msg += " target=" + e.Target
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e StoreError) Unwrap() error { return e.Err }

// ValidationError: 입력 형식이 올바르지 않을 때 발생하는 에러
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed field=%s: %s", e.Field, e.Message)
}

// NotFoundError: 사용자나 스냅샷 등 대상이 존재하지 않을 때의 에러
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError: 고유 제약(예: username 중복) 위반 에러
type ConflictError struct {
	Resource string
	Key      string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

// IsValidation: 검증 실패 에러인지 확인한다.
func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// IsNotFound: 미존재 에러인지 확인한다.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// IsConflict: 중복 에러인지 확인한다.
func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// expectedCallerMistakeTypes: 호출자의 입력 실수로 간주되는 에러 타입들
var expectedCallerMistakeTypes = []func() any{
	func() any { return new(ValidationError) },
	func() any { return new(NotFoundError) },
	func() any { return new(ConflictError) },
}

// IsExpectedCallerMistake: 에러가 인프라 장애가 아닌 호출자 입력 문제인지 확인한다.
// (로그 레벨을 낮추거나 4xx 응답으로 매핑하는 용도)
func IsExpectedCallerMistake(err error) bool {
	if err == nil {
		return false
	}
	for _, targetFn := range expectedCallerMistakeTypes {
		if errors.As(err, targetFn()) {
			return true
		}
	}
	return false
}
