package valkeyx

import (
	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
)

// WrapRedisError: Redis 관련 에러를 공통 타입으로 감싼다. nil 키 에러는 감싸지 않는다.
func WrapRedisError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if IsNil(err) {
		return err
	}
	return cerrors.RedisError{Operation: operation, Err: err}
}
