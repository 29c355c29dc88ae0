// Package model 은 chipledger 의 타입 있는 레코드와 저장소 문서 정규화를 정의한다.
// 저장소 문서는 이 패키지의 *FromDocument 함수를 통과한 뒤에만 사용된다.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/timeutil"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	timeType = reflect.TypeOf(time.Time{})
)

// Validate: 구조체 validate 태그를 검사한다.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	return nil
}

// timeHook: 저장소에 섞여 있는 타임스탬프 표현을 time.Time 으로 바꾼다.
// 값이 없으면 zero time 을 돌려주고 호출자가 문서 메타데이터로 채운다.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType || from == timeType {
		return data, nil
	}
	t, err := timeutil.Coerce(data)
	if errors.Is(err, timeutil.ErrAbsent) {
		return time.Time{}, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func decodeDocument(input map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(timeHook),
	})
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
