package valkeyx

import (
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// LuaStrings: 스크립트가 돌려준 길이 n 배열을 문자열로 읽는다. nil 원소는 "".
func LuaStrings(resp valkey.ValkeyResult, n int) ([]string, error) {
	msgs, err := resp.ToArray()
	if err != nil {
		return nil, fmt.Errorf("lua result is not an array: %w", err)
	}
	if len(msgs) != n {
		return nil, fmt.Errorf("lua result has %d elements, want %d", len(msgs), n)
	}
	out := make([]string, n)
	for i, m := range msgs {
		if m.IsNil() {
			continue
		}
		if out[i], err = m.ToString(); err != nil {
			return nil, fmt.Errorf("lua result element %d: %w", i, err)
		}
	}
	return out, nil
}

// LuaInt64: 정수 하나를 돌려주는 스크립트 결과.
func LuaInt64(resp valkey.ValkeyResult) (int64, error) {
	n, err := resp.AsInt64()
	if err != nil {
		return 0, fmt.Errorf("lua result is not an integer: %w", err)
	}
	return n, nil
}
