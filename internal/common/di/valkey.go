// Package di 는 Wire 그래프에서 같은 기반 타입을 용도별로 구분하는 래퍼 타입을 정의한다.
package di

import "github.com/valkey-io/valkey-go"

// CacheValkeyClient 는 문서 저장소 쿼리 캐시 계층용 Valkey 클라이언트 DI wrapper 타입이다.
type CacheValkeyClient struct{ valkey.Client }
