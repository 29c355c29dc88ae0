package lua

// 문서 저장소 로컬 캐시 스크립트 이름 상수.
const (
	// ScriptQueryCacheRead: 컬렉션 세대(generation)와 해당 세대의 쿼리 결과를 한 번에 읽는다.
	ScriptQueryCacheRead = "query_cache_read"
	// ScriptQueryCacheWrite: 세대가 바뀌지 않았을 때만 쿼리 결과를 기록한다.
	ScriptQueryCacheWrite = "query_cache_write"
)
