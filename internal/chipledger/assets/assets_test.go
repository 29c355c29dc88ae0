package assets

import (
	"testing"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/messages"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
)

func TestNoticeMessagesYAML_HasAllKeys(t *testing.T) {
	provider, err := messageprovider.NewFromYAMLAtPath(NoticeMessagesYAML, NoticeRootKey)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	for _, key := range messages.All {
		if !provider.Has(key) {
			t.Fatalf("expected %s to exist", key)
		}
	}
}

func TestNoticeMessagesYAML_FormatsNumbers(t *testing.T) {
	provider, err := messageprovider.NewFromYAMLAtPath(NoticeMessagesYAML, NoticeRootKey)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	got := provider.Get(messages.LedgerDeltaApplied,
		messageprovider.P("username", "alice"),
		messageprovider.P("previous", int64(1500)),
		messageprovider.P("new", int64(0)),
	)
	if got != "alice 님의 칩이 1,500 → 0 로 변경되었습니다." {
		t.Fatalf("unexpected message: %q", got)
	}
}
