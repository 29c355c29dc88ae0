package assets

import _ "embed" // 에셋 임베드용

// NoticeMessagesYAML 는 운영자에게 보여 주는 안내 문구 YAML이다.
//
//go:embed messages/notices.yml
var NoticeMessagesYAML string

// NoticeRootKey: YAML 안의 문구 루트.
const NoticeRootKey = "chipledger"
