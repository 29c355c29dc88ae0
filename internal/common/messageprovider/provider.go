// Package messageprovider 는 YAML 로 정의된 사용자 노출 문구를 키로 조회한다.
package messageprovider

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Provider: 로드 시점에 YAML 트리를 "a.b.c" 키의 평면 맵으로 펼쳐 두고,
// Get 에서 {param} 자리표시자를 치환한다. 정수 파라미터는 언어별 자릿수 구분자를 쓴다.
type Provider struct {
	tree    map[string]any
	texts   map[string]string
	printer *message.Printer
}

// Option: Provider 옵션.
type Option func(*Provider)

// WithLanguage: 숫자 서식 언어. 기본은 English (1,500).
func WithLanguage(tag language.Tag) Option {
	return func(p *Provider) { p.printer = message.NewPrinter(tag) }
}

// NewFromYAML: 문서 최상위가 매핑이어야 한다. 빈 문서는 빈 Provider.
func NewFromYAML(yamlContent string, opts ...Option) (*Provider, error) {
	var tree map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &tree); err != nil {
		return nil, fmt.Errorf("unmarshal yaml failed: %w", err)
	}
	return newProvider(tree, opts), nil
}

// NewFromYAMLAtPath: rootKey (점 경로) 아래 매핑만 사용한다.
func NewFromYAMLAtPath(yamlContent, rootKey string, opts ...Option) (*Provider, error) {
	full, err := NewFromYAML(yamlContent, opts...)
	if err != nil {
		return nil, err
	}
	rootKey = strings.TrimSpace(rootKey)
	if rootKey == "" {
		return full, nil
	}

	var node any = full.tree
	for _, part := range strings.Split(rootKey, ".") {
		m, ok := asMap(node)
		if !ok {
			return nil, fmt.Errorf("yaml root key %q: %q is not a mapping", rootKey, part)
		}
		if node, ok = m[part]; !ok {
			return nil, fmt.Errorf("yaml root key not found: %q", rootKey)
		}
	}
	sub, ok := asMap(node)
	if !ok {
		return nil, fmt.Errorf("yaml root key %q must be a mapping, got %T", rootKey, node)
	}
	return newProvider(sub, opts), nil
}

func newProvider(tree map[string]any, opts []Option) *Provider {
	p := &Provider{
		tree:    tree,
		texts:   make(map[string]string),
		printer: message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(p)
	}
	flatten(p.texts, "", tree)
	return p
}

func flatten(dst map[string]string, prefix string, node map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := asMap(v); ok {
			flatten(dst, key, child)
			continue
		}
		dst[key] = fmt.Sprint(v)
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, vv := range m {
			out[fmt.Sprint(k)] = vv
		}
		return out, true
	}
	return nil, false
}

// Has: 문구(잎 노드) 키인지.
func (p *Provider) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p.texts[key]
	return ok
}

// Get: key 의 문구. 없는 키는 key 를 그대로 돌려준다. 넘기지 않은 자리표시자는 남는다.
func (p *Provider) Get(key string, params ...Param) string {
	if p == nil {
		return key
	}
	text, ok := p.texts[key]
	if !ok {
		return key
	}
	if len(params) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(params))
	for _, param := range params {
		pairs = append(pairs, "{"+param.Key+"}", p.format(param.Value))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (p *Provider) format(v any) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return p.printer.Sprintf("%d", v)
	}
	return fmt.Sprint(v)
}

// Param: 자리표시자 이름과 값.
type Param struct {
	Key   string
	Value any
}

// P: Param 축약 생성자.
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}
