package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力のプレーンテキストからHTMLを除去する。
// ウィッシュリスト名・アイテム名・住所など、表示用テキストの保存前に使用する。
type TextSanitizer interface {
	Sanitize(s string) string
}

// textSanitizer はbluemondayのStrictPolicyに基づくTextSanitizerの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はすべてのタグを除去するTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去し、前後の空白を取り除いたテキストを返す。
// StrictPolicyがエスケープした文字実体参照は元の文字に戻す。
// 出力側ではテンプレートやJSONエンコーダーが改めてエスケープする。
func (s *textSanitizer) Sanitize(in string) string {
	out := s.policy.Sanitize(in)
	return strings.TrimSpace(html.UnescapeString(out))
}
