// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は会員のメモや活動の説明などの自由記述をプレーンテキストに正規化する。
// bluemondayのStrictPolicyで全タグを除去し、前後の空白を取り除いて最大文字数で切り詰める。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxRunes は自由記述の既定の最大文字数。
const DefaultMaxRunes = 500

// TextSanitizer は自由記述のサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Sanitize はHTMLタグを除去したプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。bluemondayのポリシーはスレッドセーフ。
type textSanitizer struct {
	policy   *bluemonday.Policy
	maxRunes int
}

// NewTextSanitizer は新しいTextSanitizerを生成する。maxRunesが0以下の場合はDefaultMaxRunesを使う。
func NewTextSanitizer(maxRunes int) *textSanitizer {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return &textSanitizer{
		policy:   bluemonday.StrictPolicy(),
		maxRunes: maxRunes,
	}
}

// Sanitize はタグを除去し、トリムと切り詰めを行う。
func (s *textSanitizer) Sanitize(raw string) string {
	// StrictPolicyはテキストをエスケープして返すため、保存用に元の文字へ戻す。
	// 表示時のエスケープはテンプレート側が行う。
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) <= s.maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:s.maxRunes]))
}
