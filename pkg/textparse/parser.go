// Package textparse は、生成AIのテキスト応答から構造化JSONを取り出します。
//
// モデルは「JSONのみを返すこと」と指示しても、散文やMarkdownのコードフェンスで
// JSONを包んで返すことがあります。最初の失敗を致命的エラーにするとパイプライン全体が
// 脆くなりすぎるため、3段階のフォールバックで抽出を試みます。
package textparse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-story-kit/pkg/domain"
)

// rawExcerptLimit はエラーに添付する応答抜粋の最大バイト長です。
const rawExcerptLimit = 200

var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?\\S)\\s*```")

// Parse は raw から JSON オブジェクトを抽出して v にデコードします。
// 試行順: (1) 応答全体の直接パース、(2) コードフェンス内部、(3) 波括弧の
// バランスを取った最初のトップレベル {...} 区間。すべて失敗した場合は
// domain.MalformedOutputError を返します。
func Parse(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &domain.MalformedOutputError{Raw: "", Err: fmt.Errorf("応答が空です")}
	}

	// Tier 1: 応答全体が素のJSONであるケース
	directErr := json.Unmarshal([]byte(trimmed), v)
	if directErr == nil {
		return nil
	}

	// Tier 2: コードフェンスに包まれたJSON
	if inner, ok := ExtractFenced(trimmed); ok {
		if err := json.Unmarshal([]byte(inner), v); err == nil {
			return nil
		}
	}

	// Tier 3: 散文に埋め込まれた最初のトップレベル {...}
	if span, ok := ExtractBraced(trimmed); ok {
		if err := json.Unmarshal([]byte(span), v); err == nil {
			return nil
		}
	}

	return &domain.MalformedOutputError{
		Raw: truncate(trimmed, rawExcerptLimit),
		Err: directErr,
	}
}

// ExtractFenced はコードフェンス（```json ... ```）の内部を取り出します。
func ExtractFenced(raw string) (string, bool) {
	matches := fencedBlockRegex.FindStringSubmatch(raw)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

// ExtractBraced は波括弧の対応を数えて、最初のトップレベル {...} 区間を取り出します。
// 文字列リテラル内の波括弧とエスケープは深さに数えません。
func ExtractBraced(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}

	return "", false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
