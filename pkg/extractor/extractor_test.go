package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
)

type stubTextGenerator struct {
	response string
	lastUser string
}

func (s *stubTextGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastUser = userPrompt
	return s.response, nil
}

func newTestExtractor(t *testing.T, stub *stubTextGenerator) *ReferenceExtractor {
	t.Helper()
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("NewTextPromptBuilder: %v", err)
	}
	e, err := New(stub, pb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

const validExtraction = `{
	"characters": [
		{"name": "Aria", "description": "銀髪の少女、赤いマフラー", "personality": "無口", "role": "主人公"}
	],
	"locations": [
		{"name": "Harbor District", "description": "霧の濃い港町"}
	],
	"continuity_notes": "Ariaは左利き"
}`

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("本文から設定票が抽出されるのだ", func(t *testing.T) {
		stub := &stubTextGenerator{response: validExtraction}
		e := newTestExtractor(t, stub)

		result, err := e.Extract(ctx, "Ariaは港町を歩いていた。", nil)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(result.Characters) != 1 || result.Characters[0].Name != "Aria" {
			t.Errorf("登場人物の抽出が不正です: %+v", result.Characters)
		}
		if len(result.Locations) != 1 || result.ContinuityNotes == "" {
			t.Errorf("場所・メモの抽出が不正です: %+v", result)
		}
		if !strings.Contains(stub.lastUser, "Ariaは港町を歩いていた。") {
			t.Errorf("本文がプロンプトに渡っていません")
		}
	})

	t.Run("宣言済みの設定票がプロンプトに含まれるのだ", func(t *testing.T) {
		stub := &stubTextGenerator{response: validExtraction}
		e := newTestExtractor(t, stub)

		declared := []domain.CharacterReference{{Name: "Aria", Description: "銀髪の少女"}}
		if _, err := e.Extract(ctx, "本文", declared); err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if !strings.Contains(stub.lastUser, "銀髪の少女") {
			t.Errorf("宣言済み設定票がプロンプトに渡っていません")
		}
	})

	t.Run("空の本文は拒否されるのだ", func(t *testing.T) {
		e := newTestExtractor(t, &stubTextGenerator{response: validExtraction})
		if _, err := e.Extract(ctx, "", nil); err == nil {
			t.Error("空の本文でエラーが返るべきです")
		}
	})

	t.Run("JSONでない応答は整形不良エラーになるのだ", func(t *testing.T) {
		e := newTestExtractor(t, &stubTextGenerator{response: "抽出できませんでした"})

		_, err := e.Extract(ctx, "本文", nil)
		var mErr *domain.MalformedOutputError
		if !errors.As(err, &mErr) {
			t.Errorf("MalformedOutputError が返るべきです: %v", err)
		}
	})
}

func TestExtractAndMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("抽出結果が台帳へマージされるのだ", func(t *testing.T) {
		e := newTestExtractor(t, &stubTextGenerator{response: validExtraction})
		state := domain.NewConsistencyState()

		_, err := e.ExtractAndMerge(ctx, "本文", nil, state)
		if err != nil {
			t.Fatalf("ExtractAndMerge: %v", err)
		}
		if got, ok := state.FindCharacter("aria"); !ok || got.Name != "Aria" {
			t.Errorf("登場人物が台帳に反映されていません")
		}
		if len(state.Locations()) != 1 {
			t.Errorf("場所が台帳に反映されていません")
		}
		if !strings.Contains(state.Notes(), "左利き") {
			t.Errorf("連続性メモが台帳に反映されていません: %q", state.Notes())
		}
	})

	t.Run("宣言済みが先、抽出結果が追記側になるのだ", func(t *testing.T) {
		e := newTestExtractor(t, &stubTextGenerator{response: validExtraction})
		state := domain.NewConsistencyState()

		declared := []domain.CharacterReference{{Name: "ARIA", Description: "フード付きの外套"}}
		if _, err := e.ExtractAndMerge(ctx, "本文", declared, state); err != nil {
			t.Fatalf("ExtractAndMerge: %v", err)
		}

		got, _ := state.FindCharacter("Aria")
		// 最初に登録された表記が維持され、抽出の説明が追記される
		if got.Name != "ARIA" {
			t.Errorf("先着の表記が維持されていません: %q", got.Name)
		}
		if !strings.Contains(got.Description, "フード付きの外套") || !strings.Contains(got.Description, "赤いマフラー") {
			t.Errorf("説明の追記マージが不正です: %q", got.Description)
		}
	})
}
