// Package extractor は、蓄積された物語本文から視覚的な設定台帳を抽出し、
// ConsistencyState へ決定論的にマージします。
//
// ここはパイプラインの正確性で最も重要な部分です。マージを誤ると、
// フィードバックのないまま数十パネルにわたって視覚的なドリフトが
// 静かに蓄積していきます。
package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"
	"github.com/shouni/go-story-kit/pkg/textparse"
)

// extractSystemPrompt は台帳抽出時のAIの役割定義です。
const extractSystemPrompt = "You are a continuity extraction engine. You always respond with a single valid JSON object and nothing else."

// ReferenceExtractor は本文から設定票と continuity notes を抽出します。
type ReferenceExtractor struct {
	text services.TextGenerator
	pb   *prompts.TextPromptBuilder
}

// New は依存関係を注入して ReferenceExtractor を初期化します。
func New(text services.TextGenerator, pb *prompts.TextPromptBuilder) (*ReferenceExtractor, error) {
	if text == nil {
		return nil, fmt.Errorf("text (TextGenerator) は必須です")
	}
	if pb == nil {
		return nil, fmt.Errorf("pb (TextPromptBuilder) は必須です")
	}
	return &ReferenceExtractor{text: text, pb: pb}, nil
}

// Extract は本文と（あれば）ユーザー宣言の設定票から抽出結果を返します。
// 台帳への反映は ExtractAndMerge を使用してください。
func (e *ReferenceExtractor) Extract(ctx context.Context, narrative string, declared []domain.CharacterReference) (*domain.ExtractionResult, error) {
	if narrative == "" {
		return nil, fmt.Errorf("narrative は必須です")
	}

	userPrompt, err := e.pb.BuildExtractPrompt(narrative, declared)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "設定台帳を抽出するのだ", "declared_chars", len(declared))

	raw, err := e.text.Complete(ctx, extractSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var result domain.ExtractionResult
	if err := textparse.Parse(raw, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ExtractAndMerge は抽出結果を ConsistencyState へ upsert します。
// 宣言済みの設定票を先にマージするため、抽出結果が後続の追記側になります。
// 同章のパネルをレンダリングする前に、このマージが完了している必要があります。
func (e *ReferenceExtractor) ExtractAndMerge(ctx context.Context, narrative string, declared []domain.CharacterReference, state *domain.ConsistencyState) (*domain.ExtractionResult, error) {
	result, err := e.Extract(ctx, narrative, declared)
	if err != nil {
		return nil, err
	}

	for _, ref := range declared {
		state.MergeCharacter(ref)
	}
	for _, ref := range result.Characters {
		state.MergeCharacter(ref)
	}
	for _, ref := range result.Locations {
		state.MergeLocation(ref)
	}
	state.AppendNotes(result.ContinuityNotes)

	slog.InfoContext(ctx, "設定台帳へのマージが完了したのだ",
		"characters", len(result.Characters),
		"locations", len(result.Locations))

	return result, nil
}
