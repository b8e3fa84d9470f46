package runner

import (
	"context"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/extractor"
)

// ExtractRunner は章本文から設定台帳の項目を抽出し、マージします。
type ExtractRunner struct {
	extractor *extractor.ReferenceExtractor
}

// NewExtractRunner は依存関係を注入して ExtractRunner を初期化します。
func NewExtractRunner(e *extractor.ReferenceExtractor) *ExtractRunner {
	return &ExtractRunner{extractor: e}
}

// Run は章本文から登場人物・場所・連続性メモを抽出し、state へマージして
// 抽出結果を返します。
func (r *ExtractRunner) Run(ctx context.Context, narrative string, declared []domain.CharacterReference, state *domain.ConsistencyState) (*domain.ExtractionResult, error) {
	return r.extractor.ExtractAndMerge(ctx, narrative, declared, state)
}
