// Package runner は、ワークフローの各工程を実行する Runner の標準実装を提供します。
// 各 Runner は planner / writer / extractor / renderer / refine を
// サービス・ストア・パブリッシャと結び付けます。
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/planner"

	"github.com/shouni/go-web-exact/v2/pkg/extract"
)

// StoryPlanRunner は自由テキストまたは URL を前提として受け取り、物語計画を生成します。
type StoryPlanRunner struct {
	genre     string
	planner   *planner.StoryPlanner
	extractor *extract.Extractor
}

// NewStoryPlanRunner は依存関係を注入して StoryPlanRunner を初期化します。
func NewStoryPlanRunner(genre string, p *planner.StoryPlanner, ext *extract.Extractor) *StoryPlanRunner {
	return &StoryPlanRunner{
		genre:     genre,
		planner:   p,
		extractor: ext,
	}
}

// Run は source が URL であれば Web ページの本文を抽出して前提とし、
// そうでなければそのままの前提テキストから物語計画を生成します。
func (r *StoryPlanRunner) Run(ctx context.Context, source string, genre string) (*domain.StoryPlan, error) {
	if genre == "" {
		genre = r.genre
	}

	premise := source
	if isWebSource(source) {
		slog.InfoContext(ctx, "URLから前提テキストを抽出するのだ", "url", source)
		text, _, err := r.extractor.FetchAndExtractText(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("URLからのテキスト抽出に失敗しました: %w", err)
		}
		premise = text
	}

	return r.planner.Plan(ctx, premise, genre)
}

func isWebSource(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
