package runner

import (
	"context"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/refine"
	"github.com/shouni/go-story-kit/pkg/renderer"
)

// RefineRunner は生成済みのパネル・章本文への的を絞った再生成を担います。
type RefineRunner struct {
	genre  string
	aspect renderer.AspectRatio
	loop   *refine.RefinementLoop
}

// NewRefineRunner は依存関係を注入して RefineRunner を初期化します。
func NewRefineRunner(genre string, aspect renderer.AspectRatio, loop *refine.RefinementLoop) *RefineRunner {
	return &RefineRunner{
		genre:  genre,
		aspect: aspect,
		loop:   loop,
	}
}

// RunPanel は既存パネルを編集指示に沿って再生成します。
func (r *RefineRunner) RunPanel(ctx context.Context, req domain.RefinementRequest, state *domain.ConsistencyState) (*domain.Panel, error) {
	width, height := r.aspect.Dimensions()
	return r.loop.RefinePanel(ctx, req, state, width, height)
}

// RunChapterText は章本文を編集指示に沿って書き直します。
func (r *RefineRunner) RunChapterText(ctx context.Context, req domain.RefinementRequest) (*domain.ChapterText, error) {
	return r.loop.RefineChapterText(ctx, req, r.genre)
}
