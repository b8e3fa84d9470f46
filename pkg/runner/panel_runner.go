package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/renderer"
	"github.com/shouni/go-story-kit/pkg/writer"

	"golang.org/x/sync/errgroup"
)

// PanelRunner は章本文をパネル台本へ分解し、各パネルの画像を並列生成します。
type PanelRunner struct {
	scripter *writer.PanelScripter
	renderer *renderer.PanelRenderer
	aspect   renderer.AspectRatio
}

// NewPanelRunner は依存関係を注入して PanelRunner を初期化します。
func NewPanelRunner(s *writer.PanelScripter, r *renderer.PanelRenderer, aspect renderer.AspectRatio) *PanelRunner {
	return &PanelRunner{
		scripter: s,
		renderer: r,
		aspect:   aspect,
	}
}

// Run は章本文を panelCount 個のビートに分解し、設定台帳を反映した
// パネル画像を並列生成します。返り値は章内の表示順に整列されます。
//
// シードの確定は renderer 側の critical section が直列化するため、
// ここでは全パネルを同時に投入して問題ありません。
func (r *PanelRunner) Run(ctx context.Context, storyID string, chapter *domain.ChapterText, panelCount int, state *domain.ConsistencyState) ([]domain.Panel, error) {
	if chapter == nil {
		return nil, fmt.Errorf("chapter は必須です")
	}

	beats, err := r.scripter.Script(ctx, chapter.Prose, panelCount)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "パネルを並列生成するのだ",
		"story_id", storyID,
		"chapter", chapter.ChapterNumber,
		"panels", len(beats))

	panels := make([]domain.Panel, len(beats))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, beat := range beats {
		i, beat := i, beat
		eg.Go(func() error {
			panel, err := r.renderer.Render(egCtx, renderer.Request{
				StoryID:       storyID,
				ChapterNumber: chapter.ChapterNumber,
				Order:         beat.Order,
				Description:   beat.Description,
				Caption:       beat.Caption,
				Aspect:        r.aspect,
			}, state)
			if err != nil {
				return fmt.Errorf("パネル %d の生成に失敗しました: %w", beat.Order, err)
			}
			panels[i] = *panel
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(panels, func(i, j int) bool { return panels[i].Order < panels[j].Order })
	return panels, nil
}
