package runner

import (
	"context"
	"fmt"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/publisher"
	"github.com/shouni/go-story-kit/pkg/store"
)

// PublishRunner は保存済みの章とパネルを統合して成果物を書き出します。
type PublishRunner struct {
	publisher *publisher.StoryPublisher
	store     store.StoryStore
}

// NewPublishRunner は依存関係を注入して PublishRunner を初期化します。
func NewPublishRunner(pub *publisher.StoryPublisher, s store.StoryStore) *PublishRunner {
	return &PublishRunner{
		publisher: pub,
		store:     s,
	}
}

// Run はストアから物語の全章を章番号順に取得し、Markdown / JSON / HTML として書き出します。
func (r *PublishRunner) Run(ctx context.Context, plan *domain.StoryPlan, storyID string, outputDir string) (publisher.PublishResult, error) {
	chapters, err := r.store.GetChapters(ctx, storyID)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("章の取得に失敗しました (story: %s): %w", storyID, err)
	}
	if len(chapters) == 0 {
		return publisher.PublishResult{}, fmt.Errorf("パブリッシュ対象の章がありません (story: %s)", storyID)
	}

	return r.publisher.Publish(ctx, plan, chapters, publisher.Options{OutputDir: outputDir})
}
