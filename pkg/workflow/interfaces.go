package workflow

import (
	"context"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/publisher"
)

// Workflow は、物語生成ワークフローの各工程を担当する Runner を構築するためのインターフェースを定義します。
type Workflow interface {
	BuildPlanRunner() (PlanRunner, error)
	BuildChapterRunner() (ChapterRunner, error)
	BuildExtractRunner() (ExtractRunner, error)
	BuildPanelRunner() (PanelRunner, error)
	BuildRefineRunner() (RefineRunner, error)
	BuildPublishRunner() (PublishRunner, error)
}

// PlanRunner は、前提（自由テキストまたは Web ページの URL）から構造化された
// 物語計画を生成する責務を持ちます。
type PlanRunner interface {
	Run(ctx context.Context, source string, genre string) (*domain.StoryPlan, error)
}

// ChapterRunner は、計画中のアウトラインまたは自由入力のプロンプトから
// 章本文を生成する責務を持ちます。
type ChapterRunner interface {
	Run(ctx context.Context, outline domain.ChapterOutline) (*domain.ChapterText, error)
	RunFromPrompt(ctx context.Context, chapterNumber int, freePrompt string) (*domain.ChapterText, error)
}

// ExtractRunner は、章本文から登場人物・場所・連続性メモを抽出し、
// 設定台帳へマージする責務を持ちます。
type ExtractRunner interface {
	Run(ctx context.Context, narrative string, declared []domain.CharacterReference, state *domain.ConsistencyState) (*domain.ExtractionResult, error)
}

// PanelRunner は、章本文をパネル台本に分解し、設定台帳を反映した
// パネル画像を並列生成する責務を持ちます。
type PanelRunner interface {
	Run(ctx context.Context, storyID string, chapter *domain.ChapterText, panelCount int, state *domain.ConsistencyState) ([]domain.Panel, error)
}

// RefineRunner は、生成済みのパネルまたは章本文への的を絞った再生成を担います。
type RefineRunner interface {
	RunPanel(ctx context.Context, req domain.RefinementRequest, state *domain.ConsistencyState) (*domain.Panel, error)
	RunChapterText(ctx context.Context, req domain.RefinementRequest) (*domain.ChapterText, error)
}

// PublishRunner は、保存済みの章とパネルを統合し、Markdown / JSON / HTML として
// 出力する責務を持ちます。
type PublishRunner interface {
	Run(ctx context.Context, plan *domain.StoryPlan, storyID string, outputDir string) (publisher.PublishResult, error)
}
