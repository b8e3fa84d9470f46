package workflow

import (
	"context"
	"fmt"
	"io"

	"github.com/shouni/go-story-kit/pkg/extractor"
	"github.com/shouni/go-story-kit/pkg/planner"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/publisher"
	"github.com/shouni/go-story-kit/pkg/refine"
	"github.com/shouni/go-story-kit/pkg/renderer"
	"github.com/shouni/go-story-kit/pkg/runner"
	"github.com/shouni/go-story-kit/pkg/writer"

	"github.com/shouni/go-text-format/pkg/builder"
	"github.com/shouni/go-text-format/pkg/md2htmlrunner"
	"github.com/shouni/go-web-exact/v2/pkg/extract"
)

// htmlConverter は md2htmlrunner.Runner を publisher.HTMLConverter に適合させます。
type htmlConverter struct {
	runner md2htmlrunner.Runner
}

func (c htmlConverter) Run(ctx context.Context, title string, markdown []byte) (io.Reader, error) {
	return c.runner.Run(ctx, title, markdown)
}

// BuildPlanRunner は、物語計画の生成を担当する Runner を作成します。
// URL が渡された場合の本文抽出のために extractor を併せて初期化します。
func (m *Manager) BuildPlanRunner() (PlanRunner, error) {
	webExtractor, err := extract.NewExtractor(m.httpClient)
	if err != nil {
		return nil, fmt.Errorf("extractor の初期化に失敗しました: %w", err)
	}

	storyPlanner, err := planner.New(m.textClient, m.textPrompt)
	if err != nil {
		return nil, err
	}

	return runner.NewStoryPlanRunner(m.cfg.Genre, storyPlanner, webExtractor), nil
}

// BuildChapterRunner は、章本文の生成を担当する Runner を作成します。
func (m *Manager) BuildChapterRunner() (ChapterRunner, error) {
	chapterWriter, err := writer.New(m.textClient, m.textPrompt)
	if err != nil {
		return nil, err
	}

	return runner.NewChapterRunner(m.cfg.Genre, prompts.NormalizeLengthHint(m.cfg.LengthHint), chapterWriter), nil
}

// BuildExtractRunner は、設定台帳の抽出・マージを担当する Runner を作成します。
func (m *Manager) BuildExtractRunner() (ExtractRunner, error) {
	refExtractor, err := extractor.New(m.textClient, m.textPrompt)
	if err != nil {
		return nil, err
	}

	return runner.NewExtractRunner(refExtractor), nil
}

// BuildPanelRunner は、パネル台本の分解とパネル画像の並列生成を担当する Runner を作成します。
func (m *Manager) BuildPanelRunner() (PanelRunner, error) {
	scripter, err := writer.NewPanelScripter(m.textClient, m.textPrompt)
	if err != nil {
		return nil, err
	}

	panelRenderer, err := renderer.New(m.imageClient, m.writer, m.imagePrompt, m.cfg.RateInterval, m.cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	return runner.NewPanelRunner(scripter, panelRenderer, renderer.ParseAspectRatio(m.cfg.AspectRatio)), nil
}

// BuildRefineRunner は、パネル・本文のリファインを担当する Runner を作成します。
func (m *Manager) BuildRefineRunner() (RefineRunner, error) {
	loop, err := refine.New(m.imageClient, m.textClient, m.writer, m.textPrompt, m.imagePrompt, m.cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	return runner.NewRefineRunner(m.cfg.Genre, renderer.ParseAspectRatio(m.cfg.AspectRatio), loop), nil
}

// BuildPublishRunner は、成果物のパブリッシュを担当する Runner を作成します。
func (m *Manager) BuildPublishRunner() (PublishRunner, error) {
	htmlCfg := builder.BuilderConfig{
		EnableHardWraps: true,
		Mode:            "webtoon",
	}
	md2htmlBuilder, err := builder.NewBuilder(htmlCfg)
	if err != nil {
		return nil, fmt.Errorf("md2htmlBuilder の初期化に失敗しました: %w", err)
	}
	md2htmlRunner, err := md2htmlBuilder.BuildRunner()
	if err != nil {
		return nil, fmt.Errorf("md2htmlRunner の初期化に失敗しました: %w", err)
	}

	pub, err := publisher.NewStoryPublisher(m.writer, htmlConverter{runner: md2htmlRunner})
	if err != nil {
		return nil, err
	}

	return runner.NewPublishRunner(pub, m.store), nil
}
