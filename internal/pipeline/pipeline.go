// Package pipeline は、CLI コマンドから呼ばれる各実行経路を組み立てます。
// 依存の初期化は setupAppContext に集約し、各 Execute 関数は
// workflow の Runner を順に束ねて1つの実行として完結させます。
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-story-kit/internal/config"
	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/store"
	"github.com/shouni/go-story-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-utils/urlpath"
)

// AppContext はパイプライン実行に必要な共有コンポーネントの集合なのだ。
type AppContext struct {
	Config  *config.Config
	Manager *workflow.Manager
	Reader  remoteio.InputReader
	Writer  remoteio.OutputWriter
	Store   store.StoryStore
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、
// アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	httpClient := httpkit.New(config.DefaultHTTPTimeout)

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	memStore := store.NewMemoryStore()

	manager, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:     cfg.WorkflowConfig(),
		HTTPClient: httpClient,
		Writer:     writer,
		Store:      memStore,
	})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗したのだ: %w", err)
	}

	return &AppContext{
		Config:  cfg,
		Manager: manager,
		Reader:  reader,
		Writer:  writer,
		Store:   memStore,
	}, nil
}

// premiseSource は --premise / --premise-url のどちらを使うかを解決するのだ。
func premiseSource(opts config.GenerateOptions) (string, error) {
	if opts.PremiseURL != "" {
		return opts.PremiseURL, nil
	}
	if strings.TrimSpace(opts.Premise) != "" {
		return opts.Premise, nil
	}
	return "", fmt.Errorf("物語の前提（--premise または --premise-url）を指定してほしいのだ")
}

func resolveStoryID(opts config.GenerateOptions) string {
	if opts.StoryID != "" {
		return opts.StoryID
	}
	return fmt.Sprintf("story-%d", time.Now().Unix())
}

// ExecutePlan は前提から物語計画のみを生成し、plan.json として保存するのだ。
func ExecutePlan(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	source, err := premiseSource(cfg.Options)
	if err != nil {
		return err
	}

	planRunner, err := appCtx.Manager.BuildPlanRunner()
	if err != nil {
		return err
	}

	plan, err := planRunner.Run(ctx, source, cfg.Options.Genre)
	if err != nil {
		return fmt.Errorf("物語計画の生成に失敗したのだ: %w", err)
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("計画のJSON化に失敗したのだ: %w", err)
	}

	planPath, err := urlpath.ResolveOutputPath(cfg.Options.OutputDir, "plan.json")
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, planPath, strings.NewReader(string(data)), "application/json"); err != nil {
		return fmt.Errorf("計画の保存に失敗したのだ: %w", err)
	}

	slog.Info("物語計画が完成したのだ！", "title", plan.Title, "chapters", plan.TotalChapters, "path", planPath)
	return nil
}

// ExecuteChapter は自由入力のプロンプトファイルから単章の本文を生成して保存するのだ。
// 物語計画を経由しない単発実行のための経路なのだ。
func ExecuteChapter(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Options.PromptFile == "" {
		return fmt.Errorf("章生成用のプロンプトファイル（--prompt-file）を指定してほしいのだ")
	}

	rc, err := appCtx.Reader.Open(ctx, cfg.Options.PromptFile)
	if err != nil {
		return fmt.Errorf("プロンプトファイル '%s' の読み込みに失敗したのだ: %w", cfg.Options.PromptFile, err)
	}
	defer rc.Close()

	promptBytes, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	chapterRunner, err := appCtx.Manager.BuildChapterRunner()
	if err != nil {
		return err
	}

	chapterNumber := cfg.Options.Chapter
	if chapterNumber < 1 {
		chapterNumber = 1
	}

	chapter, err := chapterRunner.RunFromPrompt(ctx, chapterNumber, string(promptBytes))
	if err != nil {
		return fmt.Errorf("章本文の生成に失敗したのだ: %w", err)
	}

	outPath, err := urlpath.ResolveOutputPath(cfg.Options.OutputDir, fmt.Sprintf("chapter_%02d.md", chapter.ChapterNumber))
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, outPath, strings.NewReader(chapter.Prose), "text/markdown; charset=utf-8"); err != nil {
		return fmt.Errorf("章本文の保存に失敗したのだ: %w", err)
	}

	slog.Info("章本文が完成したのだ！", "chapter", chapter.ChapterNumber, "path", outPath)
	return nil
}

// ExecuteRefineText は既存の本文ファイルを編集指示に沿って書き直すのだ。
func ExecuteRefineText(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Options.PromptFile == "" {
		return fmt.Errorf("書き直す本文ファイル（--prompt-file）を指定してほしいのだ")
	}
	if strings.TrimSpace(cfg.Options.Instructions) == "" {
		return fmt.Errorf("編集指示（--instructions）を指定してほしいのだ")
	}

	rc, err := appCtx.Reader.Open(ctx, cfg.Options.PromptFile)
	if err != nil {
		return fmt.Errorf("本文ファイル '%s' の読み込みに失敗したのだ: %w", cfg.Options.PromptFile, err)
	}
	defer rc.Close()

	proseBytes, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	refineRunner, err := appCtx.Manager.BuildRefineRunner()
	if err != nil {
		return err
	}

	chapterNumber := cfg.Options.Chapter
	if chapterNumber < 1 {
		chapterNumber = 1
	}

	revised, err := refineRunner.RunChapterText(ctx, domain.RefinementRequest{
		Chapter: &domain.ChapterText{
			ChapterNumber: chapterNumber,
			Prose:         string(proseBytes),
		},
		Instructions: cfg.Options.Instructions,
	})
	if err != nil {
		return fmt.Errorf("本文の書き直しに失敗したのだ: %w", err)
	}

	outPath, err := urlpath.ResolveOutputPath(cfg.Options.OutputDir, fmt.Sprintf("chapter_%02d_revised.md", chapterNumber))
	if err != nil {
		return err
	}
	if err := appCtx.Writer.Write(ctx, outPath, strings.NewReader(revised.Prose), "text/markdown; charset=utf-8"); err != nil {
		return fmt.Errorf("書き直し結果の保存に失敗したのだ: %w", err)
	}

	slog.Info("本文の書き直しが完成したのだ！", "chapter", chapterNumber, "path", outPath)
	return nil
}
