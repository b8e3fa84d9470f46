package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-story-kit/internal/config"
	"github.com/shouni/go-story-kit/pkg/domain"

	"golang.org/x/sync/errgroup"
)

// ExecuteStory は前提テキストから最終成果物までの全工程を一括実行するのだ！
//
// Phase 1: 物語計画の生成
// Phase 2: 章本文の並列生成
// Phase 3: 章ごとの設定台帳抽出 → パネル並列生成（章順に直列）
// Phase 4: 成果物のパブリッシュ
//
// 台帳の抽出・マージはその章のパネル生成より前に完了させる必要があるため、
// Phase 3 は章番号順に処理するのだ。
func ExecuteStory(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}

	source, err := premiseSource(cfg.Options)
	if err != nil {
		return err
	}
	storyID := resolveStoryID(cfg.Options)

	// --- Phase 1: Plan Phase（物語計画） ---
	plan, err := runPlanStep(ctx, appCtx, source)
	if err != nil {
		return err
	}

	// --- Phase 2: Chapter Phase（章本文の並列生成） ---
	chapters, err := runChapterStep(ctx, appCtx, plan)
	if err != nil {
		return err
	}

	// --- Phase 3: Ledger & Panel Phase（台帳抽出とパネル生成） ---
	state := domain.NewConsistencyState()
	if err := runPanelStep(ctx, appCtx, plan, chapters, storyID, state); err != nil {
		return err
	}

	// --- Phase 4: Publish Phase（公開/保存） ---
	publishRunner, err := appCtx.Manager.BuildPublishRunner()
	if err != nil {
		return fmt.Errorf("PublishRunnerの構築に失敗したのだ: %w", err)
	}
	result, err := publishRunner.Run(ctx, plan, storyID, cfg.Options.OutputDir)
	if err != nil {
		return fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}

	slog.Info("物語の集大成が完成したのだ！",
		"story_id", storyID,
		"markdown", result.MarkdownPath,
		"html", result.HTMLPath,
		"panels", len(result.ImageRefs))
	return nil
}

// runPlanStep は物語計画を生成するのだ。
func runPlanStep(ctx context.Context, appCtx *AppContext, source string) (*domain.StoryPlan, error) {
	slog.Info("Phase 1: 物語計画の生成を開始するのだ...")
	planRunner, err := appCtx.Manager.BuildPlanRunner()
	if err != nil {
		return nil, fmt.Errorf("PlanRunnerの構築に失敗したのだ: %w", err)
	}

	plan, err := planRunner.Run(ctx, source, appCtx.Config.Options.Genre)
	if err != nil {
		return nil, fmt.Errorf("物語計画の生成に失敗したのだ: %w", err)
	}

	slog.Info("物語計画ができたのだ", "title", plan.Title, "chapters", plan.TotalChapters)
	return plan, nil
}

// runChapterStep は全章の本文を並列生成し、章番号順に整列して返すのだ。
func runChapterStep(ctx context.Context, appCtx *AppContext, plan *domain.StoryPlan) ([]*domain.ChapterText, error) {
	slog.Info("Phase 2: 章本文の並列生成を開始するのだ...", "chapters", plan.TotalChapters)
	chapterRunner, err := appCtx.Manager.BuildChapterRunner()
	if err != nil {
		return nil, fmt.Errorf("ChapterRunnerの構築に失敗したのだ: %w", err)
	}

	chapters := make([]*domain.ChapterText, len(plan.ChapterOutlines))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, outline := range plan.ChapterOutlines {
		i, outline := i, outline
		eg.Go(func() error {
			chapter, err := chapterRunner.Run(egCtx, outline)
			if err != nil {
				return err
			}
			chapters[i] = chapter
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("章本文の生成に失敗したのだ: %w", err)
	}

	return chapters, nil
}

// runPanelStep は章ごとに設定台帳を更新した上でパネルを生成し、ストアへ保存するのだ。
func runPanelStep(ctx context.Context, appCtx *AppContext, plan *domain.StoryPlan, chapters []*domain.ChapterText, storyID string, state *domain.ConsistencyState) error {
	slog.Info("Phase 3: 台帳抽出とパネル生成を開始するのだ...")

	extractRunner, err := appCtx.Manager.BuildExtractRunner()
	if err != nil {
		return fmt.Errorf("ExtractRunnerの構築に失敗したのだ: %w", err)
	}
	panelRunner, err := appCtx.Manager.BuildPanelRunner()
	if err != nil {
		return fmt.Errorf("PanelRunnerの構築に失敗したのだ: %w", err)
	}

	for i, chapter := range chapters {
		outline := plan.ChapterOutlines[i]

		// パネル生成の前に、この章の登場人物・場所を台帳へ反映させる
		result, err := extractRunner.Run(ctx, chapter.Prose, nil, state)
		if err != nil {
			return fmt.Errorf("章 %d の台帳抽出に失敗したのだ: %w", chapter.ChapterNumber, err)
		}
		slog.Info("台帳を更新したのだ",
			"chapter", chapter.ChapterNumber,
			"characters", len(result.Characters),
			"locations", len(result.Locations))

		panels, err := panelRunner.Run(ctx, storyID, chapter, outline.EstimatedPanels, state)
		if err != nil {
			return fmt.Errorf("章 %d のパネル生成に失敗したのだ: %w", chapter.ChapterNumber, err)
		}

		if _, err := appCtx.Store.CreateChapter(ctx, storyID, chapter.ChapterNumber, outline.Title, chapter.Prose, panels); err != nil {
			return fmt.Errorf("章 %d の保存に失敗したのだ: %w", chapter.ChapterNumber, err)
		}
	}

	return nil
}
