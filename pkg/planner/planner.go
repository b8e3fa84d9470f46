// Package planner は、前提とジャンルからストーリープランを生成します。
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"
	"github.com/shouni/go-story-kit/pkg/textparse"
)

// planSystemPrompt はプラン生成時のAIの役割定義です。
const planSystemPrompt = "You are a story planning engine. You always respond with a single valid JSON object and nothing else."

// StoryPlanner は前提文をもとに構造化された StoryPlan を生成します。
type StoryPlanner struct {
	text services.TextGenerator
	pb   *prompts.TextPromptBuilder
}

// New は依存関係を注入して StoryPlanner を初期化します。
func New(text services.TextGenerator, pb *prompts.TextPromptBuilder) (*StoryPlanner, error) {
	if text == nil {
		return nil, fmt.Errorf("text (TextGenerator) は必須です")
	}
	if pb == nil {
		return nil, fmt.Errorf("pb (TextPromptBuilder) は必須です")
	}
	return &StoryPlanner{text: text, pb: pb}, nil
}

// Plan は premise と genre からプランを生成・検証して返します。
// 章番号や章数の不変条件を満たさないプランは PlanValidationError として
// 呼び出し元に報告します。章を捏造して黙って直すことはしません。
func (p *StoryPlanner) Plan(ctx context.Context, premise, genre string) (*domain.StoryPlan, error) {
	if premise == "" {
		return nil, fmt.Errorf("premise は必須です")
	}

	userPrompt, err := p.pb.BuildPlanPrompt(premise, genre)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "ストーリープランを生成するのだ", "genre", genre)

	raw, err := p.text.Complete(ctx, planSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var plan domain.StoryPlan
	if err := textparse.Parse(raw, &plan); err != nil {
		return nil, err
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "プランの検証が完了したのだ",
		"title", plan.Title,
		"chapters", plan.TotalChapters,
		"panels_per_chapter", plan.EstimatedPanelsPerChapter)

	return &plan, nil
}
