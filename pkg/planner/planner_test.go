package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
)

type stubTextGenerator struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (s *stubTextGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.response, s.err
}

func newTestPlanner(t *testing.T, stub *stubTextGenerator) *StoryPlanner {
	t.Helper()
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		t.Fatalf("NewTextPromptBuilder: %v", err)
	}
	p, err := New(stub, pb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

const validPlanJSON = `{
	"title": "雨と猫",
	"synopsis": "迷い猫と少女の物語。",
	"total_chapters": 2,
	"estimated_panels_per_chapter": 3,
	"chapter_outlines": [
		{"chapter_number": 1, "title": "出会い", "summary": "少女が猫を拾う", "estimated_panels": 3},
		{"chapter_number": 2, "title": "別れ", "summary": "飼い主が見つかる", "estimated_panels": 3}
	]
}`

func TestPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("正常なJSONからプランが生成されるのだ", func(t *testing.T) {
		stub := &stubTextGenerator{response: validPlanJSON}
		p := newTestPlanner(t, stub)

		plan, err := p.Plan(ctx, "少女が捨て猫を拾う話", "drama")
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if plan.Title != "雨と猫" || plan.TotalChapters != 2 {
			t.Errorf("プランの内容が不正です: %+v", plan)
		}
		if !strings.Contains(stub.lastUser, "少女が捨て猫を拾う話") {
			t.Errorf("前提がプロンプトに渡っていません")
		}
		if !strings.Contains(stub.lastUser, "drama") {
			t.Errorf("ジャンルがプロンプトに渡っていません")
		}
	})

	t.Run("フェンス付き応答でも解析できるのだ", func(t *testing.T) {
		stub := &stubTextGenerator{response: "Here is your plan:\n```json\n" + validPlanJSON + "\n```"}
		p := newTestPlanner(t, stub)

		plan, err := p.Plan(ctx, "premise", "")
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if len(plan.ChapterOutlines) != 2 {
			t.Errorf("章アウトラインが解析できていません: %+v", plan.ChapterOutlines)
		}
	})

	t.Run("章数の不整合は検証エラーになるのだ", func(t *testing.T) {
		broken := strings.Replace(validPlanJSON, `"total_chapters": 2`, `"total_chapters": 3`, 1)
		p := newTestPlanner(t, &stubTextGenerator{response: broken})

		_, err := p.Plan(ctx, "premise", "")
		var vErr *domain.PlanValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("PlanValidationError が返るべきです: %v", err)
		}
	})

	t.Run("JSONでない応答は整形不良エラーになるのだ", func(t *testing.T) {
		p := newTestPlanner(t, &stubTextGenerator{response: "すみません、プランを作れませんでした。"})

		_, err := p.Plan(ctx, "premise", "")
		var mErr *domain.MalformedOutputError
		if !errors.As(err, &mErr) {
			t.Errorf("MalformedOutputError が返るべきです: %v", err)
		}
	})

	t.Run("空の前提は拒否されるのだ", func(t *testing.T) {
		p := newTestPlanner(t, &stubTextGenerator{response: validPlanJSON})

		if _, err := p.Plan(ctx, "", ""); err == nil {
			t.Error("空の前提でエラーが返るべきです")
		}
	})
}
