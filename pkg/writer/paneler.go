package writer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"
	"github.com/shouni/go-story-kit/pkg/textparse"
)

// panelScriptSystemPrompt はパネル分解時のAIの役割定義です。
const panelScriptSystemPrompt = "You are a storyboard engine. You always respond with a single valid JSON object and nothing else."

// PanelBeat は章本文から切り出した1パネル分の描写です。
type PanelBeat struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
	Caption     string `json:"caption,omitempty"`
}

type panelScript struct {
	Panels []PanelBeat `json:"panels"`
}

// PanelScripter は章本文をパネル単位の視覚的な場面に分解します。
type PanelScripter struct {
	text services.TextGenerator
	pb   *prompts.TextPromptBuilder
}

// NewPanelScripter は依存関係を注入して PanelScripter を初期化します。
func NewPanelScripter(text services.TextGenerator, pb *prompts.TextPromptBuilder) (*PanelScripter, error) {
	if text == nil {
		return nil, fmt.Errorf("text (TextGenerator) は必須です")
	}
	if pb == nil {
		return nil, fmt.Errorf("pb (TextPromptBuilder) は必須です")
	}
	return &PanelScripter{text: text, pb: pb}, nil
}

// Script は prose を panelCount 個のパネル描写に分解します。
// order は 1 始まりの欠番のない連番であることを検証します。
func (s *PanelScripter) Script(ctx context.Context, prose string, panelCount int) ([]PanelBeat, error) {
	if panelCount < 1 {
		return nil, fmt.Errorf("panelCount は1以上が必須です (got %d)", panelCount)
	}

	userPrompt, err := s.pb.BuildPanelScriptPrompt(prose, panelCount)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "章本文をパネル台本に分解するのだ", "panel_count", panelCount)

	raw, err := s.text.Complete(ctx, panelScriptSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var script panelScript
	if err := textparse.Parse(raw, &script); err != nil {
		return nil, err
	}

	if len(script.Panels) == 0 {
		return nil, fmt.Errorf("パネル台本が空でした")
	}
	for i, beat := range script.Panels {
		if beat.Order != i+1 {
			return nil, fmt.Errorf("パネル順序が連番になっていません (index %d: got %d)", i, beat.Order)
		}
		if beat.Description == "" {
			return nil, fmt.Errorf("パネル %d の描写が空でした", beat.Order)
		}
	}

	return script.Panels, nil
}
