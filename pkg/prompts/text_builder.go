// Package prompts は、各工程向けのAIプロンプトを構築します。
// テキスト系の指示は go:embed したMarkdownテンプレートから生成し、
// 画像系の指示は設定台帳を織り込んだ文字列として組み立てます。
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/go-story-kit/pkg/domain"
)

//go:embed templates/*.md
var templateFS embed.FS

// LengthHint は章本文のボリューム指定です。未知の値は medium に倒します。
type LengthHint string

const (
	LengthShort  LengthHint = "short"
	LengthMedium LengthHint = "medium"
	LengthLong   LengthHint = "long"
)

// paragraphTargets は LengthHint ごとの目標段落数です。
var paragraphTargets = map[LengthHint]int{
	LengthShort:  3,
	LengthMedium: 6,
	LengthLong:   10,
}

// NormalizeLengthHint は未知のヒントを medium へフォールバックします。
func NormalizeLengthHint(hint string) LengthHint {
	h := LengthHint(strings.ToLower(strings.TrimSpace(hint)))
	if _, ok := paragraphTargets[h]; !ok {
		return LengthMedium
	}
	return h
}

// TextPromptBuilder はテキスト生成向けプロンプトのビルダーです。
type TextPromptBuilder struct {
	templates *template.Template
}

// NewTextPromptBuilder は埋め込みテンプレートをパースしてビルダーを生成します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.md")
	if err != nil {
		return nil, fmt.Errorf("プロンプトテンプレートのパースに失敗しました: %w", err)
	}
	return &TextPromptBuilder{templates: tmpl}, nil
}

func (b *TextPromptBuilder) render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := b.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("テンプレート %s の展開に失敗しました: %w", name, err)
	}
	return sb.String(), nil
}

// BuildPlanPrompt はストーリープラン生成の指示を構築します。
func (b *TextPromptBuilder) BuildPlanPrompt(premise, genre string) (string, error) {
	return b.render("plan.md", struct {
		Premise string
		Genre   string
	}{Premise: premise, Genre: genre})
}

// BuildChapterPrompt は章本文生成の指示を構築します。
// summary にはアウトラインの要約、または自由入力のプロンプトをそのまま渡せます。
func (b *TextPromptBuilder) BuildChapterPrompt(title, summary, genre string, hint LengthHint) (string, error) {
	return b.render("chapter.md", struct {
		Title      string
		Summary    string
		Genre      string
		Paragraphs int
	}{Title: title, Summary: summary, Genre: genre, Paragraphs: paragraphTargets[NormalizeLengthHint(string(hint))]})
}

// BuildExtractPrompt は設定台帳抽出の指示を構築します。
func (b *TextPromptBuilder) BuildExtractPrompt(narrative string, declared []domain.CharacterReference) (string, error) {
	var sb strings.Builder
	for _, ref := range declared {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", ref.Name, ref.Description))
	}
	return b.render("extract.md", struct {
		Narrative string
		Declared  string
	}{Narrative: narrative, Declared: sb.String()})
}

// BuildPanelScriptPrompt は章本文をパネル台本へ分解する指示を構築します。
func (b *TextPromptBuilder) BuildPanelScriptPrompt(prose string, panelCount int) (string, error) {
	return b.render("panel_script.md", struct {
		Prose      string
		PanelCount int
	}{Prose: prose, PanelCount: panelCount})
}

// BuildRevisePrompt は本文の書き直し指示を構築します。
// 応答は「修正後の本文のみ」を要求します。
func (b *TextPromptBuilder) BuildRevisePrompt(passage, instructions, genre string) (string, error) {
	return b.render("revise.md", struct {
		Passage      string
		Instructions string
		Genre        string
	}{Passage: passage, Instructions: instructions, Genre: genre})
}
