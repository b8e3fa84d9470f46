package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-story-kit/pkg/domain"
)

const (
	// panelSystemInstruction は単体パネル生成時のAIの役割定義です。
	panelSystemInstruction = "You are a professional illustrator for a serialized story. Create a single high-quality cinematic scene."

	// NegativePanelPrompt はパネル用のネガティブプロンプトです。
	NegativePanelPrompt = "speech bubble, dialogue balloon, text, alphabet, letters, words, signatures, watermark, username, low quality, distorted, bad anatomy"

	// consistencyHeader はリファイン時に一貫性ヒントへ付ける見出しです。
	consistencyHeader = "IMPORTANT FOR CONSISTENCY"
)

// ImagePromptBuilder は、設定台帳を織り込んで画像生成プロンプトを構築します。
type ImagePromptBuilder struct {
	styleSuffix string // "watercolor, soft lighting" 等の共通画風サフィックス
}

// NewImagePromptBuilder は新しい ImagePromptBuilder を生成します。
func NewImagePromptBuilder(styleSuffix string) *ImagePromptBuilder {
	return &ImagePromptBuilder{styleSuffix: styleSuffix}
}

// BuildPanelPrompt は、パネル記述と設定台帳から UserPrompt / SystemPrompt を生成します。
// 台帳のキャラクター・ロケーション記述と continuity notes を明示的に織り込み、
// ステートレスな生成呼び出しに一貫性の文脈を運びます。
func (pb *ImagePromptBuilder) BuildPanelPrompt(description, styleTag string, state *domain.ConsistencyState) (userPrompt, systemPrompt string) {
	// --- System Prompt: 役割と画風 ---
	systemParts := []string{panelSystemInstruction}
	if styleTag != "" {
		systemParts = append(systemParts, fmt.Sprintf("### ART STYLE ###\n%s", styleTag))
	}
	if pb.styleSuffix != "" {
		systemParts = append(systemParts, fmt.Sprintf("### GLOBAL VISUAL STYLE ###\n%s", pb.styleSuffix))
	}
	systemPrompt = strings.Join(systemParts, "\n\n")

	// --- User Prompt: 場面 + 台帳 ---
	var us strings.Builder
	us.WriteString(fmt.Sprintf("SCENE: %s\n", strings.TrimSpace(description)))

	if state != nil {
		if section := ledgerSection(state); section != "" {
			us.WriteString("\nHonor these established references exactly:\n")
			us.WriteString(section)
		}
		if notes := state.Notes(); notes != "" {
			us.WriteString("\nCONTINUITY NOTES (must remain stable):\n")
			us.WriteString(notes)
			us.WriteString("\n")
		}
	}

	return us.String(), systemPrompt
}

// BuildRefinedPanelPrompt は、既存パネルのプロンプトに編集指示と一貫性ヒントを重ねます。
// ベースのプロンプトを作り直すのではなく、監査済みの PromptUsed に追記する形を取ります。
func (pb *ImagePromptBuilder) BuildRefinedPanelPrompt(basePrompt, instructions string, suggestions []string) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\nEDIT: ")
	sb.WriteString(strings.TrimSpace(instructions))

	hints := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if s = strings.TrimSpace(s); s != "" {
			hints = append(hints, s)
		}
	}
	if len(hints) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n%s: %s", consistencyHeader, strings.Join(hints, "; ")))
	}

	return sb.String()
}

// ledgerSection は設定台帳をプロンプト用の箇条書きに整形します。
func ledgerSection(state *domain.ConsistencyState) string {
	var sb strings.Builder
	for _, char := range state.Characters() {
		sb.WriteString(fmt.Sprintf("- CHARACTER %s: %s\n", char.Name, compactLines(char.Description)))
	}
	for _, loc := range state.Locations() {
		sb.WriteString(fmt.Sprintf("- LOCATION %s: %s\n", loc.Name, compactLines(loc.Description)))
	}
	return sb.String()
}

// compactLines は追記マージで複数行になった記述を1行に畳みます。
func compactLines(s string) string {
	lines := strings.Split(s, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}
