package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// summaryRuneLimit は ChapterText.Summary が返す先頭抜粋の最大文字数です。
const summaryRuneLimit = 200

// StoryPlan は AI モデルから返される物語全体の構成案です。
// 一度生成されたプランは不変として扱い、修正が必要な場合は
// 新しいプランで置き換えます（部分的なパッチは行いません）。
type StoryPlan struct {
	Title                     string           `json:"title"`
	Synopsis                  string           `json:"synopsis"`
	TotalChapters             int              `json:"total_chapters"`
	EstimatedPanelsPerChapter int              `json:"estimated_panels_per_chapter"`
	ChapterOutlines           []ChapterOutline `json:"chapter_outlines"`
}

// ChapterOutline は1章分の概要を保持します。
type ChapterOutline struct {
	ChapterNumber   int    `json:"chapter_number"`
	Title           string `json:"title"`
	Summary         string `json:"summary"`
	EstimatedPanels int    `json:"estimated_panels"`
}

// Validate はプランの章番号・章数の不変条件を検査します。
// 章番号は 1..TotalChapters の欠番・重複のない連番でなければなりません。
func (p *StoryPlan) Validate() error {
	if p.TotalChapters < 1 {
		return &PlanValidationError{Reason: fmt.Sprintf("total_chapters は1以上が必要です (got %d)", p.TotalChapters)}
	}
	if len(p.ChapterOutlines) != p.TotalChapters {
		return &PlanValidationError{
			Reason: fmt.Sprintf("章数が一致しません (total_chapters=%d, outlines=%d)", p.TotalChapters, len(p.ChapterOutlines)),
		}
	}
	if p.EstimatedPanelsPerChapter < 1 {
		return &PlanValidationError{Reason: fmt.Sprintf("estimated_panels_per_chapter は1以上が必要です (got %d)", p.EstimatedPanelsPerChapter)}
	}
	for i, outline := range p.ChapterOutlines {
		want := i + 1
		if outline.ChapterNumber != want {
			return &PlanValidationError{
				Reason: fmt.Sprintf("章番号が連番になっていません (index %d: want %d, got %d)", i, want, outline.ChapterNumber),
			}
		}
		if outline.EstimatedPanels < 1 {
			return &PlanValidationError{
				Reason: fmt.Sprintf("章 %d の estimated_panels は1以上が必要です (got %d)", outline.ChapterNumber, outline.EstimatedPanels),
			}
		}
	}
	return nil
}

// ChapterText は1章分の本文です。RefinementLoop による書き直しでは
// Prose だけが置き換わり、ChapterNumber の同一性は維持されます。
type ChapterText struct {
	ChapterNumber int             `json:"chapter_number"`
	Prose         string          `json:"prose"`
	Outline       *ChapterOutline `json:"-"` // 生成元アウトラインへの参照（所有はしない）
}

// Summary は一覧表示用に本文の先頭抜粋を返します。
func (c ChapterText) Summary() string {
	prose := strings.TrimSpace(c.Prose)
	if utf8.RuneCountInString(prose) <= summaryRuneLimit {
		return prose
	}
	runes := []rune(prose)
	return string(runes[:summaryRuneLimit]) + "..."
}

// Panel は1枚の生成画像とそのメタデータです。
// PromptUsed は監査と再生成（リファイン）のために必ず保持します。
type Panel struct {
	StoryID       string `json:"story_id"`
	ChapterNumber int    `json:"chapter_number"`
	Order         int    `json:"order"` // 章内での表示順 (1始まりの連番)
	ImageRef      string `json:"image_ref"`
	Caption       string `json:"caption,omitempty"`
	PromptUsed    string `json:"prompt_used"`
	SeedUsed      int64  `json:"seed_used"`
}
