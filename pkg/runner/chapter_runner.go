package runner

import (
	"context"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/writer"
)

// ChapterRunner はアウトラインまたは自由入力のプロンプトから章本文を生成します。
type ChapterRunner struct {
	genre  string
	hint   prompts.LengthHint
	writer *writer.ChapterWriter
}

// NewChapterRunner は依存関係を注入して ChapterRunner を初期化します。
func NewChapterRunner(genre string, hint prompts.LengthHint, w *writer.ChapterWriter) *ChapterRunner {
	return &ChapterRunner{
		genre:  genre,
		hint:   hint,
		writer: w,
	}
}

// Run は計画中のアウトラインから章本文を生成します。
func (r *ChapterRunner) Run(ctx context.Context, outline domain.ChapterOutline) (*domain.ChapterText, error) {
	return r.writer.WriteFromOutline(ctx, outline, r.genre, r.hint)
}

// RunFromPrompt は計画を経由しない自由入力のプロンプトから章本文を生成します。
func (r *ChapterRunner) RunFromPrompt(ctx context.Context, chapterNumber int, freePrompt string) (*domain.ChapterText, error) {
	return r.writer.WriteFromPrompt(ctx, chapterNumber, freePrompt, r.genre, r.hint)
}
