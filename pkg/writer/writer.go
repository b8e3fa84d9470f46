// Package writer は、章アウトラインまたは自由入力から章本文を生成します。
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"
)

// chapterSystemPrompt は章本文生成時のAIの役割定義です。
const chapterSystemPrompt = "You are a prose engine for a serialized illustrated story. You respond with chapter prose only."

// ChapterWriter は1章分の本文を生成するステートレスなコンポーネントです。
// 章をまたぐ依存がないため、プラン確定後は複数章を並行生成できます。
type ChapterWriter struct {
	text services.TextGenerator
	pb   *prompts.TextPromptBuilder
}

// New は依存関係を注入して ChapterWriter を初期化します。
func New(text services.TextGenerator, pb *prompts.TextPromptBuilder) (*ChapterWriter, error) {
	if text == nil {
		return nil, fmt.Errorf("text (TextGenerator) は必須です")
	}
	if pb == nil {
		return nil, fmt.Errorf("pb (TextPromptBuilder) は必須です")
	}
	return &ChapterWriter{text: text, pb: pb}, nil
}

// WriteFromOutline はアウトラインに沿って章本文を生成します。
func (w *ChapterWriter) WriteFromOutline(ctx context.Context, outline domain.ChapterOutline, genre string, hint prompts.LengthHint) (*domain.ChapterText, error) {
	userPrompt, err := w.pb.BuildChapterPrompt(outline.Title, outline.Summary, genre, hint)
	if err != nil {
		return nil, err
	}

	prose, err := w.complete(ctx, outline.ChapterNumber, userPrompt)
	if err != nil {
		return nil, err
	}

	return &domain.ChapterText{
		ChapterNumber: outline.ChapterNumber,
		Prose:         prose,
		Outline:       &outline,
	}, nil
}

// WriteFromPrompt は自由入力のプロンプトから章本文を生成します。
// 章番号は呼び出し元が採番します。
func (w *ChapterWriter) WriteFromPrompt(ctx context.Context, chapterNumber int, freePrompt, genre string, hint prompts.LengthHint) (*domain.ChapterText, error) {
	userPrompt, err := w.pb.BuildChapterPrompt("", freePrompt, genre, hint)
	if err != nil {
		return nil, err
	}

	prose, err := w.complete(ctx, chapterNumber, userPrompt)
	if err != nil {
		return nil, err
	}

	return &domain.ChapterText{ChapterNumber: chapterNumber, Prose: prose}, nil
}

// complete は生成呼び出しの共通部です。空の本文は成功ではなく失敗として扱います。
func (w *ChapterWriter) complete(ctx context.Context, chapterNumber int, userPrompt string) (string, error) {
	slog.InfoContext(ctx, "章本文を生成するのだ", "chapter", chapterNumber)

	prose, err := w.text.Complete(ctx, chapterSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("章 %d の本文生成に失敗しました: %w", chapterNumber, err)
	}
	if strings.TrimSpace(prose) == "" {
		// 空の章は「空の成果物」ではなく失敗として報告する
		return "", &domain.GenerationError{Stage: "text", Err: fmt.Errorf("章 %d の本文が空でした", chapterNumber)}
	}
	return prose, nil
}
