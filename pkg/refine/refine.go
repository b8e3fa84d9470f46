// Package refine は、生成済みのパネル画像や章本文に対する的を絞った
// 再生成を行います。確立済みのシードと設定台帳は、編集指示が明示的に
// 上書きしない限り維持されます。
package refine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"

	"github.com/shouni/go-utils/urlpath"
)

// reviseSystemPrompt は本文書き直し時のAIの役割定義です。
// 前置きなしで修正後の本文だけを返すことを要求します。
const reviseSystemPrompt = "You are a revision engine. You respond with the revised passage only, without any preface or commentary."

// ImageWriter は再生成画像の保存先です。remoteio.OutputWriter がこれを満たします。
type ImageWriter interface {
	Write(ctx context.Context, path string, r io.Reader, mimeType string) error
}

// RefinementLoop はパネル・本文それぞれのリファイン経路を提供します。
type RefinementLoop struct {
	image     services.ImageRenderer
	text      services.TextGenerator
	writer    ImageWriter
	textPB    *prompts.TextPromptBuilder
	imagePB   *prompts.ImagePromptBuilder
	outputDir string
}

// New は依存関係を注入して RefinementLoop を初期化します。
func New(image services.ImageRenderer, text services.TextGenerator, writer ImageWriter, textPB *prompts.TextPromptBuilder, imagePB *prompts.ImagePromptBuilder, outputDir string) (*RefinementLoop, error) {
	if image == nil {
		return nil, fmt.Errorf("image (ImageRenderer) は必須です")
	}
	if text == nil {
		return nil, fmt.Errorf("text (TextGenerator) は必須です")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer (ImageWriter) は必須です")
	}
	if textPB == nil || imagePB == nil {
		return nil, fmt.Errorf("プロンプトビルダーは必須です")
	}
	return &RefinementLoop{
		image:     image,
		text:      text,
		writer:    writer,
		textPB:    textPB,
		imagePB:   imagePB,
		outputDir: outputDir,
	}, nil
}

// RefinePanel は既存パネルを編集指示に沿って再生成します。
//
// プロンプトは監査済みの PromptUsed に編集指示と一貫性ヒントを重ねて構築し、
// ゼロからの再導出はしません。シードは PreserveSeed（デフォルト true）の間は
// 元パネルの SeedUsed を再利用します。明示的な NewSeed、または
// PreserveSeed=false による再採番だけがシードを変更します。
func (l *RefinementLoop) RefinePanel(ctx context.Context, req domain.RefinementRequest, state *domain.ConsistencyState, aspectWidth, aspectHeight int) (*domain.Panel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Panel == nil {
		return nil, fmt.Errorf("パネル対象のリクエストではありません")
	}

	original := req.Panel
	refinedPrompt := l.imagePB.BuildRefinedPanelPrompt(original.PromptUsed, req.Instructions, req.Suggestions)

	renderReq := services.RenderRequest{
		Prompt:         refinedPrompt,
		NegativePrompt: prompts.NegativePanelPrompt,
		Width:          aspectWidth,
		Height:         aspectHeight,
	}

	switch {
	case req.NewSeed != nil:
		renderReq.Seed = req.NewSeed
	case req.ShouldPreserveSeed():
		s := original.SeedUsed
		renderReq.Seed = &s
	default:
		// シードを省略してサービス側の再採番を受ける
	}

	slog.InfoContext(ctx, "パネルをリファインするのだ",
		"story_id", original.StoryID,
		"chapter", original.ChapterNumber,
		"order", original.Order,
		"preserve_seed", req.ShouldPreserveSeed())

	result, err := l.image.Render(ctx, renderReq)
	if err != nil {
		return nil, fmt.Errorf("パネル %d-%d のリファインに失敗しました: %w", original.ChapterNumber, original.Order, err)
	}

	imageRef, err := l.saveImage(ctx, original, result)
	if err != nil {
		return nil, err
	}

	refined := &domain.Panel{
		StoryID:       original.StoryID,
		ChapterNumber: original.ChapterNumber,
		Order:         original.Order,
		ImageRef:      imageRef,
		Caption:       original.Caption,
		PromptUsed:    refinedPrompt,
		SeedUsed:      result.Seed,
	}

	// 意図的にシードを変えた場合のみ、グループの捕捉済みシードを差し替える
	if refined.SeedUsed != original.SeedUsed && req.Group != "" {
		state.ReplaceSeed(req.Group, refined.SeedUsed)
		slog.InfoContext(ctx, "リファインによりグループのシードを更新したのだ", "group", req.Group, "seed", refined.SeedUsed)
	}

	return refined, nil
}

// RefineChapterText は章本文（または選択された抜粋）を書き直します。
//
// 応答は本文全体を丸ごと置き換えます。章番号の同一性は維持されますが、
// 旧本文に紐づく生成済みパネルの再レンダリングは自動では行いません。
// 再レンダリングの判断は呼び出し元の責務です。
func (l *RefinementLoop) RefineChapterText(ctx context.Context, req domain.RefinementRequest, genre string) (*domain.ChapterText, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Chapter == nil {
		return nil, fmt.Errorf("本文対象のリクエストではありません")
	}

	passage := req.Passage
	if passage == "" {
		passage = req.Chapter.Prose
	}

	userPrompt, err := l.textPB.BuildRevisePrompt(passage, req.Instructions, genre)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "章本文をリファインするのだ", "chapter", req.Chapter.ChapterNumber)

	revised, err := l.text.Complete(ctx, reviseSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("章 %d の書き直しに失敗しました: %w", req.Chapter.ChapterNumber, err)
	}
	if strings.TrimSpace(revised) == "" {
		return nil, &domain.GenerationError{Stage: "text", Err: fmt.Errorf("書き直し結果が空でした")}
	}

	return &domain.ChapterText{
		ChapterNumber: req.Chapter.ChapterNumber,
		Prose:         revised,
		Outline:       req.Chapter.Outline,
	}, nil
}

// saveImage はリファイン結果を元パネルと別名で保存します。
func (l *RefinementLoop) saveImage(ctx context.Context, original *domain.Panel, result *services.RenderResult) (string, error) {
	filename := fmt.Sprintf("chapter_%02d/panel_%d_refined%s", original.ChapterNumber, original.Order, preferredExtension(result.MimeType))
	finalPath, err := urlpath.ResolveOutputPath(l.outputDir, filename)
	if err != nil {
		return "", fmt.Errorf("画像保存パスの生成に失敗しました: %w", err)
	}

	if err := l.writer.Write(ctx, finalPath, bytes.NewReader(result.Data), result.MimeType); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました (path: %s): %w", finalPath, err)
	}

	return finalPath, nil
}

func preferredExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
