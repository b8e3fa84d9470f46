// Package renderer は、パネル記述と設定台帳から1枚のパネル画像を生成します。
//
// 視覚的一貫性の要は consistency group ごとのシード運用です。グループ初回の
// レンダリングはシードなしで呼び出してサービス側の採番を受け取り、以降の
// レンダリングはその捕捉済みシードを再利用します。初回の確定は
// check-then-act になるため、グループ単位の singleflight で直列化します。
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shouni/go-story-kit/pkg/domain"
	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"

	"github.com/shouni/go-utils/urlpath"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ImageWriter は生成画像の保存先です。remoteio.OutputWriter がこれを満たします。
type ImageWriter interface {
	Write(ctx context.Context, path string, r io.Reader, mimeType string) error
}

// Request は1枚のパネルのレンダリング要求です。
type Request struct {
	StoryID       string
	ChapterNumber int
	Order         int // 章内での表示順 (1始まり)
	Description   string
	Caption       string
	StyleTag      string      // "storybook" 等の画風ラベル
	Aspect        AspectRatio // 未知の値は square に倒れる
	Group         string      // consistency group。空なら "story:<StoryID>"

	// SeedOverride を指定すると捕捉済みシードより優先されます。
	SeedOverride *int64
	// FreshSeed は意図的なスタイル変更などで、捕捉済みシードを無視して
	// 新しいシードの採番を要求します。
	FreshSeed bool
}

// group は未指定時のデフォルトグループを解決します。
func (r Request) group() string {
	if r.Group != "" {
		return r.Group
	}
	return "story:" + r.StoryID
}

// firstRender は singleflight の戻り値です。owner はシード確定レンダリングを
// 実際に実行したリクエストの識別子で、画像の持ち主を判別します。
type firstRender struct {
	owner  string
	seed   int64
	result *services.RenderResult
}

// PanelRenderer はパネル画像の生成・保存・シード捕捉を担います。
type PanelRenderer struct {
	image     services.ImageRenderer
	writer    ImageWriter
	pb        *prompts.ImagePromptBuilder
	limiter   *rate.Limiter
	seedGroup singleflight.Group
	outputDir string
}

// New は依存関係を注入して PanelRenderer を初期化します。
func New(image services.ImageRenderer, writer ImageWriter, pb *prompts.ImagePromptBuilder, rateInterval time.Duration, outputDir string) (*PanelRenderer, error) {
	if image == nil {
		return nil, fmt.Errorf("image (ImageRenderer) は必須です")
	}
	if writer == nil {
		return nil, fmt.Errorf("writer (OutputWriter) は必須です")
	}
	if pb == nil {
		return nil, fmt.Errorf("pb (ImagePromptBuilder) は必須です")
	}
	if rateInterval <= 0 {
		return nil, fmt.Errorf("rateInterval は正の値が必須です")
	}
	return &PanelRenderer{
		image:     image,
		writer:    writer,
		pb:        pb,
		limiter:   rate.NewLimiter(rate.Every(rateInterval), 1),
		outputDir: outputDir,
	}, nil
}

// Render は1枚のパネルを生成して保存し、使用したプロンプトとシードを
// 記録した Panel を返します。失敗時にプロンプトを変えて黙り直すことは
// しません。監査証跡の再現性が壊れるためです。
func (r *PanelRenderer) Render(ctx context.Context, req Request, state *domain.ConsistencyState) (*domain.Panel, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("リミッター待機中にエラーが発生しました: %w", err)
	}

	userPrompt, systemPrompt := r.pb.BuildPanelPrompt(req.Description, req.StyleTag, state)
	width, height := req.Aspect.Dimensions()

	renderReq := services.RenderRequest{
		Prompt:         userPrompt,
		NegativePrompt: prompts.NegativePanelPrompt,
		SystemPrompt:   systemPrompt,
		Width:          width,
		Height:         height,
	}

	group := req.group()
	logger := slog.With("story_id", req.StoryID, "chapter", req.ChapterNumber, "order", req.Order, "group", group)

	result, err := r.renderWithSeed(ctx, req, renderReq, group, state, logger)
	if err != nil {
		return nil, fmt.Errorf("パネル %d-%d の生成に失敗しました: %w", req.ChapterNumber, req.Order, err)
	}

	imageRef, err := r.saveImage(ctx, req, result)
	if err != nil {
		return nil, err
	}

	logger.Info("パネル生成が完了したのだ", "image_ref", imageRef, "seed", result.Seed)

	return &domain.Panel{
		StoryID:       req.StoryID,
		ChapterNumber: req.ChapterNumber,
		Order:         req.Order,
		ImageRef:      imageRef,
		Caption:       req.Caption,
		PromptUsed:    userPrompt,
		SeedUsed:      result.Seed,
	}, nil
}

// renderWithSeed はシードの解決と画像生成を行います。
//
// 解決順序: 明示オーバーライド > FreshSeed（シードなし採番）> 捕捉済みシード >
// グループ初回のシード確定レンダリング。初回確定はグループ単位の
// singleflight で直列化し、並行パネルが同時にシードなしで飛ばないようにします。
func (r *PanelRenderer) renderWithSeed(ctx context.Context, req Request, renderReq services.RenderRequest, group string, state *domain.ConsistencyState, logger *slog.Logger) (*services.RenderResult, error) {
	if req.SeedOverride != nil {
		renderReq.Seed = req.SeedOverride
		return r.image.Render(ctx, renderReq)
	}

	if req.FreshSeed {
		// 新しいシードの採番を要求し、捕捉済みシードを明示的に差し替える
		result, err := r.image.Render(ctx, renderReq)
		if err != nil {
			return nil, err
		}
		state.ReplaceSeed(group, result.Seed)
		logger.Info("シードを明示的に更新したのだ", "seed", result.Seed)
		return result, nil
	}

	if seed, ok := state.Seed(group); ok {
		s := seed
		renderReq.Seed = &s
		return r.image.Render(ctx, renderReq)
	}

	// グループ初回: singleflight でシード確定レンダリングを1本に絞る
	myKey := fmt.Sprintf("%s/%d/%d", req.StoryID, req.ChapterNumber, req.Order)
	v, err, _ := r.seedGroup.Do(group, func() (any, error) {
		// 待機中に他のゴルーチンが捕捉を終えている可能性があるため再確認
		if seed, ok := state.Seed(group); ok {
			return firstRender{seed: seed}, nil
		}

		result, renderErr := r.image.Render(ctx, renderReq)
		if renderErr != nil {
			return nil, renderErr
		}

		committed := state.SetSeedIfAbsent(group, result.Seed)
		logger.Info("グループの初回シードを捕捉したのだ", "seed", committed)
		return firstRender{owner: myKey, seed: committed, result: result}, nil
	})
	if err != nil {
		return nil, err
	}

	first, ok := v.(firstRender)
	if !ok {
		return nil, fmt.Errorf("singleflight から想定外の型が返りました: %T", v)
	}

	// シード確定レンダリングを実行したのが自分なら、その画像をそのまま使う。
	// 相乗りした側は捕捉済みシードで自分のパネルを改めて生成する。
	if first.owner == myKey && first.result != nil {
		return first.result, nil
	}

	s := first.seed
	renderReq.Seed = &s
	return r.image.Render(ctx, renderReq)
}

// saveImage は画像データを書き出し、パネルの ImageRef となるパスを返します。
func (r *PanelRenderer) saveImage(ctx context.Context, req Request, result *services.RenderResult) (string, error) {
	filename := fmt.Sprintf("chapter_%02d/panel_%d%s", req.ChapterNumber, req.Order, preferredExtension(result.MimeType))
	finalPath, err := urlpath.ResolveOutputPath(r.outputDir, filename)
	if err != nil {
		return "", fmt.Errorf("画像保存パスの生成に失敗しました: %w", err)
	}

	if err := r.writer.Write(ctx, finalPath, bytes.NewReader(result.Data), result.MimeType); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました (path: %s): %w", finalPath, err)
	}

	return finalPath, nil
}

// preferredExtension は MIME タイプから保存時の拡張子を決定します。
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
