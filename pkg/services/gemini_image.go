package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shouni/go-story-kit/pkg/domain"

	"github.com/patrickmn/go-cache"
	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imggen "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
)

const stageImage = "image"

// GeminiImageClient は gemini-image-kit の ImageGenerator を ImageRenderer として包むアダプタです。
type GeminiImageClient struct {
	gen     imggen.ImageGenerator
	timeout time.Duration
}

// NewGeminiImageClient は依存関係を注入して GeminiImageClient を初期化します。
func NewGeminiImageClient(gen imggen.ImageGenerator, timeout time.Duration) (*GeminiImageClient, error) {
	if gen == nil {
		return nil, fmt.Errorf("gen (ImageGenerator) は必須です")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout は正の値が必須です")
	}
	return &GeminiImageClient{gen: gen, timeout: timeout}, nil
}

// InitializeImageGenerator は画像生成エンジン（gemini-image-kit）を初期化します。
func InitializeImageGenerator(httpClient httpkit.ClientInterface, aiClient gemini.GenerativeModel, model string) (imggen.ImageGenerator, error) {
	imgCache := cache.New(30*time.Minute, 1*time.Hour)
	cacheTTL := 1 * time.Hour

	core, err := imggen.NewGeminiImageCore(httpClient, imgCache, cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗しました: %w", err)
	}

	gen, err := imggen.NewGeminiGenerator(core, aiClient, model)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗しました: %w", err)
	}

	return gen, nil
}

// Render は1枚の画像を生成します。Seed が nil のときはシードを指定せずに呼び出し、
// サービスが採番したシードを結果として返します。
func (c *GeminiImageClient) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	kitReq := imagedom.ImageGenerationRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		SystemPrompt:   req.SystemPrompt,
		AspectRatio:    aspectRatioLabel(req.Width, req.Height),
		Seed:           req.Seed,
	}
	if len(req.ReferenceURLs) > 0 {
		kitReq.ReferenceURL = req.ReferenceURLs[0]
	}

	resp, err := c.gen.GenerateMangaPanel(ctx, kitReq)
	if err != nil {
		return nil, &domain.GenerationError{Stage: stageImage, Err: err}
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, &domain.GenerationError{Stage: stageImage, Err: fmt.Errorf("画像データが返りませんでした")}
	}

	return &RenderResult{
		Data:     resp.Data,
		MimeType: resp.MimeType,
		Seed:     resp.UsedSeed,
	}, nil
}

// aspectRatioLabel はピクセル寸法を Gemini SDK のアスペクト比ラベルに変換します。
func aspectRatioLabel(width, height int) string {
	switch {
	case width == height:
		return "1:1"
	case width > height:
		return "16:9"
	default:
		return "3:4"
	}
}
