// Package workflow は、物語生成パイプラインの各工程を担う Runner 群を
// 構築・管理します。依存サービスの初期化はここに集約されます。
package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-story-kit/pkg/prompts"
	"github.com/shouni/go-story-kit/pkg/services"
	"github.com/shouni/go-story-kit/pkg/store"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

const defaultGeminiTemperature = float32(0.7)

// ManagerArgs は Manager の生成に必要な依存関係の集合です。
type ManagerArgs struct {
	Config     Config
	HTTPClient httpkit.ClientInterface
	Writer     remoteio.OutputWriter
	Store      store.StoryStore

	// TextPrompt / ImagePrompt は nil の場合に新規作成されます。
	TextPrompt  *prompts.TextPromptBuilder
	ImagePrompt *prompts.ImagePromptBuilder
}

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
type Manager struct {
	cfg         Config
	httpClient  httpkit.ClientInterface
	writer      remoteio.OutputWriter
	store       store.StoryStore
	aiClient    gemini.GenerativeModel
	textClient  services.TextGenerator
	imageClient services.ImageRenderer
	textPrompt  *prompts.TextPromptBuilder
	imagePrompt *prompts.ImagePromptBuilder
}

// New は、設定と依存関係を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.HTTPClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if args.Writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}
	if args.Store == nil {
		return nil, fmt.Errorf("StoryStore は必須です")
	}

	aiClient, err := services.InitializeAIClient(ctx, args.Config.GeminiAPIKey, defaultGeminiTemperature)
	if err != nil {
		return nil, err
	}

	textClient, err := services.NewGeminiTextClient(aiClient, args.Config.GeminiModel, args.Config.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("テキスト生成クライアントの初期化に失敗しました: %w", err)
	}

	imageGen, err := services.InitializeImageGenerator(args.HTTPClient, aiClient, args.Config.ImageModel)
	if err != nil {
		return nil, fmt.Errorf("画像生成エンジンの初期化に失敗しました: %w", err)
	}
	imageClient, err := services.NewGeminiImageClient(imageGen, args.Config.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("画像生成クライアントの初期化に失敗しました: %w", err)
	}

	textPrompt, err := initializeTextPrompt(args.TextPrompt)
	if err != nil {
		return nil, err
	}
	imagePrompt := initializeImagePrompt(args.ImagePrompt, args.Config.StyleSuffix)

	return &Manager{
		cfg:         args.Config,
		httpClient:  args.HTTPClient,
		writer:      args.Writer,
		store:       args.Store,
		aiClient:    aiClient,
		textClient:  textClient,
		imageClient: imageClient,
		textPrompt:  textPrompt,
		imagePrompt: imagePrompt,
	}, nil
}

// initializeTextPrompt は TextPromptBuilder を初期化します。
// 引数として既存のビルダーが渡された場合はそれを返し、nil の場合は新規作成します。
func initializeTextPrompt(pb *prompts.TextPromptBuilder) (*prompts.TextPromptBuilder, error) {
	if pb != nil {
		return pb, nil
	}

	created, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}
	return created, nil
}

// initializeImagePrompt は ImagePromptBuilder を初期化します。
func initializeImagePrompt(pb *prompts.ImagePromptBuilder, styleSuffix string) *prompts.ImagePromptBuilder {
	if pb != nil {
		return pb
	}
	return prompts.NewImagePromptBuilder(styleSuffix)
}
