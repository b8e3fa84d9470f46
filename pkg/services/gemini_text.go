package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-story-kit/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

const stageText = "text"

// GeminiTextClient は go-gemini-client を TextGenerator として包むアダプタです。
type GeminiTextClient struct {
	client  gemini.GenerativeModel
	model   string
	timeout time.Duration
}

// NewGeminiTextClient は依存関係を注入して GeminiTextClient を初期化します。
func NewGeminiTextClient(client gemini.GenerativeModel, model string, timeout time.Duration) (*GeminiTextClient, error) {
	if client == nil {
		return nil, fmt.Errorf("client (gemini.GenerativeModel) は必須です")
	}
	if model == "" {
		return nil, fmt.Errorf("model 名は必須です")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout は正の値が必須です")
	}
	return &GeminiTextClient{client: client, model: model, timeout: timeout}, nil
}

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string, temperature float32) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(temperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// Complete は system + user プロンプトを単一のリクエストとして送信します。
// タイムアウトはここで必ず付与され、期限切れは GenerationError に変換されます。
func (c *GeminiTextClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}

	resp, err := c.client.GenerateContent(ctx, c.model, prompt)
	if err != nil {
		return "", &domain.GenerationError{Stage: stageText, Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &domain.GenerationError{Stage: stageText, Err: fmt.Errorf("応答テキストが空です (model: %s)", c.model)}
	}

	return text, nil
}
