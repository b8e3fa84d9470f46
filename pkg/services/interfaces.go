// Package services は、パイプラインが依存する外部生成サービスの境界を定義します。
// テキスト生成・画像生成はどちらもステートレスな単発呼び出しで、
// 呼び出し間の一貫性はすべて呼び出し側（ConsistencyState）が担います。
package services

import "context"

// TextGenerator はテキスト生成サービスへの単発呼び出しの契約です。
// 失敗時（通信エラー・タイムアウト・空応答）は *domain.GenerationError を返します。
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RenderRequest は1枚の画像生成要求です。
// Seed が nil の場合はサービス側がシードを採番し、RenderResult.Seed で返します。
type RenderRequest struct {
	Prompt         string
	NegativePrompt string
	SystemPrompt   string
	Width          int
	Height         int
	Seed           *int64
	ReferenceURLs  []string
}

// RenderResult は生成された画像データと実際に使用されたシードです。
type RenderResult struct {
	Data     []byte
	MimeType string
	Seed     int64
}

// ImageRenderer は画像生成サービスへの単発呼び出しの契約です。
// 画像データが返らなかった場合も *domain.GenerationError になります。
type ImageRenderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)
}
