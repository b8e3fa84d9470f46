package config

import (
	"time"

	"github.com/shouni/go-story-kit/pkg/workflow"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel        = "gemini-3-flash-preview"
	DefaultImageModel   = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRateInterval = 10 * time.Second
	DefaultOutputDir    = "output" // 成果物のデフォルト保存先なのだ
	DefaultGenre        = ""
	DefaultLengthHint   = "medium"
	DefaultAspectRatio  = "square"
	DefaultStyleSuffix  = "storybook illustration style, soft watercolor textures, warm palette, clean composition, consistent character design, cinematic lighting, high resolution"
)

// Config はアプリケーション全体の環境設定（APIキーやモデル設定）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	StyleSuffix      string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		StyleSuffix:      envutil.GetEnv("IMAGE_PROMPT_SUFFIX", DefaultStyleSuffix),
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	Premise    string // --premise: 物語の前提テキスト
	PremiseURL string // --premise-url: Webページから前提を取得するURL
	PromptFile string // --prompt-file: 章生成用の自由プロンプトファイル

	// 生成結果の出力設定
	OutputDir string // --output-dir: 保存先（ローカル or gs://...）
	StoryID   string // --story-id

	// 生成挙動設定
	Genre       string // --genre
	LengthHint  string // --length: short / medium / long
	AspectRatio string // --aspect: square / widescreen / portrait
	Chapter     int    // --chapter: 単章生成・リファイン時の章番号

	// リファイン関連
	Instructions string // --instructions: 編集指示

	// AI挙動設定
	AIModel    string // --model: テキスト生成用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル

	// 実行制御
	HTTPTimeout  time.Duration // --http-timeout
	RateInterval time.Duration // --rate-interval
}

// WorkflowConfig は環境設定と CLI オプションを合成して wf 層の Config を作るのだ。
func (c *Config) WorkflowConfig() workflow.Config {
	wf := workflow.DefaultConfig()
	wf.GeminiAPIKey = c.GeminiAPIKey
	wf.GeminiModel = c.GeminiModel
	wf.ImageModel = c.GeminiImageModel
	wf.StyleSuffix = c.StyleSuffix

	if c.Options.AIModel != "" {
		wf.GeminiModel = c.Options.AIModel
	}
	if c.Options.ImageModel != "" {
		wf.ImageModel = c.Options.ImageModel
	}

	wf.Genre = c.Options.Genre
	wf.LengthHint = c.Options.LengthHint
	wf.AspectRatio = c.Options.AspectRatio
	wf.OutputDir = c.Options.OutputDir
	if c.Options.RateInterval > 0 {
		wf.RateInterval = c.Options.RateInterval
	}
	return wf
}
