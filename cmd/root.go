package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-story-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は各サブコマンドで共有される実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Premise, "premise", "p", "", "物語の前提テキストなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.PremiseURL, "premise-url", "u", "", "Webページから前提を取得するURLなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.PromptFile, "prompt-file", "f", "", "入力ファイルのパス（ローカル or gs://...）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物の保存ディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.StoryID, "story-id", "", "物語の識別子なのだ。未指定なら自動採番するのだ。")

	// --- 生成挙動設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Genre, "genre", "g", config.DefaultGenre, "物語のジャンルなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.LengthHint, "length", config.DefaultLengthHint, "章の長さ（short / medium / long）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.AspectRatio, "aspect", config.DefaultAspectRatio, "パネルのアスペクト比（square / widescreen / portrait）なのだ。")

	// --- AIモデル・実行制御 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "テキスト生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "画像生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", config.DefaultRateInterval, "画像生成呼び出しの最小間隔なのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}

	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"story-kit",
		addAppFlags,
		preRunAppE,
		storyCmd,
		planCmd,
		chapterCmd,
		refineCmd,
	)
}
