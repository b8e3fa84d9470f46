package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-story-kit/internal/config"
	"github.com/shouni/go-story-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// storyCmd は、前提テキストから最終成果物までの全工程を一括実行するのだ！
var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "前提テキストから計画・本文・パネル画像・成果物までを一括生成するのだ！",
	Long: `物語の前提（自由テキストまたはURL）から、物語計画の生成、章本文の並列生成、
設定台帳の抽出、パネル画像の生成、成果物のパブリッシュまでを一括で実行するのだ。`,
	Example: "  story-kit story -p \"勇者が迷い猫と出会う物語\" -g fantasy -o output",
	RunE:    storyCommand,
}

// storyCommand は、story サブコマンドの実行ロジック本体なのだ。
func storyCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("物語の一括生成を開始するのだ！",
		"genre", cfg.Options.Genre,
		"output_dir", cfg.Options.OutputDir,
		"model", cfg.Options.AIModel,
		"image_model", cfg.Options.ImageModel)

	if err := pipeline.ExecuteStory(ctx, cfg); err != nil {
		return fmt.Errorf("物語の一括生成に失敗したのだ: %w", err)
	}

	slog.Info("完了なのだ！最高の物語が完成したのだよ！")
	return nil
}
