package cmd

import (
	"fmt"

	"github.com/shouni/go-story-kit/internal/config"
	"github.com/shouni/go-story-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// refineCmd は、既存の本文ファイルを編集指示に沿って書き直すのだ。
var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "既存の章本文を編集指示に沿って書き直すのだ",
	Long: `生成済みの本文ファイルを読み込み、--instructions の編集指示に沿って
全体を書き直した結果を chapter_XX_revised.md として保存するのだ。`,
	Example: "  story-kit refine -f output/chapter_01.md --instructions \"結末をもっと希望のあるものに\"",
	RunE:    refineCommand,
}

func init() {
	refineCmd.Flags().IntVar(&opts.Chapter, "chapter", 1, "書き直す章の番号なのだ。")
	refineCmd.Flags().StringVar(&opts.Instructions, "instructions", "", "編集指示なのだ。")
}

func refineCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecuteRefineText(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("本文の書き直しに失敗したのだ: %w", err)
	}
	return nil
}
