package cmd

import (
	"fmt"

	"github.com/shouni/go-story-kit/internal/config"
	"github.com/shouni/go-story-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// chapterCmd は、計画を経由せず自由プロンプトから単章を生成するのだ。
var chapterCmd = &cobra.Command{
	Use:   "chapter",
	Short: "自由プロンプトのファイルから単章の本文を生成するのだ",
	Long: `物語計画を経由せず、プロンプトファイルの内容から1章分の本文を直接生成して
chapter_XX.md として保存するのだ。--chapter で章番号を指定できるのだ。`,
	Example: "  story-kit chapter -f prompt.txt --chapter 2 -o output",
	RunE:    chapterCommand,
}

func init() {
	chapterCmd.Flags().IntVar(&opts.Chapter, "chapter", 1, "生成する章の番号なのだ。")
}

func chapterCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecuteChapter(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("章本文の生成に失敗したのだ: %w", err)
	}
	return nil
}
