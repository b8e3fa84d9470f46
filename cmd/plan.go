package cmd

import (
	"fmt"

	"github.com/shouni/go-story-kit/internal/config"
	"github.com/shouni/go-story-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// planCmd は、前提から物語計画だけを生成して保存するのだ。
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "前提テキストから物語計画（章構成）だけを生成するのだ",
	Long: `物語の前提（自由テキストまたはURL）から章構成とあらすじを含む物語計画を生成し、
plan.json として保存するのだ。本文やパネルの生成はしないのだ。`,
	Example: "  story-kit plan -u https://example.com/article -o output",
	RunE:    planCommand,
}

func planCommand(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	cfg.Options = opts

	if err := pipeline.ExecutePlan(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("物語計画の生成に失敗したのだ: %w", err)
	}
	return nil
}
