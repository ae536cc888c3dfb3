package cmd

import (
	"fmt"

	"github.com/agentic-research/gitlore/internal/gh"
	"github.com/spf13/cobra"
)

var diffsNoPatch bool

func init() {
	diffsCmd.Flags().BoolVar(&diffsNoPatch, "no-patch", false, "Omit patch bodies, keep per-file stats only")
	rootCmd.AddCommand(diffsCmd)
}

var diffsCmd = &cobra.Command{
	Use:   "diffs [owner/repo] [sha...]",
	Short: "Print commit diffs in LLM-readable form",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := args[0]
		shas := args[1:]
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		source := gh.New(ctx, cfg.GitHubToken)
		diffs, err := source.CommitDiffs(ctx, repo, shas, !diffsNoPatch)
		if err != nil {
			return err
		}
		fmt.Println(diffs)
		return nil
	},
}
