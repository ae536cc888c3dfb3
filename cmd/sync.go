package cmd

import (
	"errors"
	"fmt"

	"github.com/agentic-research/gitlore/internal/gh"
	"github.com/agentic-research/gitlore/internal/window"
	"github.com/spf13/cobra"
)

var (
	syncBranch  string
	syncMax     int
	syncAdvance bool
)

func init() {
	syncCmd.Flags().StringVarP(&syncBranch, "branch", "b", "", "Branch to sync (default from config)")
	syncCmd.Flags().IntVarP(&syncMax, "max", "n", 0, "Maximum commits to fetch (default from config)")
	syncCmd.Flags().BoolVar(&syncAdvance, "advance", false, "Advance the sync cursor to the newest listed commit")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [owner/repo]",
	Short: "List commits newer than the last synced one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := args[0]
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if syncBranch == "" {
			syncBranch = cfg.Sync.Branch
		}
		if syncMax <= 0 {
			syncMax = cfg.Sync.MaxCommits
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ctx := cmd.Context()
		cursor, err := st.GetSyncState(ctx, repo)
		if err != nil {
			return err
		}

		source := gh.New(ctx, cfg.GitHubToken)
		commits, err := source.FetchCommits(ctx, repo, syncBranch, syncMax)
		if err != nil {
			return err
		}

		win, err := window.Resolve(repo, cursor, commits)
		if err != nil {
			var notFound *window.CursorNotFoundError
			if errors.As(err, &notFound) {
				return fmt.Errorf("%w; raise --max or reset the cursor", err)
			}
			return err
		}

		if win.IsFirstSync {
			fmt.Printf("First sync of %s@%s: %d commits\n", repo, syncBranch, len(win.Commits))
		} else {
			fmt.Printf("%d new commits on %s@%s since %s\n",
				len(win.Commits), repo, syncBranch, cursor.LastCommitHash)
		}
		for _, c := range win.Commits {
			fmt.Printf("  %s  %s\n", c.ID, c.Description)
		}

		if syncAdvance && len(win.Commits) > 0 {
			if err := st.UpsertSyncState(ctx, repo, win.Commits[0].ID); err != nil {
				return err
			}
			fmt.Printf("Cursor advanced to %s\n", win.Commits[0].ID)
		}
		return nil
	},
}
