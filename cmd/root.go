package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentic-research/gitlore/internal/config"
	"github.com/agentic-research/gitlore/internal/store"
	"github.com/spf13/cobra"
)

var cfgPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
}

var rootCmd = &cobra.Command{
	Use:           "gitlore",
	Short:         "Gitlore: turn commit history into a knowledge tree",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig resolves configuration: the --config flag wins, then the
// default config file if one exists, then built-in defaults.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".agentic-research", "gitlore", "gitlore.yaml")
		if _, statErr := os.Stat(p); statErr == nil {
			return config.Load(p)
		}
	}
	return config.Default(), nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return store.Open(cfg.Storage.DatabasePath)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
