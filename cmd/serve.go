package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentic-research/gitlore/internal/gh"
	"github.com/agentic-research/gitlore/internal/server"
	"github.com/agentic-research/gitlore/internal/topics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gitlore HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var logger *zap.Logger
		if cfg.Debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		source := gh.New(ctx, cfg.GitHubToken)
		generator := topics.New(cfg.OpenAIKey, cfg.OpenAI.Model)
		srv := server.NewServer(st, source, generator, cfg, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	},
}
