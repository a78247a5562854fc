package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/go-pocket-bpe/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the PocketBPE HTTP server over a trained model",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			tok, err := loadModel(cfg)
			if err != nil {
				return err
			}

			srv := server.New(cfg, tok).
				WithShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeout) * time.Second)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	return cmd
}
