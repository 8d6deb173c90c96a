package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chunkrealm/coreserver/internal/config"
	"github.com/chunkrealm/coreserver/internal/server"
)

func main() {
	root := &cobra.Command{Use: "coreserver"}
	root.AddCommand(serveCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var envPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := server.New(cfg, server.OpenAuth{})
			logrus.WithFields(logrus.Fields{
				"bind":  cfg.BindAddress,
				"admin": cfg.AdminListenAddress,
				"worlds": len(cfg.Worlds),
			}).Info("starting coreserver")
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&envPath, "env", ".env", "path to a .env file (optional)")
	return cmd
}
