package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := newLogger(cfg)

			mesh, err := newMesh(cfg, logger)
			if err != nil {
				return err
			}

			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			srv := server.New(mesh, func(o *server.Options) {
				o.Addr = cfg.Server.Addr
				o.AllowedOrigins = cfg.Server.AllowedOrigins
				o.RateLimit = cfg.Server.RateLimit
				o.RateBurst = cfg.Server.RateBurst
				o.Logger = logger.WithComponent("server")
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("taskmesh.starting", "provider", cfg.Model.Provider, "addr", cfg.Server.Addr)

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")

	return cmd
}
