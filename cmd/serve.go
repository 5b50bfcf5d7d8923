package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/api"
	"github.com/sells-group/similar-cli/internal/config"
)

var (
	servePort    int
	serveScoring scoringFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		scoring, err := resolveScoring(cfg, serveScoring)
		if err != nil {
			return err
		}

		e, err := initEnv(ctx, "serve", scoring)
		if err != nil {
			return err
		}
		defer e.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(e, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server))
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveScoring.register(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func buildRouter(e *env, sc config.ServerConfig) http.Handler {
	h := api.NewHandler(e.Engine, e.Batch, api.Options{
		LookupTimeout:     time.Duration(sc.LookupTimeoutSecs) * time.Second,
		MaxBatchSize:      sc.MaxBatchSize,
		RequestsPerMinute: sc.RequestsPerMinute,
		CORSOrigins:       sc.CORSOrigins,
		Health:            e.Ping,
	})
	return h.Router()
}

func shutdownTimeout(sc config.ServerConfig) time.Duration {
	if sc.ShutdownTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(sc.ShutdownTimeoutSec) * time.Second
}
