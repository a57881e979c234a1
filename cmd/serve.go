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

	"github.com/briannafare/local-authority-snapshot-sub000/internal/api"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
	cacheSweepEvery = time.Hour
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAudit(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		handler := api.New(env.Store, env.Service,
			api.WithDashboardSecret(cfg.Server.DashboardSecret),
			api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		).Routes()

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go sweepCache(ctx, env.Store, cacheSweepEvery)

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server error")
		}

		// Let in-flight audits reach a terminal state before the store closes.
		zap.L().Info("waiting for running audits")
		env.Service.Wait()
		return nil
	},
}

// sweepCache deletes expired cached pages every interval until ctx ends.
func sweepCache(ctx context.Context, st store.Store, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := st.DeleteExpiredPages(ctx)
			if err != nil {
				zap.L().Warn("page cache sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("page cache swept", zap.Int("deleted", n))
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
