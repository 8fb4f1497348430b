package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address (overrides TASKBOARD_ADDR)")
	serveCmd.Flags().StringVar(&staticFlag, "static", "", "directory with the built board client (overrides TASKBOARD_STATIC_DIR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addrFlag != "" {
		cfg.HTTP.Addr = addrFlag
	}
	if staticFlag != "" {
		cfg.HTTP.StaticDir = staticFlag
	}

	logger := cfg.Log.NewLogger()
	logger.Info("taskboard starting", slog.String("driver", cfg.Storage.Driver))

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	srv := server.New(be.board, server.Options{
		StaticDir:    cfg.HTTP.StaticDir,
		AllowOrigins: cfg.HTTP.AllowOrigins,
		Verifier:     be.tokens,
		RequireToken: cfg.Auth.RequireToken,
		AuthRPS:      cfg.RateLimit.AuthRPS,
		AuthBurst:    cfg.RateLimit.AuthBurst,
	}, logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			return err
		}
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
