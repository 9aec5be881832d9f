// Command gatewayd serves the simulated wallet gateway over HTTP so clients
// can run in Live mode against it.
//
// Issued verification codes are written to stderr in place of email.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/goWallet/gateway/gatewayserver"
	"github.com/MrEthical07/goWallet/gateway/simulated"
	"github.com/MrEthical07/goWallet/internal/envconfig"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
	if err := run(); err != nil {
		slog.Error("gatewayd stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	settings, err := envconfig.Load(".")
	if err != nil {
		return err
	}
	cfg, err := settings.ClientConfig()
	if err != nil {
		return err
	}
	logger := settings.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, release, err := envconfig.ConnectRedis(ctx, settings.RedisAddr)
	if err != nil {
		return err
	}
	defer release()

	sim, err := simulated.New(rdb, cfg.Simulator, simulated.Options{
		Logger: logger,
		Deliver: func(email, code string) {
			fmt.Fprintf(os.Stderr, "outbox: verification code for %s: %s\n", email, code)
		},
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: settings.ListenAddr,
		Handler: gatewayserver.NewRouter(sim, gatewayserver.Options{
			Logger:         logger,
			AllowedOrigins: settings.Origins(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", slog.String("addr", settings.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}
