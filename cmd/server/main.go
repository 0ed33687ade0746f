package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BigMop13/final-sentence-dis-version/internal/config"
	"github.com/BigMop13/final-sentence-dis-version/internal/httpapi"
	"github.com/BigMop13/final-sentence-dis-version/internal/hub"
	"github.com/BigMop13/final-sentence-dis-version/internal/sentences"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cobra.CheckErr(config.LoadDotEnv())
	cfg := &config.Server{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Server) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Relay server for multiplayer typing races.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: TYPERACE_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: TYPERACE_PORT)")
	fs.DurationVar(&cfg.RaceTimeout, "race-timeout", 2*time.Minute, "end a race with no winner after this long, 0 disables (env: TYPERACE_RACE_TIMEOUT)")
	fs.StringVar(&cfg.Sentences, "sentences", "", "YAML file with target sentences; built-in list when empty (env: TYPERACE_SENTENCES)")
	fs.BoolVarP(&cfg.Debug, "debug", "d", false, "development logging (env: TYPERACE_DEBUG)")
	config.BindEnv(cmd)

	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func serve(ctx context.Context, cfg *config.Server) error {
	logger, err := config.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() {
		// stderr sync fails with EINVAL on some platforms; nothing to do about it
		_ = logger.Sync()
	}()

	pool := sentences.Default()
	if cfg.Sentences != "" {
		if pool, err = sentences.LoadFile(cfg.Sentences); err != nil {
			return err
		}
	}

	h := hub.NewHub(ctx, hub.Config{
		Logger:      logger.Named("hub"),
		RaceTimeout: cfg.RaceTimeout,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(h, pool, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Int("sentences", pool.Len()))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// the hub and its rooms stop with ctx
	return multierr.Combine(
		srv.Shutdown(shutdownCtx),
		ignoreClosed(<-serveErr),
	)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
