package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode"

	"github.com/BigMop13/final-sentence-dis-version/internal/client"
	"github.com/BigMop13/final-sentence-dis-version/internal/config"
	"github.com/BigMop13/final-sentence-dis-version/internal/protocol"
	"github.com/BigMop13/final-sentence-dis-version/internal/race"
	"github.com/BigMop13/final-sentence-dis-version/internal/typing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cobra.CheckErr(config.LoadDotEnv())
	cfg := &config.Racer{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Racer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "racer",
		Short: "Headless player that joins a channel and types the race sentence.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.URL, "url", "u", "ws://localhost:8080/ws", "relay websocket endpoint (env: TYPERACE_URL)")
	fs.StringVarP(&cfg.Channel, "channel", "c", protocol.DefaultChannel, "channel to join (env: TYPERACE_CHANNEL)")
	fs.StringVarP(&cfg.Username, "username", "n", client.DefaultUsername(), "display name (env: TYPERACE_USERNAME)")
	fs.DurationVar(&cfg.Delay, "delay", 150*time.Millisecond, "time between keystrokes (env: TYPERACE_DELAY)")
	fs.Float64Var(&cfg.TypoRate, "typo-rate", 0.05, "chance of a wrong keystroke (env: TYPERACE_TYPO_RATE)")
	fs.BoolVarP(&cfg.Start, "start", "s", false, "start the race once seated (env: TYPERACE_START)")
	fs.BoolVarP(&cfg.Debug, "debug", "d", false, "development logging (env: TYPERACE_DEBUG)")
	config.BindEnv(cmd)

	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func run(ctx context.Context, cfg *config.Racer) error {
	logger, err := config.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := client.DefaultOptions()
	opts.ChannelID = cfg.Channel
	opts.Username = cfg.Username
	opts.Logger = logger
	c := client.New(client.WSDialer{URL: cfg.URL, Logger: logger}, opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		return drive(ctx, c, cfg, logger)
	})
	return g.Wait()
}

// drive polls the client view and plays one keystroke per tick until the race
// is over.
func drive(ctx context.Context, c *client.Client, cfg *config.Racer, log *zap.Logger) error {
	ticker := time.NewTicker(cfg.Delay)
	defer ticker.Stop()

	started := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case u := <-c.Updates():
			switch u.Signal {
			case client.SignalNone, client.SignalMismatch, client.SignalMismatchCleared:
			default:
				log.Info("race event", zap.String("signal", string(u.Signal)), zap.String("notice", u.View.Notice))
			}

		case <-ticker.C:
			v, err := c.View(ctx)
			if err != nil {
				return nil
			}

			switch v.Status {
			case race.StatusWaiting:
				if cfg.Start && !started && v.PlayerID != "" {
					started = true
					if err := c.Start(); err != nil {
						return nil
					}
				}

			case race.StatusPlaying:
				if v.Typing.Phase != typing.PhaseActive {
					break
				}
				want := v.Typing.Target[v.Typing.Index]
				key := typing.Char(want)
				if rand.Float64() < cfg.TypoRate {
					key = typing.Char(typo(want))
				}
				if err := c.Press(key); err != nil {
					return nil
				}

			case race.StatusFinished:
				log.Info("race over",
					zap.String("winner", v.Winner),
					zap.Bool("won", v.Winner == cfg.Username))
				return nil
			}
		}
	}
}

// typo returns a letter that does not match want in any case.
func typo(want rune) rune {
	for {
		r := rune('a' + rand.IntN(26))
		if r != unicode.ToLower(want) {
			return r
		}
	}
}
