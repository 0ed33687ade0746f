package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvPrefix = "TYPERACE"

type Server struct {
	Bind        string
	Port        int
	Sentences   string
	RaceTimeout time.Duration
	Debug       bool
}

func (c *Server) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.RaceTimeout < 0 {
		return fmt.Errorf("race timeout must not be negative: %v", c.RaceTimeout)
	}
	return nil
}

func (c *Server) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

type Racer struct {
	URL      string
	Channel  string
	Username string
	Delay    time.Duration
	TypoRate float64
	Start    bool
	Debug    bool
}

func (c *Racer) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid url scheme %q (want ws or wss)", u.Scheme)
	}
	if c.Delay <= 0 {
		return errors.New("delay must be positive")
	}
	if c.TypoRate < 0 || c.TypoRate >= 1 {
		return fmt.Errorf("typo rate must be in [0, 1): %v", c.TypoRate)
	}
	return nil
}

// LoadDotEnv loads a .env file from the working directory when present.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// BindEnv lets every flag of cmd be set from PREFIX_FLAG_NAME. Flags given on
// the command line win over the environment.
func BindEnv(cmd *cobra.Command) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
