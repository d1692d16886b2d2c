package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/prono/internal/config"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "prono",
		Short:         "Real-time collaborative task board client and reference server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging initializes the global zerolog logger. The returned closer
// releases the log file, if one was opened.
func setupLogging(cfg config.LogConfig, out io.Writer) (io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var closer io.Closer = io.NopCloser(nil)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	if cfg.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
	return closer, nil
}

// credentialFlags binds --username/--password, falling back to the
// PRONO_USERNAME/PRONO_PASSWORD values already in cfg.
type credentialFlags struct {
	username string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.username, "username", "", "login username (env PRONO_USERNAME)")
	cmd.Flags().StringVar(&c.password, "password", "", "login password (env PRONO_PASSWORD)")
}

func (c *credentialFlags) apply(cfg *config.Config) {
	if c.username != "" {
		cfg.Username = c.username
	}
	if c.password != "" {
		cfg.Password = c.password
	}
}
