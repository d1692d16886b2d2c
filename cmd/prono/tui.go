package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/prono/internal/client"
	"github.com/gosuda/prono/internal/config"
	"github.com/gosuda/prono/internal/session"
	"github.com/gosuda/prono/internal/tui"
)

func tuiCmd() *cobra.Command {
	var creds credentialFlags

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive task board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			creds.apply(cfg)
			return runTUI(cmd.Context(), cfg)
		},
	}
	creds.bind(cmd)
	return cmd
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	// The terminal belongs to the UI; logs go to PRONO_LOG_FILE or nowhere.
	logFile, err := setupLogging(cfg.Log, io.Discard)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	feed := tui.NewFeed()
	sess := session.New(client.New(cfg.APIURL, cfg.HTTPTimeout), session.Options{
		WSBaseURL:    cfg.WSURL,
		WriteTimeout: cfg.WriteTimeout,
		Observer:     feed.Observe,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := sess.Run(ctx); runErr != nil && ctx.Err() == nil {
			log.Error().Err(runErr).Msg("session stopped")
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	model := tui.New(ctx, sess, feed, tui.Options{
		Username: cfg.Username,
		Password: cfg.Password,
		NoColor:  cfg.NoColor,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
