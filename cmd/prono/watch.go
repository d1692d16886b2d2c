package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/prono/internal/client"
	"github.com/gosuda/prono/internal/config"
	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/session"
)

var errChannelClosed = errors.New("live channel closed")

func watchCmd() *cobra.Command {
	var (
		creds     credentialFlags
		projectID int64
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a project's live events until interrupted",
		Long: `Log in, join one project's live channel and print every accepted event
as "timestamp sender: text". There is no reconnect; the command exits when the
channel closes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			creds.apply(cfg)
			if cfg.Username == "" || cfg.Password == "" {
				return errors.New("watch: --username and --password (or PRONO_USERNAME/PRONO_PASSWORD) are required")
			}
			return runWatch(cmd.Context(), cfg, projectID, cmd.OutOrStdout())
		},
	}
	creds.bind(cmd)
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id to watch")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, projectID int64, out io.Writer) error {
	logFile, err := setupLogging(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tail := newEventTail(projectID, out)
	sess := session.New(client.New(cfg.APIURL, cfg.HTTPTimeout), session.Options{
		WSBaseURL:    cfg.WSURL,
		WriteTimeout: cfg.WriteTimeout,
		Observer:     tail.observe,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := sess.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	select {
	case <-tail.ready:
	case <-ctx.Done():
		return nil
	}

	if err := sess.SelectProject(ctx, projectID); err != nil {
		return fmt.Errorf("watch: project %d: %w", projectID, err)
	}
	log.Info().Int64("project_id", projectID).Msg("watching")

	select {
	case <-ctx.Done():
		return nil
	case <-tail.closed:
		return fmt.Errorf("watch: %w", errChannelClosed)
	}
}

// eventTail prints events of one project as they are appended. It runs on
// the session loop goroutine.
type eventTail struct {
	projectID int64
	out       io.Writer

	printed   int
	connected bool
	failure   string

	readyOnce  sync.Once
	ready      chan struct{}
	closedOnce sync.Once
	closed     chan struct{}
}

func newEventTail(projectID int64, out io.Writer) *eventTail {
	return &eventTail{
		projectID: projectID,
		out:       out,
		ready:     make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

func (t *eventTail) observe(snap session.Snapshot) {
	if snap.Phase == session.PhaseReady {
		t.readyOnce.Do(func() { close(t.ready) })
	}
	if snap.Failure != "" && snap.Failure != t.failure {
		log.Warn().Str("failure", snap.Failure).Msg("watch: background fetch failed")
	}
	t.failure = snap.Failure

	if snap.Selected == nil || snap.Selected.ID != t.projectID {
		t.printed, t.connected = 0, false
		return
	}

	// The log restarts whenever the channel is reopened.
	if len(snap.Events) < t.printed {
		t.printed = 0
	}
	for _, ev := range snap.Events[t.printed:] {
		fmt.Fprintln(t.out, formatEvent(ev))
	}
	t.printed = len(snap.Events)

	// A failed dial and a dropped channel both end the watch.
	switch snap.Connection {
	case domain.Connecting, domain.Connected:
		t.connected = true
	case domain.Disconnected:
		if t.connected {
			t.closedOnce.Do(func() { close(t.closed) })
		}
	}
}

func formatEvent(ev domain.LiveEvent) string {
	sender := ev.Sender
	if sender == "" {
		sender = "-"
	}
	ts := ev.Timestamp
	if ts == "" {
		ts = "-"
	}
	return fmt.Sprintf("%s %s: %s", ts, sender, ev.Text)
}
