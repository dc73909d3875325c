// Package app wires configuration, the HTTP client and the terminal UI
// together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyaoi/mdupload/internal/api"
	"github.com/kyaoi/mdupload/internal/config"
	"github.com/kyaoi/mdupload/internal/drop"
	"github.com/kyaoi/mdupload/internal/ui"
	"github.com/kyaoi/mdupload/internal/upload"
)

// cleanupGrace is how long shutdown waits for in-flight cleanup calls beyond
// the configured cleanup delay.
const cleanupGrace = 2 * time.Second

// Run executes the Bubble Tea program on target.
func Run(ctx context.Context, cfg config.Config, target string) error {
	state, err := LoadInitialState(target)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	server, client, err := newClients(cfg, logger)
	if err != nil {
		return err
	}
	if state.Loader != nil {
		logger.Info("browsing", "root", state.Loader.Root(), "preselected", len(state.Preselected))
	}
	state.Context = ctx
	state.Health = healthCheck(server, cfg.HealthTimeout)

	if cfg.DropDir != "" {
		w, err := drop.Watch(cfg.DropDir, drop.DefaultSettle)
		if err != nil {
			return err
		}
		defer w.Close()
		watchCtx, stop := context.WithCancel(ctx)
		defer stop()
		go logWatchErrors(watchCtx, logger, w.Errors())
		state.Drops = w.Files()
		logger.Info("watching drop folder", "dir", cfg.DropDir)
	}

	program := tea.NewProgram(
		ui.NewModel(client, state),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	_, err = program.Run()
	waitForCleanup(client, cfg.CleanupDelay+cleanupGrace, logger)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newClients(cfg config.Config, logger *slog.Logger) (*api.Client, *upload.Client, error) {
	server, err := api.New(cfg.Server,
		api.WithTimeout(cfg.Timeout),
		api.WithOutputDir(cfg.OutputDir),
	)
	if err != nil {
		return nil, nil, err
	}
	client := upload.NewClient(server, server,
		upload.WithCleanupDelay(cfg.CleanupDelay),
		upload.WithLogger(logger),
	)
	return server, client, nil
}

// newLogger logs to cfg.LogFile when set, otherwise to fallback. A nil
// fallback discards everything.
func newLogger(cfg config.Config, fallback io.Writer) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return slog.New(slog.NewTextHandler(f, opts)), func() { _ = f.Close() }, nil
	}
	if fallback == nil {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	return slog.New(slog.NewTextHandler(fallback, opts)), func() {}, nil
}

func healthCheck(server *api.Client, timeout time.Duration) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		h, err := server.Health(ctx)
		if err != nil {
			return "", err
		}
		return describeHealth(h), nil
	}
}

func describeHealth(h api.Health) string {
	switch {
	case h.App != "" && h.Version != "":
		return fmt.Sprintf("%s %s (%s)", h.App, h.Version, h.Status)
	case h.App != "":
		return fmt.Sprintf("%s (%s)", h.App, h.Status)
	default:
		return h.Status
	}
}

func logWatchErrors(ctx context.Context, logger *slog.Logger, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			logger.Warn("drop folder watch error", "error", err)
		}
	}
}

func waitForCleanup(client *upload.Client, limit time.Duration, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		client.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		logger.Warn("gave up waiting for cleanup calls", "after", limit)
	}
}
