package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"remedy/internal/driver"
	"remedy/internal/pipeline"
	"remedy/internal/ui"
)

// remediateWithUI runs the remediation of s behind a progress view on stderr.
func remediateWithUI(ctx context.Context, title string, s *driver.Session) error {
	files := s.Targets()
	if len(files) == 0 {
		return s.Remediate(ctx, nil)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan pipeline.Event, 256)
	errCh := make(chan error, 1)

	go func() {
		err := s.Remediate(ctx, pipeline.ChannelSink{Ch: events})
		close(events)
		errCh <- err
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	final, uiErr := program.Run()
	if ui.Interrupted(final) {
		cancel()
	}
	// the view may quit early; keep the engine from blocking on sends
	go func() {
		for range events {
		}
	}()
	err := <-errCh
	if err != nil {
		return err
	}
	if uiErr != nil {
		logger.Warn("progress view failed", zap.Error(uiErr))
	}
	return nil
}
