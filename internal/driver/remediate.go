package driver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"remedy/internal/diag"
	"remedy/internal/observ"
	"remedy/internal/pipeline"
	"remedy/internal/report"
)

// Remediate applies (or, for dry runs, simulates) every remedy for the
// session's diagnostics. It is a no-op for classify runs and must be called
// at most once.
func (s *Session) Remediate(ctx context.Context, progress pipeline.ProgressSink) error {
	if s.req.Mode == report.ModeClassify || s.result != nil {
		return nil
	}
	idx := s.timer.Begin(observ.PhaseRemediate)
	res, err := s.engine(progress, s.tracker).Run(ctx, s.ingested.Diagnostics)
	if err != nil {
		s.timer.End(idx, "aborted")
		return fmt.Errorf("driver: remediate: %w", err)
	}
	s.result = res
	s.timer.End(idx, fmt.Sprintf("%d files, %d applied", len(res.Files), res.Applied))

	if s.req.Mode == report.ModeApply && !s.req.NoJournal {
		s.writeJournal()
	}
	return nil
}

func (s *Session) writeJournal() {
	records := s.tracker.Modifications()
	if len(records) == 0 {
		return
	}
	name := report.JournalName(s.req.Config.Backup.Root, s.stamp)
	j := &report.Journal{
		RunID:   s.runID,
		Root:    s.req.Root,
		Started: s.started,
		Records: records,
	}
	if err := report.WriteJournal(s.req.FS, name, j); err != nil {
		s.log.Warn("journal not written", zap.String("path", name), zap.Error(err))
		s.tracker.RecordIssue(diag.Issue{Kind: diag.IOError, Path: name, Reason: err.Error()})
		return
	}
	s.journalPath = name
}

// Finish builds the report and the exit status.
func (s *Session) Finish() *Outcome {
	idx := s.timer.Begin(observ.PhaseReport)
	partial := s.result != nil && s.result.Partial
	in := report.Input{
		RunID:      s.runID,
		Mode:       s.req.Mode,
		Root:       s.req.Root,
		LogPath:    s.req.LogPath,
		Journal:    s.journalPath,
		StartedAt:  s.started,
		FinishedAt: s.req.Now(),
		Summary:    s.summary,
		Tracker:    s.tracker,
		Partial:    partial,
		Remediable: s.registry.Remediable,
	}
	s.timer.End(idx, "")
	timings := s.timer.Report()
	in.Timings = &timings
	rep := report.Build(in)

	out := &Outcome{
		Report:      rep,
		Result:      s.result,
		JournalPath: s.journalPath,
		ExitCode:    ExitOK,
	}
	if rep.HasFailures() {
		out.ExitCode = ExitFailures
	}
	s.log.Info("run finished",
		zap.String("run_id", s.runID),
		zap.String("mode", string(s.req.Mode)),
		zap.Int("diagnostics", rep.Totals.Diagnostics),
		zap.Int("modified_files", rep.Totals.ModifiedFiles),
		zap.Int("failures", rep.Totals.Failures),
		zap.Bool("partial", partial),
		zap.Int("exit_code", out.ExitCode))
	return out
}

// Timer exposes the phase timings, e.g. for --timings output.
func (s *Session) Timer() *observ.Timer { return s.timer }
