// Package driver wires ingestion, classification, aggregation, remediation
// and reporting into a single run.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remedy/internal/aggregate"
	"remedy/internal/config"
	"remedy/internal/diag"
	"remedy/internal/fix"
	"remedy/internal/fsys"
	"remedy/internal/ingest"
	"remedy/internal/observ"
	"remedy/internal/pipeline"
	"remedy/internal/project"
	"remedy/internal/report"
	"remedy/internal/taxonomy"
)

var (
	// ErrNoDiagnostics is returned when a non-empty log yields nothing.
	ErrNoDiagnostics = errors.New("driver: no diagnostics found in log")
	// ErrInvalidRoot is returned when the project root is unusable.
	ErrInvalidRoot = errors.New("driver: invalid project root")
)

// Exit statuses of a run.
const (
	ExitOK       = 0
	ExitFatal    = 1
	ExitFailures = 2
)

// Request describes one run.
type Request struct {
	Log     []byte
	LogPath string
	// Root is the project root. It is validated unless FS is provided.
	Root   string
	Mode   report.Mode
	Config config.Config
	// FS defaults to an OS filesystem rooted at Root.
	FS       fsys.FS
	Logger   *zap.Logger
	Progress pipeline.ProgressSink
	Now      func() time.Time
	// NoJournal disables the msgpack journal of apply runs.
	NoJournal bool
}

// Outcome is what a finished run produced.
type Outcome struct {
	Report      *report.Report
	Result      *fix.Result
	JournalPath string
	ExitCode    int
}

// Session holds the analysed state of a run between analysis and remediation.
type Session struct {
	req     Request
	log     *zap.Logger
	runID   string
	started time.Time
	stamp   string

	timer    *observ.Timer
	tracker  *report.Tracker
	ingested *ingest.Result
	summary  aggregate.Summary
	registry *fix.Registry

	result      *fix.Result
	journalPath string
}

// Run performs a complete run: Analyze, Remediate (unless classifying) and Finish.
func Run(ctx context.Context, req Request) (*Outcome, error) {
	s, err := Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Remediate(ctx, req.Progress); err != nil {
		return nil, err
	}
	return s.Finish(), nil
}

// Analyze ingests, reconciles, classifies and aggregates the log. Nothing is
// written.
func Analyze(ctx context.Context, req Request) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Now == nil {
		req.Now = time.Now
	}
	if req.Mode == "" {
		req.Mode = report.ModeClassify
	}
	log := req.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if req.FS == nil {
		root, err := project.ValidateRoot(req.Root)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
		}
		fs, err := fsys.NewOS(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
		}
		req.Root = fs.Root()
		req.FS = fs
	}

	started := req.Now()
	s := &Session{
		req:     req,
		log:     log,
		runID:   uuid.NewString(),
		started: started,
		stamp:   started.Format(req.Config.Backup.StampFormat),
		timer:   observ.NewTimer(),
		tracker: report.NewTracker(),
	}
	if req.Config.Backup.StampFormat == "" {
		s.stamp = started.Format(fix.DefaultStampFormat)
	}

	idx := s.timer.Begin(observ.PhaseIngest)
	s.ingested = ingest.New(req.Config.Ingest, ingest.WithLogger(log)).Ingest(req.Log)
	s.timer.End(idx, fmt.Sprintf("%d diagnostics, %d lines", len(s.ingested.Diagnostics), s.ingested.Lines))
	s.tracker.RecordIssues(s.ingested.Issues)
	if len(s.ingested.Diagnostics) == 0 && len(bytes.TrimSpace(req.Log)) > 0 {
		return nil, ErrNoDiagnostics
	}

	idx = s.timer.Begin(observ.PhaseReconcile)
	n := ingest.Reconcile(s.ingested.Diagnostics, req.FS)
	s.timer.End(idx, fmt.Sprintf("%d resolved", n))

	idx = s.timer.Begin(observ.PhaseClassify)
	table, err := taxonomy.NewTable(req.Config.Rules)
	if err != nil {
		return nil, err
	}
	stats := taxonomy.NewClassifier(table, req.Config.Classifier.CacheSize, log).ClassifyAll(s.ingested.Diagnostics)
	s.tracker.RecordIssues(stats.Misses)
	s.timer.End(idx, fmt.Sprintf("%d matched, %d fallbacks", stats.Matched, stats.Fallbacks))

	idx = s.timer.Begin(observ.PhaseAggregate)
	s.summary = aggregate.Aggregate(s.ingested.Diagnostics)
	s.timer.End(idx, "")

	s.registry = fix.NewRegistry(req.Config.Remediation)
	log.Debug("log analysed",
		zap.String("run_id", s.runID),
		zap.Int("diagnostics", s.summary.Total),
		zap.Int("parse_errors", len(s.ingested.Issues)),
		zap.Int("misses", len(stats.Misses)))
	return s, nil
}

// Diagnostics returns the classified diagnostics in log order.
func (s *Session) Diagnostics() []*diag.Diagnostic { return s.ingested.Diagnostics }

// Summary returns the aggregate view of the log.
func (s *Session) Summary() aggregate.Summary { return s.summary }

// Targets lists the files remediation would visit, in first-seen order.
// It is empty for classify runs.
func (s *Session) Targets() []string {
	if s.req.Mode == report.ModeClassify {
		return nil
	}
	return s.engine(nil, nil).Targets(s.ingested.Diagnostics)
}

func (s *Session) engine(progress pipeline.ProgressSink, rec fix.Recorder) *fix.Engine {
	cfg := s.req.Config
	return fix.NewEngine(s.req.FS, s.registry, fix.Options{
		DryRun:     s.req.Mode != report.ModeApply,
		Jobs:       cfg.Remediation.Jobs,
		BackupRoot: cfg.Backup.Root,
		Stamp:      s.stamp,
		Now:        s.req.Now,
		Exclude:    cfg.Remediation.Exclude,
		Logger:     s.log,
		Progress:   progress,
		Recorder:   rec,
	})
}
