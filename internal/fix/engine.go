package fix

// todo: интеграция с git: флаг --staged-only (только файлы из git diff --name-only --staged).

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"remedy/internal/diag"
	"remedy/internal/fsys"
	"remedy/internal/pipeline"
)

// DefaultStampFormat names backups by run start time.
const DefaultStampFormat = "20060102_150405"

// Recorder receives every per-item outcome of a run. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordModification(diag.ModificationRecord)
	RecordIssue(diag.Issue)
	RecordSkip(diag.Skip)
	RecordState(path string, state diag.FileState)
}

// Options configures an Engine.
type Options struct {
	DryRun bool
	Jobs   int
	// BackupRoot is relative to the project root.
	BackupRoot string
	// Stamp is embedded in backup names; defaults to Now in DefaultStampFormat.
	Stamp    string
	Now      func() time.Time
	Exclude  []string
	Logger   *zap.Logger
	Progress pipeline.ProgressSink
	Recorder Recorder
}

// FileOutcome summarises what happened to one target file.
type FileOutcome struct {
	Path       string
	State      diag.FileState
	Applied    int
	BackupPath string
	Cancelled  bool
}

// Result aggregates a run.
type Result struct {
	Files   []FileOutcome
	Applied int
	// Partial is set when cancellation abandoned at least one file.
	Partial bool
}

type item struct {
	d      *diag.Diagnostic
	remedy Remedy
	order  int
}

type target struct {
	path  string
	items []item
}

// Engine applies remedies to files. One goroutine owns a file from read to
// write; files are processed in parallel.
type Engine struct {
	fs   fsys.FS
	reg  *Registry
	opts Options
	log  *zap.Logger
}

func NewEngine(fs fsys.FS, reg *Registry, opts Options) *Engine {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Stamp == "" {
		opts.Stamp = opts.Now().Format(DefaultStampFormat)
	}
	if opts.Recorder == nil {
		opts.Recorder = discard{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{fs: fs, reg: reg, opts: opts, log: log}
}

// Targets returns the files a run over diags would visit, in first-seen order.
func (e *Engine) Targets(diags []*diag.Diagnostic) []string {
	targets := e.plan(diags, false)
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.path)
	}
	return out
}

// plan groups remediable diagnostics by target file in first-seen order.
// With record set, diagnostics that cannot be targeted are recorded as skipped.
func (e *Engine) plan(diags []*diag.Diagnostic, record bool) []*target {
	var targets []*target
	byPath := make(map[string]*target)
	order := 0
	for _, d := range diags {
		remedies := e.reg.For(d.Category())
		if len(remedies) == 0 {
			continue
		}
		skip := func(reason string) {
			if !record {
				return
			}
			e.opts.Recorder.RecordSkip(diag.Skip{Path: d.SourcePath, Line: d.Line, RuleID: remedies[0].ID, Reason: reason})
		}
		if !d.Located() {
			skip("no source location")
			continue
		}
		rel, err := e.fs.Rel(d.SourcePath)
		if err != nil {
			skip("outside project root")
			continue
		}
		if e.opts.BackupRoot != "" && fsys.Within(rel, e.opts.BackupRoot) {
			skip("inside backup directory")
			continue
		}
		if pat, ok := e.excluded(rel); ok {
			skip(fmt.Sprintf("excluded by %q", pat))
			continue
		}
		t, ok := byPath[rel]
		if !ok {
			t = &target{path: rel}
			byPath[rel] = t
			targets = append(targets, t)
		}
		for _, rem := range remedies {
			t.items = append(t.items, item{d: d, remedy: rem, order: order})
			order++
		}
	}
	return targets
}

func (e *Engine) excluded(rel string) (string, bool) {
	for _, pat := range e.opts.Exclude {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return pat, true
		}
	}
	return "", false
}

// Run remediates every planned file. Per-file problems are recorded, not
// returned; the error is reserved for failures of the run itself.
func (e *Engine) Run(ctx context.Context, diags []*diag.Diagnostic) (*Result, error) {
	if e.fs == nil || e.reg == nil {
		return nil, errors.New("fix: engine needs a filesystem and a registry")
	}
	targets := e.plan(diags, true)
	res := &Result{Files: make([]FileOutcome, len(targets))}
	if len(targets) == 0 {
		return res, nil
	}
	for _, t := range targets {
		e.emit(pipeline.Event{File: t.path, Status: pipeline.StatusQueued})
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.opts.Jobs, len(targets)))

	for i, t := range targets {
		g.Go(func(i int, t *target) func() error {
			return func() error {
				// Проверка отмены
				select {
				case <-gctx.Done():
					res.Files[i] = e.abandon(t)
					return nil
				default:
				}
				out := e.processFile(t)
				mu.Lock()
				res.Files[i] = out
				res.Applied += out.Applied
				mu.Unlock()
				return nil
			}
		}(i, t))
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, f := range res.Files {
		if f.Cancelled {
			res.Partial = true
			break
		}
	}
	sort.SliceStable(res.Files, func(i, j int) bool {
		return res.Files[i].Path < res.Files[j].Path
	})
	e.log.Debug("remediation finished",
		zap.Int("files", len(res.Files)),
		zap.Int("applied", res.Applied),
		zap.Bool("dry_run", e.opts.DryRun),
		zap.Bool("partial", res.Partial))
	return res, nil
}

func (e *Engine) abandon(t *target) FileOutcome {
	e.opts.Recorder.RecordSkip(diag.Skip{Path: t.path, Reason: "cancelled"})
	e.opts.Recorder.RecordState(t.path, diag.Unmodified)
	e.emit(pipeline.Event{File: t.path, Status: pipeline.StatusSkipped})
	return FileOutcome{Path: t.path, State: diag.Unmodified, Cancelled: true}
}

type applied struct {
	d      *diag.Diagnostic
	remedy Remedy
}

// processFile reads the file once, threads the buffer through every remedy
// (line-local first, structural last), backs up before the first change and
// writes once at the end.
func (e *Engine) processFile(t *target) FileOutcome {
	start := time.Now()
	out := FileOutcome{Path: t.path, State: diag.Unmodified}
	defer func() {
		e.opts.Recorder.RecordState(t.path, out.State)
	}()
	log := e.log.With(zap.String("file", t.path))

	e.emit(pipeline.Event{File: t.path, Stage: pipeline.StageRead, Status: pipeline.StatusWorking})
	orig, err := e.fs.ReadFile(t.path)
	if err != nil {
		e.fail(diag.IOError, t.path, 0, fmt.Sprintf("read: %v", err))
		e.emit(pipeline.Event{File: t.path, Stage: pipeline.StageRead, Status: pipeline.StatusError, Err: err})
		return out
	}

	items := append([]item(nil), t.items...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].remedy.Kind != items[j].remedy.Kind {
			return items[i].remedy.Kind < items[j].remedy.Kind
		}
		return items[i].order < items[j].order
	})

	e.emit(pipeline.Event{File: t.path, Stage: pipeline.StageTransform, Status: pipeline.StatusWorking})
	buf := orig
	var done []applied
	for _, it := range items {
		d, rem := it.d, it.remedy
		next, changed, err := rem.Apply(buf, d)
		switch {
		case errors.Is(err, ErrNotApplicable):
			e.opts.Recorder.RecordSkip(diag.Skip{Path: t.path, Line: d.Line, RuleID: rem.ID, Reason: err.Error()})
			continue
		case err != nil:
			e.fail(diag.TransformMismatch, t.path, d.Line, fmt.Sprintf("%s: %v", rem.ID, err))
			continue
		case !changed:
			e.opts.Recorder.RecordSkip(diag.Skip{Path: t.path, Line: d.Line, RuleID: rem.ID, Reason: "already applied"})
			continue
		case rem.Kind == LineLocal && countLines(next) != countLines(buf):
			e.fail(diag.TransformMismatch, t.path, d.Line, fmt.Sprintf("%s: line-local edit changed the line count", rem.ID))
			continue
		}

		if !e.opts.DryRun && out.State == diag.Unmodified {
			e.emit(pipeline.Event{File: t.path, Stage: pipeline.StageBackup, Status: pipeline.StatusWorking})
			backup, err := writeBackup(e.fs, e.opts.BackupRoot, t.path, e.opts.Stamp, orig)
			if err != nil {
				e.fail(diag.BackupFailure, t.path, d.Line, err.Error())
				e.emit(pipeline.Event{File: t.path, Stage: pipeline.StageBackup, Status: pipeline.StatusError, Err: err})
				return out
			}
			_ = out.State.Advance(diag.BackedUp)
			out.BackupPath = backup
			log.Debug("backup written", zap.String("backup", backup))
		}
		buf = next
		done = append(done, applied{d: d, remedy: rem})
	}

	if len(done) == 0 {
		e.emit(pipeline.Event{File: t.path, Status: pipeline.StatusSkipped, Elapsed: time.Since(start)})
		return out
	}

	if !e.opts.DryRun {
		e.emit(pipeline.Event{File: t.path, Stage: pipeline.StageWrite, Status: pipeline.StatusWorking})
		if err := e.fs.WriteFile(t.path, buf); err != nil {
			e.fail(diag.IOError, t.path, 0, fmt.Sprintf("write: %v", err))
			e.emit(pipeline.Event{File: t.path, Stage: pipeline.StageWrite, Status: pipeline.StatusError, Err: err})
			return out
		}
		_ = out.State.Advance(diag.Modified)
	}

	now := e.opts.Now()
	for _, a := range done {
		e.opts.Recorder.RecordModification(diag.ModificationRecord{
			Path:       t.path,
			BackupPath: out.BackupPath,
			RuleID:     a.remedy.ID,
			Line:       a.d.Line,
			Timestamp:  now,
			DryRun:     e.opts.DryRun,
		})
	}
	out.Applied = len(done)
	log.Debug("file remediated", zap.Int("applied", out.Applied), zap.Bool("dry_run", e.opts.DryRun))
	e.emit(pipeline.Event{File: t.path, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return out
}

func (e *Engine) fail(kind diag.IssueKind, path string, line uint32, reason string) {
	e.log.Warn("remediation issue",
		zap.Stringer("kind", kind),
		zap.String("file", path),
		zap.Uint32("line", line),
		zap.String("reason", reason))
	e.opts.Recorder.RecordIssue(diag.Issue{Kind: kind, Path: path, Line: int(line), Reason: reason})
}

func (e *Engine) emit(ev pipeline.Event) {
	if e.opts.Progress != nil {
		e.opts.Progress.OnEvent(ev)
	}
}

type discard struct{}

func (discard) RecordModification(diag.ModificationRecord) {}
func (discard) RecordIssue(diag.Issue)                     {}
func (discard) RecordSkip(diag.Skip)                       {}
func (discard) RecordState(string, diag.FileState)         {}
