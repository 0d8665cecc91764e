// Package pipeline holds the progress event types shared by the remediation
// engine and the terminal UI.
package pipeline

import "time"

// Stage describes the step a file is in.
type Stage string

const (
	// StageRead is the read stage.
	StageRead Stage = "read"
	// StageTransform is the transform stage.
	StageTransform Stage = "transform"
	// StageBackup is the backup stage.
	StageBackup Stage = "backup"
	// StageWrite is the write stage.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusSkipped indicates the file was left alone (nothing to do, or cancelled).
	StatusSkipped Status = "skipped"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the overall run when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}
