package batch

import "errors"

var (
	// ErrNoRecordFile is returned by LoadRecords when the data file does not
	// exist. Callers fall back to FixtureRecords.
	ErrNoRecordFile = errors.New("record file not found")

	// ErrNoSinks is returned by Run when the orchestrator has nowhere to
	// write rows.
	ErrNoSinks = errors.New("no output sinks configured")

	// ErrPanic wraps a panic recovered while processing one record.
	ErrPanic = errors.New("processor panicked")
)
