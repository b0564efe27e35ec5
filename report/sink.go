package report

import (
	"context"
	"errors"
)

// Row is one output line: the record's labels and the extracted address.
type Row struct {
	// Address is the unit label the record was listed under.
	Address string
	Owner   string
	// Extracted is the address found in the document, or a placeholder.
	Extracted string

	// Seq is the record's 0-based position in its batch.
	Seq        int
	Provenance string
	Source     string
}

// Sink receives rows.
type Sink interface {
	// Append stores one row. Implementations must be safe for concurrent
	// use and must store a row completely or not at all.
	Append(ctx context.Context, row Row) error
	Close() error
}

// MultiSink appends every row to each of its sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a sink writing to sinks in order. Nil sinks are
// skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Append tries every sink and returns their errors joined.
func (m *MultiSink) Append(ctx context.Context, row Row) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and returns their errors joined.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
