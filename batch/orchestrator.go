package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/fetch"
	"github.com/tsawler/deedscan/report"
)

const (
	// DefaultWorkers is the number of records processed at once.
	DefaultWorkers = 5

	// DefaultDir is where downloaded transcripts are stored.
	DefaultDir = "pdfs"

	// DefaultIdentifier names the run's files when no identifier is given.
	DefaultIdentifier = "output"
)

// Processor extracts the address from a local PDF. *deed.Pipeline
// implements it.
type Processor interface {
	Process(ctx context.Context, path string) (deed.Result, error)
}

// Fetcher makes a record's source available locally. *fetch.Downloader
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, source, dir, identifier string, index int) (string, error)
}

// Initializer prepares a shared resource before workers start.
// *ocr.Shared implements it.
type Initializer interface {
	Init() error
	Name() string
}

// Orchestrator processes records with a bounded worker pool.
type Orchestrator struct {
	processor  Processor
	fetcher    Fetcher
	sinks      []report.Sink
	engine     Initializer
	workers    int
	dir        string
	identifier string
	runID      string
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the pool size. Values < 1 are ignored.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithFetcher sets the downloader. The default is fetch.New().
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.fetcher = f
		}
	}
}

// WithSinks adds output sinks. Every row is appended to each of them.
func WithSinks(sinks ...report.Sink) Option {
	return func(o *Orchestrator) {
		for _, s := range sinks {
			if s != nil {
				o.sinks = append(o.sinks, s)
			}
		}
	}
}

// WithEngine sets a resource to initialize once before the pool starts,
// typically the ocr.Shared engine the Processor uses.
func WithEngine(e Initializer) Option {
	return func(o *Orchestrator) { o.engine = e }
}

// WithDir sets the download directory.
func WithDir(dir string) Option {
	return func(o *Orchestrator) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// WithIdentifier sets the community identifier used in file names.
func WithIdentifier(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.identifier = id
		}
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.runID = id
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns an Orchestrator that extracts addresses with p.
func New(p Processor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		processor:  p,
		workers:    DefaultWorkers,
		dir:        DefaultDir,
		identifier: DefaultIdentifier,
		runID:      uuid.NewString(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		o.fetcher = fetch.New(fetch.WithLogger(o.logger))
	}
	return o
}

// RunID identifies the rows this orchestrator writes.
func (o *Orchestrator) RunID() string { return o.runID }

type outcome struct {
	row     report.Row
	lost    bool
	skipped bool
}

// Run processes records and returns the tally. Per-record failures are
// recorded as rows and never returned. The error is non-nil only when the
// engine cannot be initialized, no sink is configured, or ctx ends before
// every record was handled; records not started by then are skipped.
func (o *Orchestrator) Run(ctx context.Context, records []Record) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: o.runID, Identifier: o.identifier, Total: len(records), Started: start}

	if len(o.sinks) == 0 {
		return sum, ErrNoSinks
	}
	if o.engine != nil {
		o.logger.Info("initializing OCR engine")
		if err := o.engine.Init(); err != nil {
			return sum, fmt.Errorf("initialize OCR engine: %w", err)
		}
		o.logger.Info("OCR engine ready", "engine", o.engine.Name())
	}

	o.logger.Info("starting batch",
		"run_id", o.runID,
		"identifier", o.identifier,
		"records", len(records),
		"workers", o.workers,
	)

	outcomes := make([]outcome, len(records))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, rec := range records {
		g.Go(func() error {
			outcomes[i] = o.handle(ctx, i, rec)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers always return nil

	for _, oc := range outcomes {
		sum.add(oc)
	}
	sum.Elapsed = time.Since(start)

	o.logger.Info("batch complete",
		"run_id", o.runID,
		"records", sum.Total,
		"failed", sum.Failed,
		"lost", sum.Lost,
		"skipped", sum.Skipped,
		"elapsed", sum.Elapsed.Round(time.Millisecond),
	)

	if err := ctx.Err(); err != nil && sum.Skipped > 0 {
		return sum, err
	}
	return sum, nil
}

func (o *Orchestrator) handle(ctx context.Context, seq int, rec Record) outcome {
	if ctx.Err() != nil {
		return outcome{skipped: true}
	}

	res := o.extract(ctx, seq, rec)
	if res.Provenance == deed.ProvenanceFailed && ctx.Err() != nil {
		// Canceled mid-record; the row would blame the document.
		return outcome{skipped: true}
	}

	row := report.Row{
		Address:    rec.Address,
		Owner:      rec.Owner,
		Extracted:  res.Address,
		Seq:        seq,
		Provenance: res.Provenance.String(),
		Source:     rec.Source,
	}
	lost := false
	for _, s := range o.sinks {
		if err := o.appendRow(context.WithoutCancel(ctx), s, row); err != nil {
			lost = true
		}
	}
	return outcome{row: row, lost: lost}
}

func (o *Orchestrator) extract(ctx context.Context, seq int, rec Record) deed.Result {
	o.logger.Debug("processing record", "seq", seq, "address", rec.Address, "source", rec.Source)

	path, err := o.fetcher.Fetch(ctx, rec.Source, o.dir, o.identifier, seq)
	if err != nil {
		o.logFailure(rec, err)
		return deed.Failed(err)
	}

	res, err := o.process(ctx, rec, path)
	if err != nil {
		o.logFailure(rec, err)
		if res.Provenance != deed.ProvenanceFailed || res.Address == "" {
			res = deed.Failed(err)
		}
		return res
	}
	if res.Provenance == deed.ProvenanceFailed {
		o.logFailure(rec, res.Err)
		return res
	}

	o.logger.Info("address extracted",
		"address", rec.Address,
		"result", res.Address,
		"provenance", res.Provenance,
	)
	return res
}

// process runs the processor on one file. A panic becomes a failure for
// this record only.
func (o *Orchestrator) process(ctx context.Context, rec Record, path string) (res deed.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			res = deed.Failed(err)
			o.logger.Error("record panicked", "address", rec.Address, "path", path, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return o.processor.Process(ctx, path)
}

func (o *Orchestrator) logFailure(rec Record, err error) {
	attrs := []any{"address", rec.Address, "stage", Stage(err), "error", err}
	var fe *fetch.Error
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		attrs = append(attrs, "status", fe.StatusCode)
	}
	o.logger.Warn("record failed", attrs...)
}

// appendRow writes row to s, retrying once.
func (o *Orchestrator) appendRow(ctx context.Context, s report.Sink, row report.Row) error {
	err := s.Append(ctx, row)
	if err == nil {
		return nil
	}
	o.logger.Warn("append failed, retrying", "address", row.Address, "seq", row.Seq, "error", err)
	if err = s.Append(ctx, row); err != nil {
		o.logger.Error("row lost", "address", row.Address, "seq", row.Seq, "extracted", row.Extracted, "error", err)
	}
	return err
}

// Stage names the step a per-record error came from.
func Stage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, fetch.ErrDownload):
		return "download"
	case errors.Is(err, deed.ErrOpen):
		return "open"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrPanic):
		return "panic"
	}
	return "ocr"
}
