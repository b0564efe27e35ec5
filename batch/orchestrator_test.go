package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/fetch"
	"github.com/tsawler/deedscan/report"
)

// fileProcessor reads the downloaded file, whose content is the address
// to return. The contents "redacted" and "broken" stand for an image-only
// page and an unreadable PDF.
type fileProcessor struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (p *fileProcessor) Process(ctx context.Context, path string) (deed.Result, error) {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		m := p.maxSeen.Load()
		if n <= m || p.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return deed.Failed(ctx.Err()), ctx.Err()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", deed.ErrOpen, err)
		return deed.Failed(err), err
	}
	switch s := string(data); s {
	case "redacted":
		return deed.Result{Address: deed.SentinelRedacted, Provenance: deed.ProvenanceRedacted}, nil
	case "broken":
		err := fmt.Errorf("%w: bad xref", deed.ErrOpen)
		return deed.Failed(err), err
	default:
		return deed.Result{Address: s, Provenance: deed.ProvenanceText}, nil
	}
}

// docServer serves /doc/<content>; /slow never answers in time.
func docServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(strings.TrimPrefix(r.URL.Path, "/doc/")))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func csvRows(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRunOneRowPerRecord(t *testing.T) {
	srv := docServer(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "北新路.csv")
	sink, err := report.NewCSVSink(csvPath)
	require.NoError(t, err)

	const n = 12
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Address: fmt.Sprintf("北新路 182巷%d號", i),
			Owner:   "新ＯＯ",
			Source:  srv.URL + fmt.Sprintf("/doc/addr-%02d", i),
		}
	}

	proc := &fileProcessor{delay: 20 * time.Millisecond}
	o := New(proc,
		WithWorkers(3),
		WithSinks(sink),
		WithDir(filepath.Join(dir, "pdfs")),
		WithIdentifier("北新路"),
		WithLogger(quietLogger()),
	)
	sum, err := o.Run(context.Background(), records)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, n, sum.Total)
	assert.Equal(t, n, sum.Text)
	assert.Zero(t, sum.Failed+sum.Lost+sum.Skipped)
	assert.Equal(t, o.RunID(), sum.RunID)
	assert.LessOrEqual(t, proc.maxSeen.Load(), int32(3))
	assert.Greater(t, proc.maxSeen.Load(), int32(1), "workers should overlap")

	rows := csvRows(t, csvPath)
	require.Len(t, rows, n+1)
	assert.Equal(t, report.Header, rows[0])
	got := make(map[string]string)
	for _, r := range rows[1:] {
		assert.NotEqual(t, report.Header, r, "header repeated")
		got[r[0]] = r[2]
	}
	require.Len(t, got, n)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("addr-%02d", i), got[rec.Address])
	}

	_, err = os.Stat(filepath.Join(dir, "pdfs", "北新路_file_11.pdf"))
	assert.NoError(t, err)

	require.Len(t, sum.Rows, n)
	for i, r := range sum.Rows {
		assert.Equal(t, i, r.Seq)
	}
}

func TestRunDownloadTimeout(t *testing.T) {
	srv := docServer(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	sink, err := report.NewCSVSink(csvPath)
	require.NoError(t, err)

	records := []Record{
		{Address: "北新路 182巷32號 16樓之11", Owner: "新ＯＯＯＯＯ (2025/05/31)", Source: srv.URL + "/slow"},
		{Address: "北新路 182巷16號 1樓", Owner: "新ＯＯ", Source: srv.URL + "/doc/新北市淡水區中正路一段"},
		{Address: "北新路 182巷18號 1樓", Owner: "新ＯＯ", Source: srv.URL + "/doc/redacted"},
	}

	var logs bytes.Buffer
	o := New(&fileProcessor{},
		WithSinks(sink),
		WithDir(filepath.Join(dir, "pdfs")),
		WithFetcher(fetch.New(fetch.WithTimeout(100*time.Millisecond))),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	sum, err := o.Run(context.Background(), records)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Text)
	assert.Equal(t, 1, sum.Redacted)

	rows := csvRows(t, csvPath)
	require.Len(t, rows, 4)
	byAddr := make(map[string][]string)
	for _, r := range rows[1:] {
		byAddr[r[0]] = r
	}
	assert.Equal(t, []string{"北新路 182巷32號 16樓之11", "新ＯＯＯＯＯ (2025/05/31)", deed.SentinelFailed}, byAddr["北新路 182巷32號 16樓之11"])
	assert.Equal(t, "新北市淡水區中正路一段", byAddr["北新路 182巷16號 1樓"][2])
	assert.Equal(t, deed.SentinelRedacted, byAddr["北新路 182巷18號 1樓"][2])

	assert.Contains(t, logs.String(), "stage=timeout")
}

func TestRunFailureStages(t *testing.T) {
	srv := docServer(t)
	dir := t.TempDir()
	sink := &memorySink{}

	records := []Record{
		{Address: "404", Source: srv.URL + "/missing"},
		{Address: "open", Source: srv.URL + "/doc/broken"},
		{Address: "local", Source: filepath.Join(dir, "does-not-exist.pdf")},
	}
	var logs bytes.Buffer
	o := New(&fileProcessor{}, WithSinks(sink), WithDir(dir), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	sum, err := o.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Failed)
	for _, r := range sink.snapshot() {
		assert.Equal(t, deed.SentinelFailed, r.Extracted)
		assert.Equal(t, "failed", r.Provenance)
	}
	out := logs.String()
	assert.Contains(t, out, "stage=download")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "stage=open")
}

// memorySink records rows; failFirst makes the first append of every row
// fail, failAll makes every append fail.
type memorySink struct {
	mu        sync.Mutex
	rows      []report.Row
	attempts  map[int]int
	failFirst bool
	failAll   bool
}

func (s *memorySink) Append(_ context.Context, row report.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == nil {
		s.attempts = make(map[int]int)
	}
	s.attempts[row.Seq]++
	if s.failAll || (s.failFirst && s.attempts[row.Seq] == 1) {
		return errors.New("disk full")
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) snapshot() []report.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.Row(nil), s.rows...)
}

func localRecords(t *testing.T, n int) []Record {
	t.Helper()
	dir := t.TempDir()
	recs := make([]Record, n)
	for i := range recs {
		path := filepath.Join(dir, fmt.Sprintf("%d.pdf", i))
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("addr-%d", i)), 0o644))
		recs[i] = Record{Address: fmt.Sprintf("unit-%d", i), Source: path}
	}
	return recs
}

func TestRunRetriesAppendOnce(t *testing.T) {
	flaky := &memorySink{failFirst: true}
	o := New(&fileProcessor{}, WithSinks(flaky), WithLogger(quietLogger()))

	sum, err := o.Run(context.Background(), localRecords(t, 4))
	require.NoError(t, err)
	assert.Zero(t, sum.Lost)
	assert.Len(t, flaky.snapshot(), 4)
	for seq, n := range flaky.attempts {
		assert.Equal(t, 2, n, "seq %d", seq)
	}
}

func TestRunCountsLostRows(t *testing.T) {
	broken := &memorySink{failAll: true}
	good := &memorySink{}
	var logs bytes.Buffer
	o := New(&fileProcessor{}, WithSinks(broken, good), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	sum, err := o.Run(context.Background(), localRecords(t, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Lost)
	assert.Equal(t, 3, sum.Text)
	assert.Len(t, good.snapshot(), 3, "a failing sink must not block the others")
	assert.Equal(t, 3, strings.Count(logs.String(), "row lost"))
}

// panickyProcessor panics on files whose content is "panic".
type panickyProcessor struct {
	fileProcessor
}

func (p *panickyProcessor) Process(ctx context.Context, path string) (deed.Result, error) {
	data, err := os.ReadFile(path)
	if err == nil && string(data) == "panic" {
		var m map[string]int
		m["boom"]++
	}
	return p.fileProcessor.Process(ctx, path)
}

func TestRunRecoversPanics(t *testing.T) {
	recs := localRecords(t, 3)
	require.NoError(t, os.WriteFile(recs[1].Source, []byte("panic"), 0o644))
	sink := &memorySink{}
	var logs bytes.Buffer
	o := New(&panickyProcessor{}, WithSinks(sink), WithWorkers(2), WithDir(t.TempDir()),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	sum, err := o.Run(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Text)

	rows := sink.snapshot()
	require.Len(t, rows, 3)
	for _, r := range rows {
		if r.Address == "unit-1" {
			assert.Equal(t, deed.SentinelFailed, r.Extracted)
			assert.Equal(t, "failed", r.Provenance)
		} else {
			assert.NotEqual(t, deed.SentinelFailed, r.Extracted)
		}
	}
	assert.Contains(t, logs.String(), "record panicked")
	assert.Contains(t, logs.String(), "address=unit-1")
}

type countingInit struct {
	calls atomic.Int32
	err   error
}

func (c *countingInit) Init() error {
	c.calls.Add(1)
	return c.err
}

func (c *countingInit) Name() string { return "fake" }

func TestRunInitializesEngineFirst(t *testing.T) {
	engine := &countingInit{}
	var logs bytes.Buffer
	o := New(&fileProcessor{}, WithSinks(&memorySink{}), WithEngine(engine), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	_, err := o.Run(context.Background(), localRecords(t, 5))
	require.NoError(t, err)
	assert.Equal(t, int32(1), engine.calls.Load())

	out := logs.String()
	ready := strings.Index(out, "OCR engine ready")
	require.GreaterOrEqual(t, ready, 0)
	assert.Less(t, strings.Index(out, "initializing OCR engine"), ready)
	assert.Less(t, ready, strings.Index(out, "address extracted"))
}

func TestRunEngineInitFailure(t *testing.T) {
	sink := &memorySink{}
	o := New(&fileProcessor{}, WithSinks(sink), WithEngine(&countingInit{err: errors.New("no tessdata")}), WithLogger(quietLogger()))

	_, err := o.Run(context.Background(), localRecords(t, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tessdata")
	assert.Empty(t, sink.snapshot())
}

func TestRunNoSinks(t *testing.T) {
	_, err := New(&fileProcessor{}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSinks)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memorySink{}
	sum, err := New(&fileProcessor{}, WithSinks(sink), WithLogger(quietLogger())).Run(ctx, localRecords(t, 3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, sum.Skipped)
	assert.Empty(t, sink.snapshot())
}

func TestStage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&fetch.Error{URL: "u", StatusCode: 500, Err: fetch.ErrStatus}, "download"},
		{&fetch.Error{URL: "u", Err: context.DeadlineExceeded}, "timeout"},
		{fmt.Errorf("%w: x", deed.ErrOpen), "open"},
		{context.Canceled, "canceled"},
		{fmt.Errorf("%w: nil map", ErrPanic), "panic"},
		{errors.New("tesseract crashed"), "ocr"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stage(tt.err), fmt.Sprint(tt.err))
	}
}

func TestSummaryReport(t *testing.T) {
	s := Summary{RunID: "r1", Identifier: "x", Total: 2, Lost: 1, Elapsed: time.Second}
	s.add(outcome{row: report.Row{Provenance: "ocr"}})
	s.add(outcome{row: report.Row{Provenance: "unrecognized"}, lost: true})
	s.add(outcome{skipped: true})

	assert.Equal(t, 1, s.OCR)
	assert.Equal(t, 1, s.Unrecognized)
	assert.Equal(t, 2, s.Lost)
	assert.Equal(t, 1, s.Skipped)
	assert.Contains(t, s.String(), "1 ocr")

	run := s.Report()
	assert.Equal(t, "r1", run.RunID)
	assert.Len(t, run.Rows, 2)
	assert.Equal(t, 2, run.Lost)
}
