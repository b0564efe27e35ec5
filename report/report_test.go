package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/deedscan/deed"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte(bom)), "missing BOM")
	records, err := csv.NewReader(bytes.NewReader(data[len(bom):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVSinkHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "北新路.csv")
	ctx := context.Background()

	s, err := NewCSVSink(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Append(ctx, Row{Address: "北新路 182巷32號 16樓之11", Owner: "新ＯＯＯＯＯ (2025/05/31)", Extracted: "新北市淡水區中正路一段"}))
	require.NoError(t, s.Append(ctx, Row{Address: "北新路 182巷16號 1樓", Owner: "新ＯＯＯＯＯ", Extracted: deed.SentinelRedacted}))
	require.NoError(t, s.Close())

	// A second run appends without another header.
	s, err = NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, Row{Address: "北新路 182巷18號 1樓", Owner: "新", Extracted: deed.SentinelFailed}))
	require.NoError(t, s.Close())

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"北新路 182巷32號 16樓之11", "新ＯＯＯＯＯ (2025/05/31)", "新北市淡水區中正路一段"}, records[1])
	assert.Equal(t, deed.SentinelRedacted, records[2][2])
	assert.Equal(t, deed.SentinelFailed, records[3][2])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), bom))
}

func TestCSVSinkEmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	records := readCSV(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, Header, records[0])
}

func TestCSVSinkQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewCSVSink(path)
	require.NoError(t, err)

	row := Row{Address: `A, "B"`, Owner: "line\nbreak", Extracted: "臺北縣"}
	require.NoError(t, s.Append(context.Background(), row))
	require.NoError(t, s.Close())

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{`A, "B"`, "line\nbreak", "臺北縣"}, records[1])
}

func TestCSVSinkConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewCSVSink(path)
	require.NoError(t, err)

	const n = 64
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			row := Row{Seq: i, Address: fmt.Sprintf("unit-%02d", i), Owner: strings.Repeat("人", 200), Extracted: "新北市"}
			assert.NoError(t, s.Append(context.Background(), row))
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close())

	records := readCSV(t, path)
	require.Len(t, records, n+1)
	seen := make(map[string]bool)
	for _, r := range records[1:] {
		require.Len(t, r, 3)
		assert.Equal(t, strings.Repeat("人", 200), r[1])
		seen[r[0]] = true
	}
	assert.Len(t, seen, n)
}

func TestCSVSinkClosed(t *testing.T) {
	s, err := NewCSVSink(filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Append(context.Background(), Row{}), ErrClosed)
}

func TestCSVSinkOpenError(t *testing.T) {
	_, err := NewCSVSink(t.TempDir())
	assert.Error(t, err)
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "deedscan.db")

	s, err := NewSQLiteSink(ctx, path, "run-1", "北新路")
	require.NoError(t, err)
	defer s.Close()

	rows := []Row{
		{Seq: 1, Address: "b", Owner: "o", Extracted: deed.SentinelRedacted, Provenance: "redacted", Source: "https://x/1.pdf"},
		{Seq: 0, Address: "a", Owner: "o", Extracted: "臺北縣淡水鎮", Provenance: "ocr", Source: "https://x/0.pdf"},
	}
	for _, r := range rows {
		require.NoError(t, s.Append(ctx, r))
	}

	other, err := NewSQLiteSink(ctx, path, "run-2", "北新路")
	require.NoError(t, err)
	require.NoError(t, other.Append(ctx, Row{Seq: 0, Address: "z", Provenance: "failed"}))
	require.NoError(t, other.Close())

	got, err := s.Rows(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []Row{rows[1], rows[0]}, got)

	got, err = s.Rows(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "z", got[0].Address)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Append(ctx, rows[0]), ErrClosed)
}

type recordingSink struct {
	mu     sync.Mutex
	rows   []Row
	err    error
	closed bool
}

func (s *recordingSink) Append(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return s.err
}

func TestMultiSink(t *testing.T) {
	errDisk := errors.New("disk full")
	bad := &recordingSink{err: errDisk}
	good := &recordingSink{}
	m := NewMultiSink(bad, nil, good)

	err := m.Append(context.Background(), Row{Address: "a"})
	assert.ErrorIs(t, err, errDisk)
	assert.Len(t, good.rows, 1, "later sinks still receive the row")

	assert.ErrorIs(t, m.Close(), errDisk)
	assert.True(t, bad.closed)
	assert.True(t, good.closed)

	assert.NoError(t, NewMultiSink(good).Append(context.Background(), Row{}))
}

func TestWriteSummary(t *testing.T) {
	run := Run{
		RunID:      "5b0c1e6a",
		Identifier: "北新路",
		Started:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed:    1500 * time.Millisecond,
		Rows: []Row{
			{Seq: 0, Address: "北新路 182巷32號 16樓之11", Extracted: "新北市淡水區中正路一段", Provenance: "text"},
			{Seq: 1, Address: "北新路 182巷16號 1樓", Extracted: deed.SentinelRedacted, Provenance: "redacted"},
			{Seq: 2, Address: "北新路 182巷18號 1樓", Extracted: deed.SentinelFailed, Provenance: "failed"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, run))
	out := buf.String()

	assert.Contains(t, out, "# deedscan run: 北新路")
	assert.Contains(t, out, "5b0c1e6a")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "## Provenance")
	assert.Contains(t, out, "unrecognized")
	assert.Contains(t, out, "## Rows to review")
	assert.Contains(t, out, deed.SentinelRedacted)
	assert.Contains(t, out, "北新路 182巷18號 1樓")
	assert.NotContains(t, out, "新北市淡水區中正路一段")
	assert.Contains(t, out, "could not be downloaded or read")
}

func TestWriteSummaryAllText(t *testing.T) {
	run := Run{RunID: "r", Identifier: "x", Rows: []Row{{Provenance: "text"}}}
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, run))
	assert.Contains(t, buf.String(), "None.")
	assert.Contains(t, buf.String(), "Every address was found")
}
