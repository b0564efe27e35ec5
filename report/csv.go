package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// Header holds the CSV column names.
var Header = []string{"下拉選單地址", "所有權人姓名", "擷取到的地址文字"}

// bom lets spreadsheet applications detect UTF-8.
const bom = "\ufeff"

// CSVSink appends rows to a CSV file.
type CSVSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewCSVSink opens path for appending. The BOM and header are written when
// the file is new or empty, so repeated runs extend one file.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		line, err := encodeRecord(Header)
		if err == nil {
			_, err = f.Write(append([]byte(bom), line...))
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	}
	return &CSVSink{f: f, path: path}, nil
}

// Path returns the file name the sink writes to.
func (s *CSVSink) Path() string { return s.path }

// Append writes row with a single write call.
func (s *CSVSink) Append(_ context.Context, row Row) error {
	line, err := encodeRecord([]string{row.Address, row.Owner, row.Extracted})
	if err != nil {
		return fmt.Errorf("encode row %d: %w", row.Seq, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return nil
}

// Close closes the file. Further appends return ErrClosed.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func encodeRecord(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
