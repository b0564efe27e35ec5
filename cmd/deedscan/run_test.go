package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/report"
)

// isolate moves the test into an empty directory holding a deedscan.yaml
// with content, so no user configuration is picked up.
func isolate(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("deedscan.yaml", []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "\ufeff") {
		t.Errorf("%s does not start with a byte order mark", path)
	}
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestRunCmdWritesOneRowPerRecord(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("not a pdf"))
	}))
	defer srv.Close()

	dir := isolate(t, "ocr:\n  engine: none\n")
	records := fmt.Sprintf(`[
		{"address": "A1", "owner": "甲", "url": "%[1]s/a"},
		["A2", "乙", "%[1]s/b"],
		{"address": "A3", "owner": "丙", "url": "%[1]s/missing"}
	]`, srv.URL)
	if err := os.WriteFile("t1_data.json", []byte(records), 0o600); err != nil {
		t.Fatal(err)
	}

	out, logs, err := execute(t, "run", "t1", "--workers", "2", "--db", "t1.db", "--markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, logs)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 downloads, got %d", hits.Load())
	}
	if !strings.Contains(out, "3 records:") || !strings.Contains(out, "3 failed") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "Results saved to t1.csv") {
		t.Errorf("expected the output file to be named:\n%s", out)
	}

	rows := readRows(t, filepath.Join(dir, "t1.csv"))
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(report.Header, ",") {
		t.Errorf("header = %v", rows[0])
	}
	owners := map[string]bool{}
	for _, row := range rows[1:] {
		owners[row[1]] = true
		if row[2] != deed.SentinelFailed {
			t.Errorf("row %v: expected the failure placeholder", row)
		}
	}
	if len(owners) != 3 {
		t.Errorf("expected every owner once, got %v", owners)
	}

	for _, stage := range []string{"stage=download", "stage=open"} {
		if !strings.Contains(logs, stage) {
			t.Errorf("logs missing %s:\n%s", stage, logs)
		}
	}

	md, err := os.ReadFile("t1_summary.md")
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	if !strings.Contains(string(md), "deedscan run") {
		t.Errorf("unexpected summary:\n%s", md)
	}
	if _, err := os.Stat("t1.db"); err != nil {
		t.Errorf("database not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join("pdfs", "t1_file_0.pdf")); err != nil {
		t.Errorf("download not kept: %v", err)
	}
}

func TestRunCmdAppendsAcrossRuns(t *testing.T) {
	isolate(t, "ocr:\n  engine: none\n")
	if err := os.WriteFile("doc.pdf", []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	records := `[{"address": "A1", "owner": "甲", "url": "doc.pdf"}]`
	if err := os.WriteFile("output_data.json", []byte(records), 0o600); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if _, logs, err := execute(t, "run"); err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, logs)
		}
	}
	rows := readRows(t, "output.csv")
	if len(rows) != 3 {
		t.Errorf("expected one header and two rows, got %d lines", len(rows))
	}
}

func TestRunCmdRejectsInvalidFlags(t *testing.T) {
	isolate(t, "")
	tests := []struct {
		name string
		args []string
	}{
		{"zero workers", []string{"run", "--workers", "0"}},
		{"negative timeout", []string{"run", "--timeout=-1s"}},
		{"unknown engine", []string{"run", "--engine", "abbyy"}},
		{"too many args", []string{"run", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := os.Stat("output.csv"); err == nil {
		t.Error("no output should be written for an invalid configuration")
	}
}

func TestRunCmdBadRecordFile(t *testing.T) {
	isolate(t, "")
	if err := os.WriteFile("bad_data.json", []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, "run", "bad"); err == nil {
		t.Error("expected error for a malformed record file")
	}
}

func TestRunCmdMissingConfigFile(t *testing.T) {
	isolate(t, "")
	_, _, err := execute(t, "run", "--config", "nope.yaml")
	if err == nil || !strings.Contains(err.Error(), "nope.yaml") {
		t.Errorf("expected error naming the missing file, got %v", err)
	}
}
