package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const pdfBody = "%PDF-1.4\n% deed\n%%EOF\n"

func TestFetchSavesDocument(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.UserAgent())
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(pdfBody))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "pdfs")
	d := New()

	path, err := d.Fetch(context.Background(), srv.URL+"/file.pdf", dir, "北新路", 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "北新路_file_3.pdf"), path)
	assert.Equal(t, DefaultUserAgent, agent.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestFetchRejectsOversizedDocument(t *testing.T) {
	body := strings.Repeat("x", 4096)
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"declared length", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}},
		{"chunked", func(w http.ResponseWriter, _ *http.Request) {
			for range 4 {
				_, _ = w.Write([]byte(body[:1024]))
				w.(http.Flusher).Flush()
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dir := t.TempDir()
			_, err := New(WithMaxSize(1000)).Fetch(context.Background(), srv.URL, dir, "big", 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTooLarge)
			assert.ErrorIs(t, err, ErrDownload)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "partial download left behind")
		})
	}
}

func TestFetchAcceptsDocumentAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(pdfBody))
	}))
	defer srv.Close()

	path, err := New(WithMaxSize(int64(len(pdfBody)))).Fetch(context.Background(), srv.URL, t.TempDir(), "exact", 0)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(data))
}

func TestFetchOverwrites(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte("first"))
			return
		}
		_, _ = w.Write([]byte("second"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New()
	_, err := d.Fetch(context.Background(), srv.URL, dir, "c", 0)
	require.NoError(t, err)

	path, err := d.Fetch(context.Background(), srv.URL, dir, "c", 0)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFetchUserAgentOption(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		agent.Store(r.UserAgent())
	}))
	defer srv.Close()

	_, err := New(WithUserAgent("deedscan-test")).Fetch(context.Background(), srv.URL, t.TempDir(), "c", 0)
	require.NoError(t, err)
	assert.Equal(t, "deedscan-test", agent.Load())
}

func TestFetchLocalSource(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	for _, src := range []string{"testdata/deed.pdf", "/tmp/x.pdf", `C:\deeds\a.pdf`, "file:///tmp/a.pdf"} {
		path, err := New().Fetch(context.Background(), src, dir, "c", 0)
		require.NoError(t, err)
		assert.Equal(t, src, path)
	}
	_, err := os.Stat(dir)
	assert.True(t, errors.Is(err, os.ErrNotExist), "local sources must not create the download dir")
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := New().Fetch(context.Background(), srv.URL+"/missing.pdf", dir, "c", 1)
	require.Error(t, err)
	assert.Empty(t, path)
	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, ErrStatus)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, srv.URL+"/missing.pdf", fe.URL)
	assert.Contains(t, err.Error(), "status 404")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := New(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL, t.TempDir(), "c", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New().Fetch(context.Background(), url, t.TempDir(), "c", 0)
	assert.ErrorIs(t, err, ErrDownload)
}

func TestFetchRateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	d := New(WithRateLimit(rate.NewLimiter(rate.Every(time.Hour), 1)))
	_, err := d.Fetch(context.Background(), srv.URL, t.TempDir(), "c", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = d.Fetch(ctx, srv.URL, t.TempDir(), "c", 1)
	assert.ErrorIs(t, err, ErrDownload)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0))
	assert.Nil(t, NewRateLimiter(-1))

	l := NewRateLimiter(2.5)
	require.NotNil(t, l)
	assert.Equal(t, rate.Limit(2.5), l.Limit())
	assert.Equal(t, 3, l.Burst())

	assert.Equal(t, 1, NewRateLimiter(0.2).Burst())
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"https://is.ycut.com.tw/files/a.pdf", true},
		{"http://127.0.0.1:8080/a.pdf", true},
		{"HTTPS://EXAMPLE.COM/a.pdf", true},
		{"pdfs/a.pdf", false},
		{"/tmp/a.pdf", false},
		{"file:///tmp/a.pdf", false},
		{"https:///a.pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRemote(tt.source), tt.source)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "output_file_0.pdf", FileName("output", 0))
	assert.Equal(t, "北新路_file_12.pdf", FileName("北新路", 12))
}

func TestErrorMatchesDownload(t *testing.T) {
	err := &Error{URL: "https://x/a.pdf", Err: context.Canceled}
	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrStatus)
	assert.Equal(t, "download https://x/a.pdf: context canceled", err.Error())
}
