package fetch

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const communityPage = `<!DOCTYPE html>
<html><head><title> 社區二維透視 </title></head>
<body>
<a onclick="ShowPop('outside')">not in table</a>
<table id="tb2DTable">
  <tr><th>樓層</th><th>A</th><th>B</th></tr>
  <tr><td>2F</td><td><a href="#" onclick="ShowPop('NB-0182-2A')">人</a></td><td></td></tr>
  <tr><td>1F</td><td><a href="#" onclick="other()">x</a></td><td><a onclick="javascript:ShowPop('NB-0182-1B')">人</a></td></tr>
</table>
</body></html>`

func TestParseCommunityPage(t *testing.T) {
	report, err := ParseCommunityPage(strings.NewReader(communityPage))
	require.NoError(t, err)

	assert.Equal(t, "社區二維透視", report.Title)
	assert.True(t, report.TableFound)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.Markers)
	assert.Equal(t, "ShowPop('NB-0182-2A')", report.FirstMarker)
}

func TestParseCommunityPageLoggedOut(t *testing.T) {
	report, err := ParseCommunityPage(strings.NewReader(`<html><head><title>登入</title></head><body><form></form></body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "登入", report.Title)
	assert.False(t, report.TableFound)
	assert.Zero(t, report.Rows)
	assert.Zero(t, report.Markers)
}

func TestProbeSendsCookie(t *testing.T) {
	const secret = "f00dfacecafe"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("ASP.NET_SessionId")
		if err != nil || c.Value != secret {
			_, _ = w.Write([]byte(`<html><head><title>登入</title></head></html>`))
			return
		}
		_, _ = w.Write([]byte(communityPage))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := New(WithLogger(logger))

	report, err := d.Probe(context.Background(), srv.URL+"/magent/Community.aspx", "ASP.NET_SessionId="+secret+"; lang=zh-TW")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.True(t, report.TableFound)
	assert.Equal(t, 2, report.Markers)

	assert.Contains(t, logs.String(), "probing session")
	assert.NotContains(t, logs.String(), secret)
}

func TestProbeWithoutJar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("sid"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(communityPage))
	}))
	defer srv.Close()

	d := New(WithHTTPClient(&http.Client{}))
	report, err := d.Probe(context.Background(), srv.URL, "sid=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.True(t, report.TableFound)
}

func TestProbeInputErrors(t *testing.T) {
	d := New()
	_, err := d.Probe(context.Background(), CommunityURL, "  ")
	assert.ErrorIs(t, err, ErrEmptyCookie)

	_, err = d.Probe(context.Background(), CommunityURL, "no-equals-sign")
	assert.Error(t, err)
}
