package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single download, including the response body.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is sent with every request. The registry rejects
	// requests without a browser-like agent.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultMaxSize bounds a downloaded document. Transcripts are a few
	// scanned pages; anything larger is not a transcript.
	DefaultMaxSize = 64 << 20

	maxRedirects = 10
)

// Downloader fetches remote documents. It is safe for concurrent use.
type Downloader struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxSize   int64
	limiter   *rate.Limiter
	insecure  bool
	logger    *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout sets the per-request timeout. Values <= 0 are ignored.
func WithTimeout(t time.Duration) Option {
	return func(d *Downloader) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithMaxSize sets the largest document Fetch accepts, in bytes. Values
// <= 0 are ignored.
func WithMaxSize(n int64) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithRateLimit spaces requests with l. A nil limiter disables limiting.
// The limiter may be shared with other Downloaders.
func WithRateLimit(l *rate.Limiter) Option {
	return func(d *Downloader) { d.limiter = l }
}

// WithInsecureSkipVerify disables TLS certificate verification. It has no
// effect together with WithHTTPClient.
func WithInsecureSkipVerify(skip bool) Option {
	return func(d *Downloader) { d.insecure = skip }
}

// WithLogger sets the logger for download events.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// New returns a Downloader with a session cookie jar.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		maxSize:   DefaultMaxSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = d.newClient()
	}
	return d
}

func (d *Downloader) newClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if d.insecure {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opt-in via download.insecure_skip_verify
		}
	}

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck // cookiejar.New never fails

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// NewRateLimiter returns a limiter allowing perSecond requests, or nil when
// perSecond is not positive.
func NewRateLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := max(1, int(math.Ceil(perSecond)))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// FileName is the storage name of the index-th document of a batch.
func FileName(identifier string, index int) string {
	return fmt.Sprintf("%s_file_%d.pdf", identifier, index)
}

// IsRemote reports whether source is an http or https URL.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch stores source under dir and returns the local path. Local sources
// are returned as they are, without checking that they exist.
func (d *Downloader) Fetch(ctx context.Context, source, dir, identifier string, index int) (string, error) {
	if !IsRemote(source) {
		return source, nil
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", &Error{URL: source, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.get(ctx, source, "application/pdf,*/*;q=0.8")
	if err != nil {
		return "", &Error{URL: source, Err: withContextErr(ctx, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &Error{URL: source, StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &Error{URL: source, Err: fmt.Errorf("create %s: %w", dir, err)}
	}

	dest := filepath.Join(dir, FileName(identifier, index))
	if resp.ContentLength > d.maxSize {
		return "", &Error{URL: source, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)}
	}
	n, err := writeFile(dest, resp.Body, d.maxSize)
	if err != nil {
		return "", &Error{URL: source, StatusCode: resp.StatusCode, Err: withContextErr(ctx, err)}
	}

	d.logger.Debug("downloaded document", "url", source, "path", dest, "bytes", n)
	return dest, nil
}

func (d *Downloader) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", accept)
	return d.client.Do(req)
}

// writeFile copies at most limit bytes of r into a temp file next to dest
// and renames it, so dest never holds a partial download.
func writeFile(dest string, r io.Reader, limit int64) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	n, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if err == nil && n > limit {
		err = fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}
	if err != nil {
		tmp.Close() //nolint:errcheck,gosec // the copy error wins
		return n, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return n, fmt.Errorf("rename to %s: %w", dest, err)
	}
	return n, nil
}

// withContextErr makes an expired or canceled ctx visible to errors.Is even
// when the transport reports it under another error.
func withContextErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	return err
}
