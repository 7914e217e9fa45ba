// Package fetcher loads littr pages over HTTP, optionally rendering them in
// a headless browser first, and from local files.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"littrfix/dom"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrTokenRejected is returned when a request carrying an auth token is
// answered with the login view.
var ErrTokenRejected = errors.New("auth token rejected: server returned the login page")

// FetchResult contains the fetched HTML and metadata.
type FetchResult struct {
	HTML        string
	FinalURL    string // URL after following redirects
	UsedBrowser bool
	FetchTime   time.Duration
}

// Options configures the fetcher behavior.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	ChromePath string            // Path to Chrome binary (empty = auto-detect)
	Headers    map[string]string // Extra request headers, e.g. X-Auth-Token
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent: "littrfix/1.0",
		Timeout:   30 * time.Second,
	}
}

// Fetcher loads pages.
type Fetcher struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

// New creates a fetcher. Zero option fields take their defaults.
func New(o Options, logger *zap.Logger) *Fetcher {
	def := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = def.UserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		opts:   o,
		client: &http.Client{Timeout: o.Timeout},
		logger: logger,
	}
}

// IsURL reports whether src names an http(s) resource rather than a file.
func IsURL(src string) bool {
	u, err := url.Parse(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// userDataDir returns a persistent directory for Chrome user data, so the
// session cookie survives between fetches.
func userDataDir() string {
	dir, _ := os.UserCacheDir()
	return filepath.Join(dir, "littrfix-chrome-profile")
}

// Simple fetches a URL using standard HTTP. The page comes back as served,
// before any client-side rendering.
func (f *Fetcher) Simple(ctx context.Context, target string) (*FetchResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	for k, v := range f.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: %s", target, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	// Capture final URL after redirects
	finalURL := resp.Request.URL.String()

	f.logger.Debug("fetched", zap.String("url", finalURL), zap.Duration("took", time.Since(start)))
	return &FetchResult{
		HTML:      string(body),
		FinalURL:  finalURL,
		FetchTime: time.Since(start),
	}, nil
}

// stealthScript hides the automation flag before the page's scripts run.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {
  get: () => undefined
});
`

// renderedSelector appears once the app has rendered its first view.
const renderedSelector = "body > div > main"

// WithBrowser renders the page in headless Chrome and returns the DOM as the
// app left it.
func (f *Fetcher) WithBrowser(ctx context.Context, targetURL string) (*FetchResult, error) {
	start := time.Now()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.opts.UserAgent),
		chromedp.WindowSize(1280, 1024),
		// Use persistent user data directory for cookies
		chromedp.UserDataDir(userDataDir()),
	)
	if f.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(f.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	// Browser fetches get extra time for the app to boot
	ctx, cancel := context.WithTimeout(allocCtx, f.opts.Timeout+15*time.Second)
	defer cancel()

	ctx, cancel = chromedp.NewContext(ctx)
	defer cancel()

	headers := network.Headers{}
	for k, v := range f.opts.Headers {
		headers[k] = v
	}

	var html, finalURL string
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(renderedSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch: %w", err)
	}

	f.logger.Debug("rendered", zap.String("url", finalURL), zap.Duration("took", time.Since(start)))
	return &FetchResult{
		HTML:        html,
		FinalURL:    finalURL,
		UsedBrowser: true,
		FetchTime:   time.Since(start),
	}, nil
}

// Fetch loads a URL, through the browser when js is set.
func (f *Fetcher) Fetch(ctx context.Context, target string, js bool) (*FetchResult, error) {
	if js {
		return f.WithBrowser(ctx, target)
	}
	return f.Simple(ctx, target)
}

// Document loads src, a URL or a file path, into a Document. The returned
// location is the final URL, or a file URL for local files.
func (f *Fetcher) Document(ctx context.Context, src string, js bool) (*dom.Document, string, error) {
	if IsURL(src) {
		res, err := f.Fetch(ctx, src, js)
		if err != nil {
			return nil, "", err
		}
		if IsLoginPage(res.HTML) {
			if _, ok := f.opts.Headers["X-Auth-Token"]; ok {
				return nil, "", fmt.Errorf("fetching %s: %w", src, ErrTokenRejected)
			}
			f.logger.Info("fetched the login page", zap.String("url", res.FinalURL))
		}
		d, err := dom.ParseString(res.HTML)
		if err != nil {
			return nil, "", err
		}
		return d, res.FinalURL, nil
	}
	return ReadFile(src)
}

// ReadFile parses a saved page.
func ReadFile(path string) (*dom.Document, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening page: %w", err)
	}
	defer file.Close()

	d, err := dom.Parse(file)
	if err != nil {
		return nil, "", err
	}
	return d, FileURL(path), nil
}

// FileURL returns the file URL of a local page.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// contains is a case-insensitive substring check.
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// IsLoginPage reports whether the fetched HTML is the login view, which is
// what the server renders for a missing or expired session.
func IsLoginPage(html string) bool {
	return contains(html, "<h5>login</h5>") || contains(html, "littr login")
}
