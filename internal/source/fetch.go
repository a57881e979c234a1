package source

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/store"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/firecrawl"
)

// Page is a fetched homepage.
type Page struct {
	URL        string
	HTML       []byte
	StatusCode int
}

// minPageBytes is the smallest body accepted as a real page.
const minPageBytes = 100

// LocalHTTPFetcher fetches with net/http. It is the cheapest fetcher and
// gives way to the others when the page is blocked or script-rendered.
type LocalHTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewLocalHTTPFetcher creates the local_http fetcher.
func NewLocalHTTPFetcher(timeout time.Duration, userAgent string, maxBodyKB int) *LocalHTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxBodyKB <= 0 {
		maxBodyKB = 512
	}
	return &LocalHTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: userAgent,
		maxBytes:  int64(maxBodyKB) * 1024,
	}
}

func (l *LocalHTTPFetcher) Name() string { return "local_http" }

func (l *LocalHTTPFetcher) Fetch(ctx context.Context, id model.Identity) (*Page, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id.Website, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "local_http: create request")
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, resilience.NewTransientError(eris.Wrap(err, "local_http: fetch"), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, false, eris.Wrap(err, "local_http: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, false, eris.Errorf("local_http: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		err := eris.Errorf("local_http: status %d", resp.StatusCode)
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, false, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, false, err
	}
	if len(body) < minPageBytes {
		return nil, false, eris.New("local_http: empty page")
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		HTML:       decodeBody(body, resp.Header.Get("Content-Type")),
		StatusCode: resp.StatusCode,
	}, true, nil
}

// decodeBody converts a page in a legacy charset to UTF-8 using the
// Content-Type header and meta tags.
func decodeBody(body []byte, contentType string) []byte {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || enc == nil {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		zap.L().Debug("local_http: charset decode failed", zap.String("charset", name), zap.Error(err))
		return body
	}
	return out
}

// HeadlessFetcher renders the page in headless Chrome. One browser is
// started on first use and shared until Close.
type HeadlessFetcher struct {
	timeout    time.Duration
	userAgent  string
	chromePath string

	once        sync.Once
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

// NewHeadlessFetcher creates the headless fetcher. chromePath may be empty
// to use the default lookup.
func NewHeadlessFetcher(timeout time.Duration, userAgent, chromePath string) *HeadlessFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HeadlessFetcher{timeout: timeout, userAgent: userAgent, chromePath: chromePath}
}

func (h *HeadlessFetcher) Name() string { return "headless" }

func (h *HeadlessFetcher) start() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if h.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(h.userAgent))
	}
	if h.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(h.chromePath))
	}
	h.allocCtx, h.cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
}

func (h *HeadlessFetcher) Fetch(ctx context.Context, id model.Identity) (*Page, bool, error) {
	h.once.Do(h.start)

	tabCtx, cancelTab := chromedp.NewContext(h.allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, h.timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context as well.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html, finalURL string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(id.Website),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "headless: render")
	}
	if len(html) < minPageBytes {
		return nil, false, eris.New("headless: empty page")
	}
	if finalURL == "" {
		finalURL = id.Website
	}
	return &Page{URL: finalURL, HTML: []byte(html), StatusCode: http.StatusOK}, true, nil
}

// Close stops the shared browser, if one was started.
func (h *HeadlessFetcher) Close() {
	if h.cancelAlloc != nil {
		h.cancelAlloc()
	}
}

// FirecrawlFetcher is the paid last resort.
type FirecrawlFetcher struct {
	client firecrawl.Client
}

// NewFirecrawlFetcher creates the firecrawl fetcher.
func NewFirecrawlFetcher(client firecrawl.Client) *FirecrawlFetcher {
	return &FirecrawlFetcher{client: client}
}

func (f *FirecrawlFetcher) Name() string { return "firecrawl" }

func (f *FirecrawlFetcher) Fetch(ctx context.Context, id model.Identity) (*Page, bool, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     id.Website,
		Formats: []string{firecrawl.FormatRawHTML},
	})
	if err != nil {
		return nil, false, eris.Wrap(err, "firecrawl: scrape")
	}
	body := resp.Data.Body()
	if len(body) < minPageBytes {
		return nil, false, nil
	}
	pageURL := resp.Data.Metadata.URL
	if pageURL == "" {
		pageURL = id.Website
	}
	status := resp.Data.Metadata.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return &Page{URL: pageURL, HTML: []byte(body), StatusCode: status}, true, nil
}

// PageCache is the subset of the store used for fetched pages.
type PageCache interface {
	GetCachedPage(ctx context.Context, urlHash string) ([]byte, error)
	SetCachedPage(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error
}

// SiteAdapter fetches the homepage through its chain, caching the HTML,
// and parses it once.
type SiteAdapter struct {
	chain *Chain[*Page]
	cache PageCache
	ttl   time.Duration
}

// NewSiteAdapter wraps a fetch chain. cache may be nil.
func NewSiteAdapter(chain *Chain[*Page], cache PageCache, ttl time.Duration) *SiteAdapter {
	return &SiteAdapter{chain: chain, cache: cache, ttl: ttl}
}

// Fetch always returns a record. A failed fetch leaves only URL and Error.
func (a *SiteAdapter) Fetch(ctx context.Context, id model.Identity) model.SiteFacts {
	log := zap.L().With(zap.String("url", id.Website))

	if a.cache != nil {
		cached, err := a.cache.GetCachedPage(ctx, store.URLHash(id.Website))
		if err != nil {
			log.Debug("site: cache lookup failed", zap.Error(err))
		}
		if len(cached) > 0 {
			facts := ParseSite(cached, id.Website)
			facts.DataSource = model.DataSourceLiveSite
			facts.Provider = "cache"
			return facts
		}
	}

	out := a.chain.Run(ctx, id)
	if !out.Found() {
		return model.SiteFacts{
			URL: id.Website,
			SourceMeta: model.SourceMeta{
				DataSource: model.DataSourceUnavailable,
				Error:      out.Err.Error(),
			},
		}
	}

	page := out.Value
	if a.cache != nil {
		if err := a.cache.SetCachedPage(ctx, store.URLHash(id.Website), page.HTML, a.ttl); err != nil {
			log.Debug("site: cache write failed", zap.Error(err))
		}
	}

	facts := ParseSite(page.HTML, page.URL)
	facts.Provider = out.Provider
	facts.DataSource = model.DataSourceLiveSite
	if out.Provider == "firecrawl" {
		facts.DataSource = model.DataSourceScrapeFallback
	}
	return facts
}

// stripBOM removes a UTF-8 byte order mark.
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
}
