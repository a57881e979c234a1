package source

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/jina"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/serp"
)

// SearchHit is one organic result.
type SearchHit struct {
	Position int
	Title    string
	Link     string
}

// SearchPage is one results page, normalized across search providers.
type SearchPage struct {
	Organic   []SearchHit
	LocalPack []SearchHit
}

// Searcher runs one web search.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query, location string) (*SearchPage, error)
}

// SerpSearcher uses the SerpAPI google engine, which returns both blocks.
type SerpSearcher struct {
	client serp.Client
}

// NewSerpSearcher creates the serp searcher.
func NewSerpSearcher(client serp.Client) *SerpSearcher { return &SerpSearcher{client: client} }

func (s *SerpSearcher) Name() string { return "serp" }

func (s *SerpSearcher) Search(ctx context.Context, query, location string) (*SearchPage, error) {
	resp, err := s.client.Search(ctx, serp.SearchRequest{Query: query, Location: location})
	if err != nil {
		return nil, eris.Wrap(err, "serp: search")
	}
	page := &SearchPage{}
	for i, r := range resp.OrganicResults {
		pos := r.Position
		if pos <= 0 {
			pos = i + 1
		}
		page.Organic = append(page.Organic, SearchHit{Position: pos, Title: r.Title, Link: r.Link})
	}
	for i, p := range resp.LocalResults.Places {
		page.LocalPack = append(page.LocalPack, SearchHit{Position: i + 1, Title: p.Title, Link: p.WebsiteLink()})
	}
	return page, nil
}

// JinaSearcher uses the reader service's search, which has organic results only.
type JinaSearcher struct {
	client jina.Client
}

// NewJinaSearcher creates the jina searcher.
func NewJinaSearcher(client jina.Client) *JinaSearcher { return &JinaSearcher{client: client} }

func (s *JinaSearcher) Name() string { return "jina" }

func (s *JinaSearcher) Search(ctx context.Context, query, _ string) (*SearchPage, error) {
	resp, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}
	page := &SearchPage{}
	for i, r := range resp.Data {
		page.Organic = append(page.Organic, SearchHit{Position: i + 1, Title: r.Title, Link: r.URL})
	}
	return page, nil
}

// RankQueries are the four searches tracked for every audit.
func RankQueries(id model.Identity) []string {
	return []string{
		fmt.Sprintf("%s %s", id.Niche, id.Location),
		fmt.Sprintf("%s near me", id.Niche),
		fmt.Sprintf("best %s %s", id.Niche, id.Location),
		id.Name,
	}
}

// RankTracker runs the rank queries one at a time, spaced by delay and a
// token-bucket limiter shared by every audit in the process.
type RankTracker struct {
	searchers []Searcher
	breakers  *resilience.Breakers
	retry     resilience.RetryConfig
	delay     time.Duration
	limiter   *rate.Limiter
}

// NewRankTracker creates a tracker. ratePerSec <= 0 disables the limiter.
func NewRankTracker(searchers []Searcher, breakers *resilience.Breakers, retry resilience.RetryConfig, delay time.Duration, ratePerSec float64) *RankTracker {
	t := &RankTracker{searchers: searchers, breakers: breakers, retry: retry, delay: delay}
	if ratePerSec > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return t
}

// Name is the chain's key in the order file.
func (t *RankTracker) Name() string { return "rank" }

// Reorder keeps only the named searchers, in order.
func (t *RankTracker) Reorder(order []string) {
	t.searchers = reorderNamed(t.searchers, order, "rank", func(s Searcher) string { return s.Name() })
}

// Fetch always returns a record. Queries that fail on every searcher are
// kept with their error and no position.
func (t *RankTracker) Fetch(ctx context.Context, id model.Identity) model.RankFacts {
	log := zap.L().With(zap.String("business", id.Name), zap.String("domain", id.Domain))
	facts := model.RankFacts{}
	var providers []string
	var failures []string

	for i, q := range RankQueries(id) {
		if i > 0 && t.delay > 0 {
			if err := sleepCtx(ctx, t.delay); err != nil {
				break
			}
		}
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				break
			}
		}

		qr := model.QueryRank{Query: q}
		page, provider, err := t.search(ctx, q, id.Location)
		if err != nil {
			qr.Error = err.Error()
			failures = append(failures, q+": "+err.Error())
			log.Warn("rank: query failed", zap.String("query", q), zap.Error(err))
		} else {
			qr.Position, qr.InLocalPack = locate(page, id.Domain)
			if !slices.Contains(providers, provider) {
				providers = append(providers, provider)
			}
		}
		facts.Queries = append(facts.Queries, qr)
	}

	facts.AveragePosition = averagePosition(facts.Queries)
	for _, q := range facts.Queries {
		if q.InLocalPack {
			facts.InLocalPack = true
		}
	}

	if len(providers) == 0 {
		facts.DataSource = model.DataSourceUnavailable
		facts.Error = strings.Join(failures, "; ")
		if facts.Error == "" {
			facts.Error = "rank: no queries ran"
		}
		return facts
	}
	facts.DataSource = model.DataSourceStructuredSearch
	facts.Provider = strings.Join(providers, ",")
	return facts
}

func (t *RankTracker) search(ctx context.Context, query, location string) (*SearchPage, string, error) {
	var reasons []string
	for _, s := range t.searchers {
		var b *resilience.Breaker
		if t.breakers != nil {
			b = t.breakers.For(s.Name())
		}
		retry := t.retry
		retry.OnRetry = resilience.LogRetries(s.Name(), "rank")
		page, err := resilience.Call(ctx, b, retry, func(ctx context.Context) (*SearchPage, error) {
			return s.Search(ctx, query, location)
		})
		if err == nil {
			return page, s.Name(), nil
		}
		reasons = append(reasons, s.Name()+": "+err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	if len(reasons) == 0 {
		return nil, "", eris.New("rank: no search providers configured")
	}
	return nil, "", eris.New(strings.Join(reasons, "; "))
}

// locate finds the subject's organic position and local-pack membership.
func locate(page *SearchPage, domain string) (*int, bool) {
	if page == nil || domain == "" {
		return nil, false
	}
	var pos *int
	for _, h := range page.Organic {
		if match.URLMatchesDomain(h.Link, domain) {
			p := h.Position
			pos = &p
			break
		}
	}
	inPack := false
	for _, h := range page.LocalPack {
		if match.URLMatchesDomain(h.Link, domain) {
			inPack = true
			break
		}
	}
	return pos, inPack
}

// averagePosition is the mean over queries that found a position, or nil.
func averagePosition(queries []model.QueryRank) *float64 {
	sum, n := 0, 0
	for _, q := range queries {
		if q.Position != nil {
			sum += *q.Position
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
