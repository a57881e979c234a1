package source

import (
	"net/http"
	"time"

	oaioption "github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/firecrawl"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/geocode"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/google"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/jina"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/openai"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/perplexity"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/serp"
)

// Clients holds the external API clients. A nil client means its key is
// not configured and every chain simply omits it.
type Clients struct {
	Places     google.Client
	Geocode    geocode.Client
	Serp       serp.Client
	Jina       jina.Client
	Firecrawl  firecrawl.Client
	Perplexity perplexity.Client
	OpenAI     openai.Client
}

// NewClients builds the clients that have keys. Jina works without a key
// at a lower rate limit, so it is always present.
func NewClients(cfg *config.Config) Clients {
	var c Clients
	if cfg.Google.Key != "" {
		c.Places = google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.PlacesBaseURL))
		c.Geocode = geocode.NewClient(cfg.Google.Key, geocode.WithBaseURL(cfg.Google.GeocodeBaseURL), geocode.WithRateLimit(10))
	}
	if cfg.Serp.Key != "" {
		c.Serp = serp.NewClient(cfg.Serp.Key, serp.WithBaseURL(cfg.Serp.BaseURL))
	}
	// Chains retry at their own level.
	c.Jina = jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
		jina.WithRetry(resilience.RetryConfig{MaxAttempts: 1}),
	)
	if cfg.Firecrawl.Key != "" {
		c.Firecrawl = firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	}
	if cfg.Perplexity.Key != "" {
		c.Perplexity = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
			perplexity.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	}
	if cfg.OpenAI.Key != "" {
		var opts []oaioption.RequestOption
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, oaioption.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		c.OpenAI = openai.NewClient(cfg.OpenAI.Key, opts...)
	}
	return c
}

// Sources is the full set of adapters used by an audit.
type Sources struct {
	Profile     *ProfileAdapter
	Competitors *CompetitorAdapter
	Site        *SiteAdapter
	Rank        *RankTracker
	Answer      *AnswerAdapter

	headless *HeadlessFetcher
}

// New wires the adapters from the available clients. cache may be nil.
func New(cfg *config.Config, clients Clients, cache PageCache, breakers *resilience.Breakers) (*Sources, error) {
	retry := resilience.NewRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)

	var profile []Provider[model.ProfileFacts]
	profile = append(profile, NewProfileLinkProvider(clients.Jina))
	if clients.Places != nil {
		profile = append(profile, NewPlacesProfileProvider(clients.Places))
	}

	var competitors []Provider[[]model.Competitor]
	if clients.Places != nil {
		competitors = append(competitors, NewPlacesCompetitorProvider(clients.Places))
	}
	if clients.Serp != nil {
		competitors = append(competitors, NewSearchPageCompetitorProvider(clients.Serp))
	}

	timeout := time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
	fetchers := []Provider[*Page]{NewLocalHTTPFetcher(timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxBodyKB)}
	var headless *HeadlessFetcher
	if cfg.Fetch.Headless {
		headless = NewHeadlessFetcher(2*timeout, cfg.Fetch.UserAgent, cfg.Fetch.ChromePath)
		fetchers = append(fetchers, headless)
	}
	if clients.Firecrawl != nil {
		fetchers = append(fetchers, NewFirecrawlFetcher(clients.Firecrawl))
	}

	var searchers []Searcher
	if clients.Serp != nil {
		searchers = append(searchers, NewSerpSearcher(clients.Serp))
	}
	searchers = append(searchers, NewJinaSearcher(clients.Jina))

	var answerers []Provider[Answer]
	if clients.Perplexity != nil {
		answerers = append(answerers, NewPerplexityAnswerer(clients.Perplexity))
	}
	if clients.OpenAI != nil {
		answerers = append(answerers, NewOpenAIAnswerer(clients.OpenAI, cfg.OpenAI.AnswerModel))
	}

	profileChain := NewChain("profile", breakers, retry, profile...)
	competitorChain := NewChain("competitors", breakers, retry, competitors...)
	fetchChain := NewChain("fetch", breakers, retry, fetchers...)
	answerChain := NewChain("answer", breakers, retry, answerers...)
	rank := NewRankTracker(searchers, breakers, retry,
		time.Duration(cfg.Rank.DelayMs)*time.Millisecond, cfg.Rank.RatePerSec)

	if cfg.Chains.File != "" {
		order, err := LoadOrder(cfg.Chains.File)
		if err != nil {
			return nil, err
		}
		order.Apply(profileChain, competitorChain, fetchChain, answerChain, rank)
		zap.L().Info("source: applied chain order", zap.String("file", cfg.Chains.File))
	}

	ttl := time.Duration(cfg.Store.CacheTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Sources{
		Profile:     NewProfileAdapter(profileChain),
		Competitors: NewCompetitorAdapter(competitorChain),
		Site:        NewSiteAdapter(fetchChain, cache, ttl),
		Rank:        rank,
		Answer:      NewAnswerAdapter(answerChain),
		headless:    headless,
	}, nil
}

// Close releases the headless browser, if one was started.
func (s *Sources) Close() {
	if s.headless != nil {
		s.headless.Close()
	}
}
