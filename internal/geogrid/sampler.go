package geogrid

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/resilience"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/geocode"
)

const defaultSize = 5

// Request describes one grid run.
type Request struct {
	Identity model.Identity
	// Keyword defaults to the identity's niche.
	Keyword string
	// Center is used as-is when set; otherwise Address, then the identity
	// location, is geocoded.
	Center      *model.LatLng
	Address     string
	Size        int
	RadiusMiles float64
}

// Sampler runs the grid lookups one cell at a time.
type Sampler struct {
	lookups  []Lookup
	geocoder geocode.Client
	breakers *resilience.Breakers
	retry    resilience.RetryConfig
	delay    time.Duration
}

// NewSampler creates a Sampler. delay is waited between consecutive cells.
func NewSampler(lookups []Lookup, geocoder geocode.Client, breakers *resilience.Breakers, retry resilience.RetryConfig, delay time.Duration) *Sampler {
	return &Sampler{lookups: lookups, geocoder: geocoder, breakers: breakers, retry: retry, delay: delay}
}

// Name is the chain name used in the provider order file.
func (s *Sampler) Name() string { return "geogrid" }

// Providers returns lookup names in try order.
func (s *Sampler) Providers() []string {
	out := make([]string, len(s.lookups))
	for i, l := range s.lookups {
		out[i] = l.Name()
	}
	return out
}

// Reorder moves the named lookups to the front, in the given order.
func (s *Sampler) Reorder(order []string) {
	var front, rest []Lookup
	for _, name := range order {
		for _, l := range s.lookups {
			if l.Name() == name && !slices.Contains(front, l) {
				front = append(front, l)
			}
		}
	}
	for _, l := range s.lookups {
		if !slices.Contains(front, l) {
			rest = append(rest, l)
		}
	}
	s.lookups = append(front, rest...)
}

// Sample always returns a grid. A grid whose center cannot be resolved or
// whose every lookup failed is marked unavailable with the reason.
func (s *Sampler) Sample(ctx context.Context, req Request) *model.GeoGrid {
	size := req.Size
	if !ValidSize(size) {
		if size != 0 {
			zap.L().Warn("geogrid: unsupported size, using default", zap.Int("size", size))
		}
		size = defaultSize
	}
	keyword := req.Keyword
	if keyword == "" {
		keyword = req.Identity.Niche
	}
	log := zap.L().With(zap.String("business", req.Identity.Name), zap.String("keyword", keyword), zap.Int("size", size))

	g := &model.GeoGrid{Keyword: keyword, Size: size, RadiusMiles: req.RadiusMiles}

	center, err := s.resolveCenter(ctx, req)
	if err != nil {
		log.Warn("geogrid: no center", zap.Error(err))
		g.DataSource = model.DataSourceUnavailable
		g.Error = err.Error()
		return g
	}
	g.Center = center
	g.Cells = Lattice(center, size, req.RadiusMiles)

	var providers []string
	failed := 0
	for i := range size * size {
		if i > 0 && s.delay > 0 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				break
			}
		}
		cell := &g.Cells[i/size][i%size]
		listings, provider, err := s.lookup(ctx, keyword, model.LatLng{Lat: cell.Lat, Lng: cell.Lng}, req.RadiusMiles)
		if err != nil {
			failed++
			cell.Error = err.Error()
			log.Debug("geogrid: cell lookup failed", zap.Int("row", cell.Row), zap.Int("col", cell.Col), zap.Error(err))
			continue
		}
		cell.Rank, cell.NearbyCompetitors = rankIn(listings, req.Identity)
		if !slices.Contains(providers, provider) {
			providers = append(providers, provider)
		}
	}

	Aggregate(g)
	if len(providers) == 0 {
		g.DataSource = model.DataSourceUnavailable
		g.Error = "geogrid: every cell lookup failed"
		if ctx.Err() != nil {
			g.Error = "geogrid: " + ctx.Err().Error()
		}
		return g
	}
	g.DataSource = model.DataSourceStructuredSearch
	g.Provider = strings.Join(providers, ",")

	log.Info("geogrid: sampled",
		zap.Int("ranked_cells", g.RankedCells),
		zap.Int("failed_cells", failed),
		zap.Float64("average_rank", g.AverageRank),
		zap.Float64("visibility_percent", g.VisibilityPercent),
	)
	return g
}

func (s *Sampler) resolveCenter(ctx context.Context, req Request) (model.LatLng, error) {
	if req.Center != nil {
		return *req.Center, nil
	}
	if s.geocoder == nil {
		return model.LatLng{}, eris.New("geogrid: no coordinates and no geocoder configured")
	}
	var reasons []string
	for _, addr := range []string{req.Address, req.Identity.Location} {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		res, err := s.geocoder.Geocode(ctx, addr)
		if err != nil {
			reasons = append(reasons, err.Error())
			continue
		}
		if res == nil || !res.Matched {
			reasons = append(reasons, "no match for "+addr)
			continue
		}
		return model.LatLng{Lat: res.Latitude, Lng: res.Longitude}, nil
	}
	if len(reasons) == 0 {
		return model.LatLng{}, eris.New("geogrid: no address to geocode")
	}
	return model.LatLng{}, eris.Errorf("geogrid: geocode: %s", strings.Join(reasons, "; "))
}

func (s *Sampler) lookup(ctx context.Context, keyword string, at model.LatLng, radiusMiles float64) ([]Listing, string, error) {
	var reasons []string
	for _, l := range s.lookups {
		var b *resilience.Breaker
		if s.breakers != nil {
			b = s.breakers.For(l.Name())
		}
		listings, err := resilience.Call(ctx, b, s.retry, func(ctx context.Context) ([]Listing, error) {
			return l.Search(ctx, keyword, at, radiusMiles)
		})
		if err == nil {
			return listings, l.Name(), nil
		}
		reasons = append(reasons, l.Name()+": "+err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	if len(reasons) == 0 {
		return nil, "", eris.New("geogrid: no lookups configured")
	}
	return nil, "", eris.New(strings.Join(reasons, "; "))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
