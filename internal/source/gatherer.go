package source

import (
	"context"
	"strings"
	"sync"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// NewIdentity derives the lookup identity from an audit request.
func NewIdentity(req model.AuditRequest) model.Identity {
	return model.Identity{
		Name:       strings.TrimSpace(req.BusinessName),
		Website:    strings.TrimSpace(req.Website),
		Domain:     match.SiteKey(req.Website),
		Location:   strings.TrimSpace(req.Location),
		Niche:      strings.TrimSpace(req.Niche),
		ProfileURL: strings.TrimSpace(req.ProfileURL),
	}
}

// Facts is the per-audit view of every source. Each method fetches on first
// call and returns the same record afterwards, so concurrent analyzers share
// one lookup per source.
type Facts interface {
	Identity() model.Identity
	Profile() model.ProfileFacts
	Competitors() model.CompetitorSet
	Site() model.SiteFacts
	Rank() model.RankFacts
	Answer() model.AnswerFacts
}

// Gatherer memoizes the adapters for one audit.
type Gatherer struct {
	id          model.Identity
	profile     func() model.ProfileFacts
	competitors func() model.CompetitorSet
	site        func() model.SiteFacts
	rank        func() model.RankFacts
	answer      func() model.AnswerFacts
}

// Gather binds the adapters to one identity. ctx is used for every lookup,
// so it should outlive the request that started the audit.
func (s *Sources) Gather(ctx context.Context, id model.Identity) *Gatherer {
	g := &Gatherer{id: id}
	g.profile = sync.OnceValue(func() model.ProfileFacts { return s.Profile.Fetch(ctx, id) })
	g.competitors = sync.OnceValue(func() model.CompetitorSet { return s.Competitors.Fetch(ctx, id) })
	g.site = sync.OnceValue(func() model.SiteFacts { return s.Site.Fetch(ctx, id) })
	g.rank = sync.OnceValue(func() model.RankFacts { return s.Rank.Fetch(ctx, id) })
	g.answer = sync.OnceValue(func() model.AnswerFacts {
		set := g.competitors()
		names := make([]string, 0, len(set.Competitors))
		for _, c := range set.Competitors {
			names = append(names, c.Name)
		}
		return s.Answer.Fetch(ctx, id, names)
	})
	return g
}

func (g *Gatherer) Identity() model.Identity         { return g.id }
func (g *Gatherer) Profile() model.ProfileFacts      { return g.profile() }
func (g *Gatherer) Competitors() model.CompetitorSet { return g.competitors() }
func (g *Gatherer) Site() model.SiteFacts            { return g.site() }
func (g *Gatherer) Rank() model.RankFacts            { return g.rank() }
func (g *Gatherer) Answer() model.AnswerFacts        { return g.answer() }
