// Package audit runs one visibility audit end to end: it gathers source
// facts, runs the category analyzers and the geo sampler concurrently,
// synthesizes the summary, revenue estimate and plan, and persists the
// record through its lifecycle.
package audit

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/analyzer"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/estimate"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/geogrid"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/scorer"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/source"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/store"
)

// GatherFunc binds the sources to one audit identity.
type GatherFunc func(ctx context.Context, id model.Identity) source.Facts

// FromSources adapts a wired source set to a GatherFunc.
func FromSources(s *source.Sources) GatherFunc {
	return func(ctx context.Context, id model.Identity) source.Facts {
		return s.Gather(ctx, id)
	}
}

// GridSampler produces the geo-visibility grid.
type GridSampler interface {
	Sample(ctx context.Context, req geogrid.Request) *model.GeoGrid
}

// Notifier receives completed audits. Notify must not block for long; it
// runs on its own goroutine after the record is written.
type Notifier interface {
	Notify(ctx context.Context, rec *model.AuditRecord)
}

// Service owns audit submission and execution.
type Service struct {
	store    store.Store
	gather   GatherFunc
	analyzer *analyzer.Analyzer
	weights  scorer.Weights

	grid    GridSampler
	gridCfg config.GeoGridConfig

	notifier Notifier

	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithGeoGrid enables the geo-visibility sampler.
func WithGeoGrid(s GridSampler, cfg config.GeoGridConfig) Option {
	return func(svc *Service) {
		svc.grid = s
		svc.gridCfg = cfg
	}
}

// WithNotifier sets the completion notifier (CRM dispatch).
func WithNotifier(n Notifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

// WithWeights overrides the category weights used for the overall score.
func WithWeights(w scorer.Weights) Option {
	return func(svc *Service) { svc.weights = w }
}

// NewService creates an audit service.
func NewService(st store.Store, gather GatherFunc, an *analyzer.Analyzer, opts ...Option) *Service {
	s := &Service{
		store:    st,
		gather:   gather,
		analyzer: an,
		weights:  scorer.DefaultWeights(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates and persists the request, marks it processing and
// starts the run in the background. The returned record is already in the
// processing state. The run does not observe ctx cancellation.
func (s *Service) Submit(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error) {
	rec, err := s.start(ctx, req)
	if err != nil {
		return nil, err
	}

	out := *rec
	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(runCtx, rec) //nolint:errcheck // outcome is persisted
	}()
	return &out, nil
}

// RunInline submits the request and runs it on the calling goroutine. It
// returns the stored record after the run finishes.
func (s *Service) RunInline(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error) {
	rec, err := s.start(ctx, req)
	if err != nil {
		return nil, err
	}
	runErr := s.Run(ctx, rec)

	stored, err := s.store.GetAudit(ctx, rec.ID)
	if err != nil {
		return nil, eris.Wrap(err, "audit: reload record")
	}
	if runErr != nil {
		return stored, runErr
	}
	return stored, nil
}

// Wait blocks until every background run and notification has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) start(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error) {
	req, err := Validate(req)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.CreateAudit(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "audit: create record")
	}
	if err := s.store.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing); err != nil {
		if ferr := s.store.FailAudit(context.WithoutCancel(ctx), rec.ID, "could not start: "+err.Error()); ferr != nil {
			zap.L().Error("audit: fail unstarted record", zap.String("audit_id", rec.ID), zap.Error(ferr))
		}
		return nil, eris.Wrapf(err, "audit: mark %s processing", rec.ID)
	}
	rec.Status = model.AuditStatusProcessing

	zap.L().Info("audit: submitted",
		zap.String("audit_id", rec.ID),
		zap.String("business", req.BusinessName),
		zap.String("location", req.Location),
	)
	return rec, nil
}

// Run executes a processing audit and writes its terminal state. An error
// is returned only when the record was marked failed.
func (s *Service) Run(ctx context.Context, rec *model.AuditRecord) error {
	log := zap.L().With(zap.String("audit_id", rec.ID))
	start := time.Now()

	result, err := s.execute(ctx, rec)
	if err != nil {
		log.Error("audit: run failed", zap.Error(err))
		if ferr := s.store.FailAudit(ctx, rec.ID, err.Error()); ferr != nil {
			log.Error("audit: failed to mark record failed", zap.Error(ferr))
		}
		return err
	}

	if err := s.store.CompleteAudit(ctx, rec.ID, result); err != nil {
		err = eris.Wrap(err, "audit: write result")
		log.Error("audit: run failed", zap.Error(err))
		if ferr := s.store.FailAudit(ctx, rec.ID, err.Error()); ferr != nil {
			log.Error("audit: failed to mark record failed", zap.Error(ferr))
		}
		return err
	}

	rec.Status = model.AuditStatusCompleted
	rec.Result = result
	now := time.Now().UTC()
	rec.CompletedAt = &now

	s.saveGrid(ctx, rec.ID, result.GeoGrid)

	log.Info("audit: completed",
		zap.Int("overall_score", result.OverallScore),
		zap.String("grade", result.OverallGrade),
		zap.Duration("elapsed", time.Since(start)),
	)

	if s.notifier != nil {
		notifyCtx := context.WithoutCancel(ctx)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.notifier.Notify(notifyCtx, rec)
		}()
	}
	return nil
}

// execute runs both waves. Analyzer degradation is absorbed inside each
// category; only panics escape as errors.
func (s *Service) execute(ctx context.Context, rec *model.AuditRecord) (*model.AuditResult, error) {
	req := rec.Request
	id := source.NewIdentity(req)
	facts := s.gather(ctx, id)

	var (
		mu    sync.Mutex
		cats  model.Categories
		bench *model.Benchmark
		grid  *model.GeoGrid
	)
	set := func(r model.CategoryResult) {
		mu.Lock()
		cats.Set(r)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("profile", func() { set(s.analyzer.Profile(gctx, facts)) }))
	g.Go(guard("seo", func() { set(s.analyzer.SEO(gctx, facts)) }))
	g.Go(guard("competitive", func() {
		r, b := s.analyzer.Competitive(gctx, req.Flags, facts)
		set(r)
		mu.Lock()
		bench = b
		mu.Unlock()
	}))
	g.Go(guard("ai_discovery", func() { set(s.analyzer.AI(gctx, facts)) }))
	g.Go(guard("lead_capture", func() { set(s.analyzer.LeadCapture(gctx, facts)) }))
	g.Go(guard("follow_up", func() { set(s.analyzer.FollowUp(gctx, req.Flags, facts)) }))
	if s.grid != nil && s.gridCfg.Enabled {
		g.Go(guard("geogrid", func() {
			out := s.sampleGrid(gctx, id, facts)
			mu.Lock()
			grid = out
			mu.Unlock()
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "audit: analysis wave")
	}

	overall, grade := scorer.Overall(cats.Scores(), s.weights)

	result := &model.AuditResult{
		Categories:   cats,
		Benchmark:    bench,
		GeoGrid:      grid,
		OverallScore: overall,
		OverallGrade: grade,
	}

	g2, g2ctx := errgroup.WithContext(ctx)
	g2.Go(guard("summary", func() {
		result.Summary = s.analyzer.Summary(g2ctx, id, &cats, bench, overall, grade)
	}))
	g2.Go(guard("revenue", func() {
		result.Revenue = estimate.Opportunity(req, cats.Scores())
	}))
	g2.Go(guard("plan", func() {
		result.Plan = s.analyzer.Plan(g2ctx, id, &cats, bench)
	}))
	if err := g2.Wait(); err != nil {
		return nil, eris.Wrap(err, "audit: synthesis wave")
	}

	return result, nil
}

func (s *Service) sampleGrid(ctx context.Context, id model.Identity, facts source.Facts) *model.GeoGrid {
	profile := facts.Profile()
	gr := geogrid.Request{
		Identity:    id,
		Center:      profile.Location,
		Address:     profile.Address,
		Size:        s.gridCfg.Size,
		RadiusMiles: s.gridCfg.RadiusMiles,
	}
	return s.grid.Sample(ctx, gr)
}

// saveGrid stores the GeoJSON export of a grid that has data. Failures are
// logged; the audit is already complete.
func (s *Service) saveGrid(ctx context.Context, auditID string, g *model.GeoGrid) {
	if g == nil || !g.HasData() {
		return
	}
	data, err := geogrid.MarshalGeoJSON(g)
	if err != nil {
		zap.L().Warn("audit: encode geogrid", zap.String("audit_id", auditID), zap.Error(err))
		return
	}
	err = s.store.AddArtifact(ctx, &model.Artifact{
		AuditID:     auditID,
		Kind:        model.ArtifactGeoGridGeoJSON,
		ContentType: geogrid.ContentType,
		Data:        data,
	})
	if err != nil {
		zap.L().Warn("audit: store geogrid artifact", zap.String("audit_id", auditID), zap.Error(err))
	}
}

// guard turns a panic in fn into an error for the errgroup.
func guard(name string, fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("audit: task panicked",
					zap.String("task", name),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = eris.Errorf("audit: %s panicked: %v", name, r)
			}
		}()
		fn()
		return nil
	}
}

// ResultJSON renders a result for CLI output.
func ResultJSON(rec *model.AuditRecord) ([]byte, error) {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, eris.Wrapf(err, "audit: encode %s", rec.ID)
	}
	return b, nil
}
