// Package api exposes audits over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/audit"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/store"
)

// SecretHeader carries the dashboard shared secret.
const SecretHeader = "X-Dashboard-Secret"

const maxBodyBytes = 1 << 20

// Submitter starts audits.
type Submitter interface {
	Submit(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error)
}

// Server holds the HTTP handlers.
type Server struct {
	store   store.Store
	audits  Submitter
	secret  string
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithDashboardSecret requires secret on the audit listing endpoint.
func WithDashboardSecret(secret string) Option {
	return func(s *Server) { s.secret = secret }
}

// WithAllowedOrigins sets the CORS allow list. Defaults to "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a Server.
func New(st store.Store, audits Submitter, opts ...Option) *Server {
	s := &Server{store: st, audits: audits, origins: []string{"*"}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SecretHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/audits", func(r chi.Router) {
		r.Post("/", s.createAudit)
		r.With(s.requireSecret).Get("/", s.listAudits)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getAudit)
			r.Get("/geogrid.geojson", s.getGeoGrid)
			r.Get("/artifacts", s.listArtifacts)
			r.Put("/report", s.setReport)
			r.Post("/unlock", s.unlock)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	var req model.AuditRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.audits.Submit(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     rec.ID,
		"status": string(rec.Status),
	})
}

func (s *Server) listAudits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AuditFilter{Status: model.AuditStatus(q.Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	var err error
	if filter.Limit, err = intParam(q, "limit"); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q, "offset"); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	audits, err := s.store.ListAudits(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	if audits == nil {
		audits = []model.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, audits)
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetAudit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getGeoGrid(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetArtifact(r.Context(), chi.URLParam(r, "id"), model.ArtifactGeoGridGeoJSON)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(a.Data) //nolint:errcheck
}

// listArtifacts returns artifact metadata; inline data is left out.
func (s *Server) listArtifacts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetAudit(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	arts, err := s.store.ListArtifacts(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]model.Artifact, 0, len(arts))
	for _, a := range arts {
		a.Data = nil
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) setReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := url.Parse(body.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}
	if err := s.store.SetReportURL(r.Context(), chi.URLParam(r, "id"), body.URL); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unlock(w http.ResponseWriter, r *http.Request) {
	if err := s.store.UnlockLead(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSecret rejects requests without the dashboard secret. An empty
// secret disables the check.
func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret != "" &&
			subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(s.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, audit.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "audit is not in a state that allows this change")
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
