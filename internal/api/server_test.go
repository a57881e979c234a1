package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/audit"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/store"
)

// createOnly validates and persists without running anything.
type createOnly struct {
	st store.Store
}

func (c *createOnly) Submit(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error) {
	req, err := audit.Validate(req)
	if err != nil {
		return nil, err
	}
	return c.st.CreateAudit(ctx, req)
}

func newTestServer(t *testing.T, opts ...Option) (http.Handler, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st, &createOnly{st: st}, opts...).Routes(), st
}

func joesRequest() model.AuditRequest {
	return model.AuditRequest{
		BusinessName: "Joe's Pizza",
		Website:      "joespizza.example",
		Location:     "Brooklyn, NY",
		Niche:        "pizza restaurant",
	}
}

func completedAudit(t *testing.T, st store.Store) string {
	t.Helper()
	ctx := context.Background()
	rec, err := st.CreateAudit(ctx, joesRequest())
	require.NoError(t, err)
	require.NoError(t, st.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing))
	require.NoError(t, st.CompleteAudit(ctx, rec.ID, &model.AuditResult{OverallScore: 55, OverallGrade: "F"}))
	return rec.ID
}

func do(h http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body) //nolint:errcheck
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rr := do(h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateAudit_Accepted(t *testing.T) {
	h, st := newTestServer(t)
	rr := do(h, http.MethodPost, "/audits", joesRequest())
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, "pending", resp["status"])

	rec, err := st.GetAudit(context.Background(), resp["id"])
	require.NoError(t, err)
	assert.Equal(t, "https://joespizza.example", rec.Request.Website)
}

func TestCreateAudit_BadBody(t *testing.T) {
	h, _ := newTestServer(t)
	rr := do(h, http.MethodPost, "/audits", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestCreateAudit_MissingFields(t *testing.T) {
	h, _ := newTestServer(t)
	rr := do(h, http.MethodPost, "/audits", model.AuditRequest{BusinessName: "Joe's Pizza"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "website is required")
}

func TestListAudits_Secret(t *testing.T) {
	h, st := newTestServer(t, WithDashboardSecret("s3cret"))
	completedAudit(t, st)

	rr := do(h, http.MethodGet, "/audits", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodGet, "/audits", nil, SecretHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodGet, "/audits?status=completed", nil, SecretHeader, "s3cret")
	require.Equal(t, http.StatusOK, rr.Code)
	var audits []model.AuditRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &audits))
	require.Len(t, audits, 1)
	assert.Equal(t, 55, audits[0].Result.OverallScore)
}

func TestListAudits_BadParams(t *testing.T) {
	h, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/audits?status=archived", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/audits?limit=ten", nil).Code)

	rr := do(h, http.MethodGet, "/audits", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestGetAudit(t *testing.T) {
	h, st := newTestServer(t)
	id := completedAudit(t, st)

	rr := do(h, http.MethodGet, "/audits/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec model.AuditRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, model.AuditStatusCompleted, rec.Status)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/audits/missing", nil).Code)
}

func TestGeoGridArtifact(t *testing.T) {
	h, st := newTestServer(t)
	id := completedAudit(t, st)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/audits/"+id+"/geogrid.geojson", nil).Code)

	require.NoError(t, st.AddArtifact(context.Background(), &model.Artifact{
		AuditID:     id,
		Kind:        model.ArtifactGeoGridGeoJSON,
		ContentType: "application/geo+json",
		Data:        []byte(`{"type":"FeatureCollection","features":[]}`),
	}))

	rr := do(h, http.MethodGet, "/audits/"+id+"/geogrid.geojson", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/geo+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "FeatureCollection")

	rr = do(h, http.MethodGet, "/audits/"+id+"/artifacts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var arts []model.Artifact
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &arts))
	require.Len(t, arts, 1)
	assert.Nil(t, arts[0].Data)
	assert.Equal(t, model.ArtifactGeoGridGeoJSON, arts[0].Kind)
}

func TestSetReport(t *testing.T) {
	h, st := newTestServer(t)
	id := completedAudit(t, st)

	rr := do(h, http.MethodPut, "/audits/"+id+"/report", map[string]string{"url": "https://reports.example/" + id})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rec, err := st.GetAudit(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rec.ReportURL, id))

	rr = do(h, http.MethodPut, "/audits/"+id+"/report", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSetReport_NotCompleted(t *testing.T) {
	h, st := newTestServer(t)
	rec, err := st.CreateAudit(context.Background(), joesRequest())
	require.NoError(t, err)

	rr := do(h, http.MethodPut, "/audits/"+rec.ID+"/report", map[string]string{"url": "https://reports.example/x"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUnlock(t *testing.T) {
	h, st := newTestServer(t)
	id := completedAudit(t, st)

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodPost, "/audits/"+id+"/unlock", nil).Code)
	rec, err := st.GetAudit(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, rec.LeadUnlocked)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/audits/missing/unlock", nil).Code)
}

func TestCORS(t *testing.T) {
	h, _ := newTestServer(t, WithAllowedOrigins([]string{"https://dashboard.example"}))

	req := httptest.NewRequest(http.MethodOptions, "/audits", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://dashboard.example", rr.Header().Get("Access-Control-Allow-Origin"))
}
