package store

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

func configFor(driver, url string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, DatabaseURL: url}
}

func sampleRequest() model.AuditRequest {
	visitors := 800
	return model.AuditRequest{
		BusinessName: "Joe's Pizza",
		Website:      "https://joespizza.example",
		Location:     "Brooklyn, NY",
		Niche:        "pizza restaurant",
		Flags:        model.OperationalFlags{HasListing: true},
		Volume:       model.VolumeMetrics{MonthlyVisitors: &visitors},
		Goals:        []string{"more catering orders"},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetAudit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, model.AuditStatusPending, rec.Status)

		got, err := s.GetAudit(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, model.AuditStatusPending, got.Status)
		assert.Equal(t, "Joe's Pizza", got.Request.BusinessName)
		require.NotNil(t, got.Request.Volume.MonthlyVisitors)
		assert.Equal(t, 800, *got.Request.Volume.MonthlyVisitors)
		assert.Nil(t, got.Result)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("GetAuditNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetAudit(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("HappyLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		require.NoError(t, s.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing))

		result := &model.AuditResult{OverallScore: 42, OverallGrade: "F"}
		result.Categories.Set(&model.ProfileResult{CategoryBase: model.CategoryBase{Score: 0, DataSource: model.DataSourceUnavailable}})
		require.NoError(t, s.CompleteAudit(ctx, rec.ID, result))

		got, err := s.GetAudit(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusCompleted, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, 42, got.Result.OverallScore)
		require.NotNil(t, got.Result.Categories.Profile)
		assert.Equal(t, model.DataSourceUnavailable, got.Result.Categories.Profile.DataSource)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("TransitionRejectsReplay", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		require.NoError(t, s.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing))

		err = s.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrInvalidTransition))
	})

	t.Run("TransitionRejectsBackwards", func(t *testing.T) {
		s := newStore(t)
		err := s.TransitionAudit(context.Background(), "any", model.AuditStatusCompleted, model.AuditStatusProcessing)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrInvalidTransition))
	})

	t.Run("TransitionMissingAudit", func(t *testing.T) {
		s := newStore(t)
		err := s.TransitionAudit(context.Background(), "missing", model.AuditStatusPending, model.AuditStatusProcessing)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("CompleteRequiresProcessing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)

		err = s.CompleteAudit(ctx, rec.ID, &model.AuditResult{})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrInvalidTransition))
	})

	t.Run("ExactlyOneTerminalState", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		require.NoError(t, s.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing))
		require.NoError(t, s.FailAudit(ctx, rec.ID, "store exploded"))

		err = s.CompleteAudit(ctx, rec.ID, &model.AuditResult{})
		assert.True(t, eris.Is(err, ErrInvalidTransition))

		got, err := s.GetAudit(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusFailed, got.Status)
		assert.Equal(t, "store exploded", got.Error)
		assert.Nil(t, got.Result)
	})

	t.Run("PendingCanFail", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		require.NoError(t, s.FailAudit(ctx, rec.ID, "could not start"))

		err = s.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing)
		assert.True(t, eris.Is(err, ErrInvalidTransition))

		got, err := s.GetAudit(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AuditStatusFailed, got.Status)
	})

	t.Run("ReportURLOnlyAfterCompletion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		err = s.SetReportURL(ctx, rec.ID, "https://reports.example/1")
		assert.True(t, eris.Is(err, ErrInvalidTransition))

		require.NoError(t, s.TransitionAudit(ctx, rec.ID, model.AuditStatusPending, model.AuditStatusProcessing))
		require.NoError(t, s.CompleteAudit(ctx, rec.ID, &model.AuditResult{OverallScore: 70}))
		require.NoError(t, s.SetReportURL(ctx, rec.ID, "https://reports.example/1"))
		require.NoError(t, s.UnlockLead(ctx, rec.ID))

		got, err := s.GetAudit(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://reports.example/1", got.ReportURL)
		assert.True(t, got.LeadUnlocked)
		assert.Equal(t, 70, got.Result.OverallScore)
	})

	t.Run("UnlockLeadMissing", func(t *testing.T) {
		s := newStore(t)
		err := s.UnlockLead(context.Background(), "missing")
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("ListAuditsFilter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		_, err = s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)
		require.NoError(t, s.TransitionAudit(ctx, a.ID, model.AuditStatusPending, model.AuditStatusProcessing))

		all, err := s.ListAudits(ctx, AuditFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		processing, err := s.ListAudits(ctx, AuditFilter{Status: model.AuditStatusProcessing})
		require.NoError(t, err)
		require.Len(t, processing, 1)
		assert.Equal(t, a.ID, processing[0].ID)

		limited, err := s.ListAudits(ctx, AuditFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("Artifacts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec, err := s.CreateAudit(ctx, sampleRequest())
		require.NoError(t, err)

		art := &model.Artifact{
			AuditID:     rec.ID,
			Kind:        model.ArtifactGeoGridGeoJSON,
			ContentType: "application/geo+json",
			Data:        []byte(`{"type":"FeatureCollection","features":[]}`),
		}
		require.NoError(t, s.AddArtifact(ctx, art))
		assert.NotEmpty(t, art.ID)

		require.NoError(t, s.AddArtifact(ctx, &model.Artifact{
			AuditID:     rec.ID,
			Kind:        model.ArtifactChartImage,
			ContentType: "image/png",
			URL:         "https://cdn.example/chart.png",
		}))

		list, err := s.ListArtifacts(ctx, rec.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		got, err := s.GetArtifact(ctx, rec.ID, model.ArtifactGeoGridGeoJSON)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(got.Data))

		_, err = s.GetArtifact(ctx, rec.ID, "nope")
		assert.True(t, eris.Is(err, ErrNotFound))
	})
}
