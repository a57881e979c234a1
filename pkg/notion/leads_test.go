package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpsertLead_CreatesWhenMissing(t *testing.T) {
	db := new(MockLeadsDB)
	ctx := context.Background()

	db.On("FindLead", ctx, "a1").Return("", nil).Once()
	db.On("CreateLead", ctx, mock.MatchedBy(func(props notionapi.Properties) bool {
		return props[PropAuditID] != nil && props[PropGrade] != nil
	})).Return("new-page", nil).Once()

	id, err := UpsertLead(ctx, db, Lead{AuditID: "a1", Name: "Joe's Pizza", Score: 62, Grade: "D"})
	require.NoError(t, err)
	assert.Equal(t, "new-page", id)
	db.AssertExpectations(t)
}

func TestUpsertLead_UpdatesExisting(t *testing.T) {
	db := new(MockLeadsDB)
	ctx := context.Background()

	db.On("FindLead", ctx, "a1").Return("old-page", nil).Once()
	db.On("UpdateLead", ctx, "old-page", mock.AnythingOfType("notionapi.Properties")).Return(nil).Once()

	id, err := UpsertLead(ctx, db, Lead{AuditID: "a1", Name: "Joe's Pizza"})
	require.NoError(t, err)
	assert.Equal(t, "old-page", id)
	db.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
	db.AssertExpectations(t)
}

func TestUpsertLead_FindError(t *testing.T) {
	db := new(MockLeadsDB)
	ctx := context.Background()

	db.On("FindLead", ctx, "a1").Return("", assert.AnError)

	_, err := UpsertLead(ctx, db, Lead{AuditID: "a1"})
	require.ErrorIs(t, err, assert.AnError)
	db.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
}

func TestUpsertLead_CreateError(t *testing.T) {
	db := new(MockLeadsDB)
	ctx := context.Background()

	db.On("FindLead", ctx, "a9").Return("", nil)
	db.On("CreateLead", ctx, mock.Anything).Return("", assert.AnError)

	_, err := UpsertLead(ctx, db, Lead{AuditID: "a9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: create lead a9")
}

func TestLeadProperties(t *testing.T) {
	props := LeadProperties(Lead{
		AuditID:     "a1",
		Name:        "Joe's Pizza",
		Website:     "joespizza.example",
		Location:    "Brooklyn, NY",
		Score:       71,
		Grade:       "C",
		KeyFindings: []string{"No reviews", "Missing meta description"},
		Status:      "New",
	})

	title, ok := props[PropName].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "Joe's Pizza", title.Title[0].Text.Content)

	site, ok := props[PropWebsite].(notionapi.URLProperty)
	require.True(t, ok)
	assert.Equal(t, "https://joespizza.example", site.URL)

	score, ok := props[PropScore].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, 71.0, score.Number)

	grade, ok := props[PropGrade].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "C", grade.Select.Name)

	findings, ok := props[PropFindings].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "No reviews\nMissing meta description", findings.RichText[0].Text.Content)

	assert.Contains(t, props, PropLocation)
	assert.NotContains(t, props, PropNiche)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "", normalizeURL("  "))
	assert.Equal(t, "https://a.example", normalizeURL("a.example"))
	assert.Equal(t, "http://a.example", normalizeURL("http://a.example"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "é", truncate("éé", 1))
}
