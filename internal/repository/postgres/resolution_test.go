package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formnav/formnav/internal/domain"
)

func sampleResolution(id string) *domain.ResolutionResult {
	res := &domain.ResolutionResult{
		ID:    id,
		Query: "I want to fill the JEE form",
		Candidates: []domain.Candidate{
			{
				URL:    "https://jeemain.nta.ac.in",
				Title:  "JEE Main",
				Score:  0.75,
				Source: domain.SourceKnownForms,
				Navigation: &domain.NavigationResult{
					Found:    true,
					FinalURL: "https://jeemain.nta.ac.in/apply",
					Reason:   "form with 12 fields",
					Steps:    []string{"opened https://jeemain.nta.ac.in", "clicked \"Apply Now\""},
				},
			},
			{
				URL:    "https://duckduckgo.example/result",
				Title:  "search result",
				Score:  0.55,
				Source: domain.SourceWebSearch,
			},
		},
		NeedsLogin: true,
		Duration:   1800 * time.Millisecond,
	}
	res.Selected = &res.Candidates[0]
	return res
}

func TestResolutionRepository_RecordAndGet(t *testing.T) {
	td := SetupTestDB(t)
	defer td.Cleanup(t)

	repo := NewResolutionRepository(sqlx.NewDb(td.DB, "postgres"))
	ctx := context.Background()

	id := uuid.NewString()
	err := repo.RecordResolution(ctx, sampleResolution(id))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, uuid.MustParse(id))
	require.NoError(t, err)

	assert.Equal(t, "I want to fill the JEE form", got.Query)
	require.Len(t, got.Candidates, 2)
	require.NotNil(t, got.Selected)
	assert.Equal(t, "https://jeemain.nta.ac.in", got.Selected.URL)
	require.NotNil(t, got.Selected.Navigation)
	assert.True(t, got.Selected.Navigation.Found)
	assert.True(t, got.NeedsLogin)
	assert.Equal(t, 1800*time.Millisecond, got.Duration)
}

func TestResolutionRepository_GetByIDNotFound(t *testing.T) {
	td := SetupTestDB(t)
	defer td.Cleanup(t)

	repo := NewResolutionRepository(sqlx.NewDb(td.DB, "postgres"))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestResolutionRepository_List(t *testing.T) {
	td := SetupTestDB(t)
	defer td.Cleanup(t)

	repo := NewResolutionRepository(sqlx.NewDb(td.DB, "postgres"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordResolution(ctx, sampleResolution(uuid.NewString())))
		time.Sleep(10 * time.Millisecond)
	}

	results, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, results, 2)
}
