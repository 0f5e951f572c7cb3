package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formnav/formnav/internal/domain"
)

// ResolutionRepository persists finished resolutions as an audit log
type ResolutionRepository struct {
	db *sqlx.DB
}

// NewResolutionRepository creates a new resolution repository
func NewResolutionRepository(db *sqlx.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// resolutionRow represents the database row structure
type resolutionRow struct {
	ID             uuid.UUID `db:"id"`
	Query          string    `db:"query"`
	SelectedURL    *string   `db:"selected_url"`
	SelectedSource *string   `db:"selected_source"`
	Found          bool      `db:"found"`
	NeedsLogin     bool      `db:"needs_login"`
	CandidateCount int       `db:"candidate_count"`
	Candidates     []byte    `db:"candidates"`
	DurationMs     int64     `db:"duration_ms"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r *resolutionRow) toDomain() (*domain.ResolutionResult, error) {
	var candidates []domain.Candidate
	if len(r.Candidates) > 0 {
		if err := json.Unmarshal(r.Candidates, &candidates); err != nil {
			return nil, fmt.Errorf("decoding candidates: %w", err)
		}
	}

	res := &domain.ResolutionResult{
		ID:         r.ID.String(),
		Query:      r.Query,
		Candidates: candidates,
		NeedsLogin: r.NeedsLogin,
		Duration:   time.Duration(r.DurationMs) * time.Millisecond,
	}
	if r.SelectedURL != nil {
		for i := range res.Candidates {
			if res.Candidates[i].URL == *r.SelectedURL {
				res.Selected = &res.Candidates[i]
				break
			}
		}
	}
	return res, nil
}

// RecordResolution inserts one finished resolution
func (r *ResolutionRepository) RecordResolution(ctx context.Context, res *domain.ResolutionResult) error {
	id, err := uuid.Parse(res.ID)
	if err != nil {
		id = uuid.New()
	}

	candidates, err := json.Marshal(res.Candidates)
	if err != nil {
		return fmt.Errorf("encoding candidates: %w", err)
	}

	var selectedURL, selectedSource *string
	found := false
	if res.Selected != nil {
		selectedURL = &res.Selected.URL
		src := string(res.Selected.Source)
		selectedSource = &src
		found = res.Selected.Navigation != nil && res.Selected.Navigation.Found
	}

	query := `
		INSERT INTO resolutions (id, query, selected_url, selected_source, found, needs_login, candidate_count, candidates, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		res.Query,
		selectedURL,
		selectedSource,
		found,
		res.NeedsLogin,
		len(res.Candidates),
		candidates,
		res.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return domain.ErrDatabase(err)
	}

	return nil
}

// GetByID retrieves a recorded resolution
func (r *ResolutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResolutionResult, error) {
	query := `
		SELECT id, query, selected_url, selected_source, found, needs_login, candidate_count, candidates, duration_ms, created_at
		FROM resolutions
		WHERE id = $1
	`

	var row resolutionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrCodeBadRequest, "resolution not found", http.StatusNotFound)
		}
		return nil, domain.ErrDatabase(err)
	}

	return row.toDomain()
}

// List retrieves recent resolutions, newest first
func (r *ResolutionRepository) List(ctx context.Context, limit, offset int) ([]*domain.ResolutionResult, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM resolutions`); err != nil {
		return nil, 0, domain.ErrDatabase(err)
	}

	query := `
		SELECT id, query, selected_url, selected_source, found, needs_login, candidate_count, candidates, duration_ms, created_at
		FROM resolutions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var rows []resolutionRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, domain.ErrDatabase(err)
	}

	results := make([]*domain.ResolutionResult, len(rows))
	for i, row := range rows {
		res, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		results[i] = res
	}

	return results, total, nil
}
