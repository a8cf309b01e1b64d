package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"headshotpro/internal/domain"
	"headshotpro/internal/infra"
	"headshotpro/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a generation repository backed by PostgreSQL.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// Create inserts a new generation in processing.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGeneration,
		gen.ID,
		gen.UserID,
		gen.Provider,
		gen.InputImageURL,
		gen.Prompt,
		gen.StyleID,
	)
	if err := row.Scan(&gen.CreatedAt, &gen.UpdatedAt); err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	gen.Status = domain.GenerationProcessing
	return nil
}

// Complete marks a processing generation as completed.
func (r *GenerationRepositoryPG) Complete(ctx context.Context, id, outputImageURL string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteGeneration, id, outputImageURL)
	if err != nil {
		return false, fmt.Errorf("complete generation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Fail marks a processing generation as failed.
func (r *GenerationRepositoryPG) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailGeneration, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail generation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID fetches a generation by its identifier.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	gen, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QSelectGeneration, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return gen, nil
}

// ListByUser returns a page of the user's generations, newest first.
func (r *GenerationRepositoryPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Generation, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationsByUser, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return collectGenerations(rows)
}

// CountByUser counts all generations owned by the user.
func (r *GenerationRepositoryPG) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountGenerationsByUser, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return count, nil
}

// ExpireStale fails every processing generation created before cutoff.
func (r *GenerationRepositoryPG) ExpireStale(ctx context.Context, cutoff time.Time, errMsg string) ([]domain.Generation, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QExpireStaleGenerations, cutoff, errMsg)
	if err != nil {
		return nil, fmt.Errorf("expire generations: %w", err)
	}
	return collectGenerations(rows)
}

func collectGenerations(rows pgx.Rows) ([]domain.Generation, error) {
	defer rows.Close()
	var out []domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gen)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanGeneration(row pgx.Row) (*domain.Generation, error) {
	var gen domain.Generation
	var status string
	if err := row.Scan(
		&gen.ID,
		&gen.UserID,
		&gen.Provider,
		&status,
		&gen.InputImageURL,
		&gen.Prompt,
		&gen.StyleID,
		&gen.OutputImageURL,
		&gen.Error,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	); err != nil {
		return nil, err
	}
	gen.Status = domain.GenerationStatus(status)
	return &gen, nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
