package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/digkill/resumegate/internal/models"
)

type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Log(ctx context.Context, entry *models.GenerationLog) error {
	const query = `
INSERT INTO generation_logs (hashed_id, package_type, remaining_credits)
VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, entry.HashedID, entry.PackageType, entry.RemainingCredits)
	if err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

func (r *GenerationRepository) CountForDay(ctx context.Context, hashedID string, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	const query = `
SELECT COUNT(*) FROM generation_logs
WHERE hashed_id = ? AND created_at >= ? AND created_at < ?`
	row := r.db.QueryRowContext(ctx, query, hashedID, start, end)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count daily generations: %w", err)
	}
	return count, nil
}
