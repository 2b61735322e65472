package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append records a validation step. History rows are never updated or
// deleted.
func (r *HistoryRepository) Append(ctx context.Context, step *entity.ValidationStep) error {
	query := `
		INSERT INTO claim_history (claim_id, timestamp, actor_id, action, comment)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		step.ClaimID,
		step.Timestamp,
		step.ActorID,
		string(step.Action),
		step.Comment,
	)
	if err != nil {
		r.logger.Error("Failed to append history", zap.String("claim_id", step.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	step.ID = id
	return nil
}

// ListByClaim retrieves a claim's history in chronological order
func (r *HistoryRepository) ListByClaim(ctx context.Context, claimID string) ([]*entity.ValidationStep, error) {
	query := `
		SELECT id, claim_id, timestamp, actor_id, action, comment
		FROM claim_history
		WHERE claim_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var steps []*entity.ValidationStep
	for rows.Next() {
		var step entity.ValidationStep
		var action string
		if err := rows.Scan(&step.ID, &step.ClaimID, &step.Timestamp, &step.ActorID, &action, &step.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan history step: %w", err)
		}
		step.Action = entity.HistoryAction(action)
		steps = append(steps, &step)
	}
	return steps, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
