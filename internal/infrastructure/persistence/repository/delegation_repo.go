package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// DelegationRepository implements port.DelegationRepository
type DelegationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDelegationRepository creates a new delegation repository
func NewDelegationRepository(db *sql.DB, logger *zap.Logger) port.DelegationRepository {
	return &DelegationRepository{
		db:     db,
		logger: logger,
	}
}

const delegationColumns = `
	id, delegator_id, delegate_id, start_date, end_date, scope, motive,
	status, created_at, revoked_at, revoke_reason
`

// Create inserts a new delegation
func (r *DelegationRepository) Create(ctx context.Context, d *entity.Delegation) error {
	query := `
		INSERT INTO delegations (` + delegationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		d.ID,
		d.DelegatorID,
		d.DelegateID,
		d.StartDate,
		d.EndDate,
		string(d.Scope),
		d.Motive,
		string(d.Status),
		d.CreatedAt,
		nullTime(d.RevokedAt),
		nullString(d.RevokeReason),
	)
	if err != nil {
		r.logger.Error("Failed to create delegation", zap.String("delegation_id", d.ID), zap.Error(err))
		return fmt.Errorf("failed to create delegation: %w", err)
	}
	return nil
}

// GetByID retrieves a delegation by ID
func (r *DelegationRepository) GetByID(ctx context.Context, id string) (*entity.Delegation, error) {
	query := `SELECT ` + delegationColumns + ` FROM delegations WHERE id = ?`

	d, err := scanDelegation(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get delegation by ID", zap.String("delegation_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get delegation: %w", err)
	}
	return d, nil
}

// ListForUser retrieves delegations where the user is delegator or delegate
func (r *DelegationRepository) ListForUser(ctx context.Context, userID string) ([]*entity.Delegation, error) {
	query := `
		SELECT ` + delegationColumns + ` FROM delegations
		WHERE delegator_id = ? OR delegate_id = ?
		ORDER BY created_at DESC
	`
	return r.queryDelegations(ctx, query, userID, userID)
}

// ListByDelegate retrieves delegations where the user is the delegate
func (r *DelegationRepository) ListByDelegate(ctx context.Context, delegateID string) ([]*entity.Delegation, error) {
	query := `
		SELECT ` + delegationColumns + ` FROM delegations
		WHERE delegate_id = ?
		ORDER BY created_at DESC
	`
	return r.queryDelegations(ctx, query, delegateID)
}

// ListAll retrieves every delegation
func (r *DelegationRepository) ListAll(ctx context.Context) ([]*entity.Delegation, error) {
	query := `SELECT ` + delegationColumns + ` FROM delegations ORDER BY created_at DESC`
	return r.queryDelegations(ctx, query)
}

// Revoke terminates a delegation, guarded on the stored status still
// being active. A false return means the delegation was already
// terminal.
func (r *DelegationRepository) Revoke(ctx context.Context, id string, at time.Time, reason string) (bool, error) {
	query := `
		UPDATE delegations SET status = 'revoked', revoked_at = ?, revoke_reason = ?
		WHERE id = ? AND status = 'active'
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, at, reason, id)
	if err != nil {
		r.logger.Error("Failed to revoke delegation", zap.String("delegation_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to revoke delegation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *DelegationRepository) queryDelegations(ctx context.Context, query string, args ...interface{}) ([]*entity.Delegation, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list delegations", zap.Error(err))
		return nil, fmt.Errorf("failed to list delegations: %w", err)
	}
	defer rows.Close()

	var delegations []*entity.Delegation
	for rows.Next() {
		d, err := scanDelegation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delegation: %w", err)
		}
		delegations = append(delegations, d)
	}
	return delegations, rows.Err()
}

func scanDelegation(row rowScanner) (*entity.Delegation, error) {
	var d entity.Delegation
	var scope, status string
	var revokedAt sql.NullTime
	var revokeReason sql.NullString

	err := row.Scan(
		&d.ID,
		&d.DelegatorID,
		&d.DelegateID,
		&d.StartDate,
		&d.EndDate,
		&scope,
		&d.Motive,
		&status,
		&d.CreatedAt,
		&revokedAt,
		&revokeReason,
	)
	if err != nil {
		return nil, err
	}

	d.Scope = entity.DelegationScope(scope)
	d.Status = entity.DelegationStatus(status)
	if revokedAt.Valid {
		d.RevokedAt = &revokedAt.Time
	}
	d.RevokeReason = revokeReason.String
	return &d, nil
}

// Verify interface compliance
var _ port.DelegationRepository = (*DelegationRepository)(nil)
