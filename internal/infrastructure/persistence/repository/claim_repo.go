package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

const claimColumns = `
	id, date, claimant_id, type, subtype, amount, description, status,
	receipts, comment, approver_id, decided_at, decided_via, delegation_used,
	mission_address, mission_lat, mission_lng,
	kilometers, start_time, end_time, is_client_mission,
	respects_angle_rule, distance_home, distance_workplace,
	supply_code, supply_reason, created_at, updated_at
`

// Create inserts a new claim
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	receipts, err := json.Marshal(claim.Receipts)
	if err != nil {
		return fmt.Errorf("failed to encode receipts: %w", err)
	}
	msAddr, msLat, msLng := locationColumns(claim.MissionLocation)

	_, err = executorFor(ctx, r.db).ExecContext(ctx, query,
		claim.ID,
		claim.Date,
		claim.ClaimantID,
		string(claim.Type),
		nullString(string(claim.Subtype)),
		claim.Amount,
		claim.Description,
		string(claim.Status),
		string(receipts),
		nullString(claim.Comment),
		nullString(claim.ApproverID),
		nullTime(claim.DecidedAt),
		nullString(string(claim.DecidedVia)),
		nullString(claim.DelegationUsed),
		msAddr, msLat, msLng,
		nullFloat(claim.Kilometers),
		nullString(claim.StartTime),
		nullString(claim.EndTime),
		claim.IsClientMission,
		nullBool(claim.RespectsAngleRule),
		nullFloat(claim.DistanceHome),
		nullFloat(claim.DistanceWorkplace),
		nullString(claim.SupplyCode),
		nullString(claim.SupplyReason),
		claim.CreatedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// ListByClaimant retrieves a claimant's claims, newest first
func (r *ClaimRepository) ListByClaimant(ctx context.Context, claimantID string) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE claimant_id = ? ORDER BY created_at DESC`
	return r.queryClaims(ctx, query, claimantID)
}

// ListByStatus retrieves claims in a given status, oldest first so
// approval queues surface the longest-waiting claims
func (r *ClaimRepository) ListByStatus(ctx context.Context, status entity.ClaimStatus) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE status = ? ORDER BY created_at ASC`
	return r.queryClaims(ctx, query, string(status))
}

// List retrieves claims with pagination
func (r *ClaimRepository) List(ctx context.Context, limit, offset int) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.queryClaims(ctx, query, limit, offset)
}

// Decide records a decision, guarded on the claim still being pending.
// A false return means another decision reached the row first.
func (r *ClaimRepository) Decide(ctx context.Context, id string, status entity.ClaimStatus, approverID string, decidedAt time.Time, comment string, via entity.DecidedVia, delegationID string) (bool, error) {
	query := `
		UPDATE claims SET
			status = ?, approver_id = ?, decided_at = ?, comment = ?,
			decided_via = ?, delegation_used = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		string(status),
		approverID,
		decidedAt,
		nullString(comment),
		string(via),
		nullString(delegationID),
		decidedAt,
		id,
	)
	if err != nil {
		r.logger.Error("Failed to decide claim", zap.String("claim_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to decide claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Update rewrites a claim's mutable fields (admin override path)
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.Claim) error {
	query := `
		UPDATE claims SET
			date = ?, type = ?, subtype = ?, amount = ?, description = ?,
			kilometers = ?, is_client_mission = ?,
			supply_code = ?, supply_reason = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		claim.Date,
		string(claim.Type),
		nullString(string(claim.Subtype)),
		claim.Amount,
		claim.Description,
		nullFloat(claim.Kilometers),
		claim.IsClientMission,
		nullString(claim.SupplyCode),
		nullString(claim.SupplyReason),
		claim.UpdatedAt,
		claim.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}
	return nil
}

// SetReceipts replaces the stored receipt references
func (r *ClaimRepository) SetReceipts(ctx context.Context, id string, receipts []string) error {
	encoded, err := json.Marshal(receipts)
	if err != nil {
		return fmt.Errorf("failed to encode receipts: %w", err)
	}

	query := `UPDATE claims SET receipts = ? WHERE id = ?`
	_, err = executorFor(ctx, r.db).ExecContext(ctx, query, string(encoded), id)
	if err != nil {
		r.logger.Error("Failed to set receipts", zap.String("claim_id", id), zap.Error(err))
		return fmt.Errorf("failed to set receipts: %w", err)
	}
	return nil
}

func (r *ClaimRepository) queryClaims(ctx context.Context, query string, args ...interface{}) ([]*entity.Claim, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var claim entity.Claim
	var claimType, status string
	var subtype, comment, approverID, decidedVia, delegationUsed sql.NullString
	var startTime, endTime, supplyCode, supplyReason sql.NullString
	var receipts string
	var decidedAt sql.NullTime
	var msAddr sql.NullString
	var msLat, msLng sql.NullFloat64
	var kilometers, distanceHome, distanceWorkplace sql.NullFloat64
	var respectsAngle sql.NullBool

	err := row.Scan(
		&claim.ID,
		&claim.Date,
		&claim.ClaimantID,
		&claimType,
		&subtype,
		&claim.Amount,
		&claim.Description,
		&status,
		&receipts,
		&comment,
		&approverID,
		&decidedAt,
		&decidedVia,
		&delegationUsed,
		&msAddr, &msLat, &msLng,
		&kilometers,
		&startTime,
		&endTime,
		&claim.IsClientMission,
		&respectsAngle,
		&distanceHome,
		&distanceWorkplace,
		&supplyCode,
		&supplyReason,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	claim.Type = entity.ClaimType(claimType)
	claim.Subtype = entity.ClaimSubtype(subtype.String)
	claim.Status = entity.ClaimStatus(status)
	claim.Comment = comment.String
	claim.ApproverID = approverID.String
	claim.DecidedVia = entity.DecidedVia(decidedVia.String)
	claim.DelegationUsed = delegationUsed.String
	claim.StartTime = startTime.String
	claim.EndTime = endTime.String
	claim.SupplyCode = supplyCode.String
	claim.SupplyReason = supplyReason.String
	claim.MissionLocation = locationFrom(msAddr, msLat, msLng)
	if decidedAt.Valid {
		claim.DecidedAt = &decidedAt.Time
	}
	if kilometers.Valid {
		claim.Kilometers = &kilometers.Float64
	}
	if distanceHome.Valid {
		claim.DistanceHome = &distanceHome.Float64
	}
	if distanceWorkplace.Valid {
		claim.DistanceWorkplace = &distanceWorkplace.Float64
	}
	if respectsAngle.Valid {
		claim.RespectsAngleRule = &respectsAngle.Bool
	}

	if err := json.Unmarshal([]byte(receipts), &claim.Receipts); err != nil {
		return nil, fmt.Errorf("failed to decode receipts: %w", err)
	}
	return &claim, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
