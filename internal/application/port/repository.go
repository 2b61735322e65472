package port

import (
	"context"
	"time"

	"github.com/ge-entretec/debours/internal/domain/entity"
)

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	List(ctx context.Context, includeRemoved bool) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	// SoftRemove marks the user removed; users are never hard-deleted
	SoftRemove(ctx context.Context, id string, at time.Time) error
}

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)
	ListByClaimant(ctx context.Context, claimantID string) ([]*entity.Claim, error)
	ListByStatus(ctx context.Context, status entity.ClaimStatus) ([]*entity.Claim, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Claim, error)

	// Decide records a decision. The update is guarded on the claim
	// still being pending; it returns false when another decision won
	// the race, without touching the row.
	Decide(ctx context.Context, id string, status entity.ClaimStatus, approverID string, decidedAt time.Time, comment string, via entity.DecidedVia, delegationID string) (bool, error)

	// Update rewrites mutable claim fields (admin override path)
	Update(ctx context.Context, claim *entity.Claim) error

	// SetReceipts replaces the stored receipt references
	SetReceipts(ctx context.Context, id string, receipts []string) error
}

// HistoryRepository defines persistence operations for ValidationStep.
// History is append-only; there is no update or delete.
type HistoryRepository interface {
	Append(ctx context.Context, step *entity.ValidationStep) error
	ListByClaim(ctx context.Context, claimID string) ([]*entity.ValidationStep, error)
}

// DelegationRepository defines persistence operations for Delegation
type DelegationRepository interface {
	Create(ctx context.Context, d *entity.Delegation) error
	GetByID(ctx context.Context, id string) (*entity.Delegation, error)
	// ListForUser returns delegations where the user is delegator or delegate
	ListForUser(ctx context.Context, userID string) ([]*entity.Delegation, error)
	// ListByDelegate returns delegations where the user is the delegate
	ListByDelegate(ctx context.Context, delegateID string) ([]*entity.Delegation, error)
	ListAll(ctx context.Context) ([]*entity.Delegation, error)

	// Revoke terminates a delegation. The update is guarded on the
	// stored status still being active; it returns false when the
	// delegation already reached a terminal state.
	Revoke(ctx context.Context, id string, at time.Time, reason string) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
