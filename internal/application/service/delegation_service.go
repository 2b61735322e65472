package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/approval"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// DelegationInput carries the fields of a delegation creation
type DelegationInput struct {
	DelegateID string                 `json:"delegate_id"`
	StartDate  string                 `json:"start_date"` // "YYYY-MM-DD"
	EndDate    string                 `json:"end_date"`   // "YYYY-MM-DD"
	Scope      entity.DelegationScope `json:"scope"`
	Motive     string                 `json:"motive"`
}

// DelegationView is a delegation with its display status, which labels
// a date-expired delegation as expired without rewriting the store
type DelegationView struct {
	*entity.Delegation
	DisplayStatus entity.DelegationStatus `json:"display_status"`
	InEffect      bool                    `json:"in_effect"`
}

// DelegationService manages the delegation registry
type DelegationService interface {
	Create(ctx context.Context, delegatorID string, input DelegationInput) (*entity.Delegation, error)
	Revoke(ctx context.Context, actorID, delegationID, reason string) (*entity.Delegation, error)
	ListForUser(ctx context.Context, userID string) ([]*DelegationView, error)
	ListActiveFor(ctx context.Context, userID string, asOf time.Time) ([]*entity.Delegation, error)
	ListAll(ctx context.Context) ([]*DelegationView, error)
}

type delegationServiceImpl struct {
	delegationRepo port.DelegationRepository
	userRepo       port.UserRepository
	now            func() time.Time
	logger         Logger
}

// NewDelegationService creates a new DelegationService
func NewDelegationService(
	delegationRepo port.DelegationRepository,
	userRepo port.UserRepository,
	logger Logger,
) DelegationService {
	return &delegationServiceImpl{
		delegationRepo: delegationRepo,
		userRepo:       userRepo,
		now:            time.Now,
		logger:         logger,
	}
}

// Create registers a new active delegation
func (s *delegationServiceImpl) Create(ctx context.Context, delegatorID string, input DelegationInput) (*entity.Delegation, error) {
	delegator, err := s.userRepo.GetByID(ctx, delegatorID)
	if err != nil {
		return nil, err
	}
	if delegator == nil || delegator.IsRemoved() {
		return nil, fmt.Errorf("delegator %s: %w", delegatorID, ErrNotFound)
	}
	if !delegator.Role.IsManager() {
		return nil, fmt.Errorf("role %s cannot delegate approval authority: %w", delegator.Role, ErrForbidden)
	}

	fields := make(map[string]string)

	delegate, err := s.userRepo.GetByID(ctx, input.DelegateID)
	if err != nil {
		return nil, err
	}
	switch {
	case input.DelegateID == "":
		fields["delegate_id"] = "delegate is required"
	case delegate == nil || delegate.IsRemoved():
		fields["delegate_id"] = "delegate does not exist"
	case delegate.ID == delegatorID:
		fields["delegate_id"] = "cannot delegate to oneself"
	case delegate.Role == entity.RoleAdmin:
		fields["delegate_id"] = "cannot delegate to an administrator"
	}

	start, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		fields["start_date"] = "start date must be YYYY-MM-DD"
	}
	end, err := time.Parse("2006-01-02", input.EndDate)
	if err != nil {
		fields["end_date"] = "end date must be YYYY-MM-DD"
	}
	if fields["start_date"] == "" && fields["end_date"] == "" && start.After(end) {
		fields["end_date"] = "end date must not precede start date"
	}

	if !input.Scope.IsValid() {
		fields["scope"] = fmt.Sprintf("unknown scope %q", input.Scope)
	}
	if strings.TrimSpace(input.Motive) == "" {
		fields["motive"] = "a motive is required"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	d := &entity.Delegation{
		ID:          uuid.NewString(),
		DelegatorID: delegatorID,
		DelegateID:  input.DelegateID,
		StartDate:   start,
		EndDate:     end,
		Scope:       input.Scope,
		Motive:      input.Motive,
		Status:      entity.DelegationActive,
		CreatedAt:   s.now(),
	}

	if err := s.delegationRepo.Create(ctx, d); err != nil {
		s.logger.Error("Failed to create delegation", "error", err, "delegator_id", delegatorID)
		return nil, err
	}

	s.logger.Info("Delegation created",
		"delegation_id", d.ID,
		"delegator_id", delegatorID,
		"delegate_id", input.DelegateID,
		"scope", string(input.Scope))
	return d, nil
}

// Revoke terminates a delegation. Only the delegator may revoke;
// revocation is terminal.
func (s *delegationServiceImpl) Revoke(ctx context.Context, actorID, delegationID, reason string) (*entity.Delegation, error) {
	d, err := s.delegationRepo.GetByID(ctx, delegationID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("delegation %s: %w", delegationID, ErrNotFound)
	}
	if d.DelegatorID != actorID {
		return nil, fmt.Errorf("only the delegator may revoke: %w", ErrUnauthorized)
	}
	if d.Status != entity.DelegationActive {
		return nil, fmt.Errorf("delegation %s is %s: %w", delegationID, d.Status, ErrAlreadyTerminal)
	}

	now := s.now()
	applied, err := s.delegationRepo.Revoke(ctx, delegationID, now, reason)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Someone else terminated it between the read and the update
		return nil, fmt.Errorf("delegation %s: %w", delegationID, ErrAlreadyTerminal)
	}

	d.Status = entity.DelegationRevoked
	d.RevokedAt = &now
	d.RevokeReason = reason

	s.logger.Info("Delegation revoked", "delegation_id", delegationID, "delegator_id", actorID)
	return d, nil
}

// ListForUser returns the delegations where the user is delegator or
// delegate, with display statuses computed at read time
func (s *delegationServiceImpl) ListForUser(ctx context.Context, userID string) ([]*DelegationView, error) {
	ds, err := s.delegationRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ds), nil
}

// ListActiveFor returns the delegations in effect for the user on the
// given date, as delegator or delegate
func (s *delegationServiceImpl) ListActiveFor(ctx context.Context, userID string, asOf time.Time) ([]*entity.Delegation, error) {
	ds, err := s.delegationRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]*entity.Delegation, 0)
	for _, d := range ds {
		if approval.InEffect(d, asOf) {
			active = append(active, d)
		}
	}
	return active, nil
}

// ListAll returns every delegation with display statuses (admin view)
func (s *delegationServiceImpl) ListAll(ctx context.Context) ([]*DelegationView, error) {
	ds, err := s.delegationRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ds), nil
}

func (s *delegationServiceImpl) views(ds []*entity.Delegation) []*DelegationView {
	now := s.now()
	views := make([]*DelegationView, 0, len(ds))
	for _, d := range ds {
		views = append(views, &DelegationView{
			Delegation:    d,
			DisplayStatus: d.DisplayStatus(now),
			InEffect:      approval.InEffect(d, now),
		})
	}
	return views
}
