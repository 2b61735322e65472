package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/approval"
	"github.com/ge-entretec/debours/internal/domain/entity"
	"github.com/ge-entretec/debours/internal/domain/policy"
	"github.com/ge-entretec/debours/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Decision is an approver's action on a pending claim
type Decision string

const (
	DecisionValidate Decision = "validate"
	DecisionReject   Decision = "reject"
)

// SubmitInput carries the fields of a claim submission
type SubmitInput struct {
	Date            string              `json:"date"` // "YYYY-MM-DD"
	Type            entity.ClaimType    `json:"type"`
	Subtype         entity.ClaimSubtype `json:"subtype,omitempty"`
	Amount          float64             `json:"amount"`
	Description     string              `json:"description"`
	Receipts        []string            `json:"receipts"`
	MissionLocation *entity.Location    `json:"mission_location,omitempty"`
	Kilometers      *float64            `json:"kilometers,omitempty"`
	StartTime       string              `json:"start_time,omitempty"`
	EndTime         string              `json:"end_time,omitempty"`
	IsClientMission bool                `json:"is_client_mission"`
	SupplyCode      string              `json:"supply_code,omitempty"`
	SupplyReason    string              `json:"supply_reason,omitempty"`
}

// ClaimPatch carries the fields an administrator may override on a
// claim. Nil fields are left untouched.
type ClaimPatch struct {
	Date            *string              `json:"date,omitempty"`
	Type            *entity.ClaimType    `json:"type,omitempty"`
	Subtype         *entity.ClaimSubtype `json:"subtype,omitempty"`
	Amount          *float64             `json:"amount,omitempty"`
	Description     *string              `json:"description,omitempty"`
	Kilometers      *float64             `json:"kilometers,omitempty"`
	IsClientMission *bool                `json:"is_client_mission,omitempty"`
	SupplyCode      *string              `json:"supply_code,omitempty"`
	SupplyReason    *string              `json:"supply_reason,omitempty"`
}

// QueueEntry is a pending claim annotated for an approver
type QueueEntry struct {
	Claim      *entity.Claim `json:"claim"`
	Claimant   *entity.User  `json:"claimant"`
	Compliance policy.Result `json:"compliance"`
}

// BulkResult reports the outcome of one claim in a bulk decision
type BulkResult struct {
	ClaimID string `json:"claim_id"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// ClaimService orchestrates the claim lifecycle
type ClaimService interface {
	Submit(ctx context.Context, claimantID string, input SubmitInput) (*entity.Claim, error)
	Get(ctx context.Context, id string) (*entity.Claim, error)
	ListForClaimant(ctx context.Context, claimantID string) ([]*entity.Claim, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Claim, error)
	ListByStatus(ctx context.Context, status entity.ClaimStatus) ([]*entity.Claim, error)
	PendingQueue(ctx context.Context, approverID string) ([]*QueueEntry, error)
	Decide(ctx context.Context, approverID, claimID string, decision Decision, comment string) (*entity.Claim, error)
	BulkDecide(ctx context.Context, approverID string, claimIDs []string, decision Decision, comment string) ([]BulkResult, error)
	AdminOverride(ctx context.Context, adminID, claimID string, patch ClaimPatch, reason string) (*entity.Claim, error)
	AttachReceipt(ctx context.Context, actorID, claimID, filename string, content []byte) (string, error)
}

type claimServiceImpl struct {
	claimRepo      port.ClaimRepository
	historyRepo    port.HistoryRepository
	userRepo       port.UserRepository
	delegationRepo port.DelegationRepository
	receiptStore   port.ReceiptStore
	txManager      port.TransactionManager
	lifecycle      workflow.StateMachineBuilder
	now            func() time.Time
	logger         Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claimRepo port.ClaimRepository,
	historyRepo port.HistoryRepository,
	userRepo port.UserRepository,
	delegationRepo port.DelegationRepository,
	receiptStore port.ReceiptStore,
	txManager port.TransactionManager,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claimRepo:      claimRepo,
		historyRepo:    historyRepo,
		userRepo:       userRepo,
		delegationRepo: delegationRepo,
		receiptStore:   receiptStore,
		txManager:      txManager,
		lifecycle:      workflow.ClaimLifecycle(),
		now:            time.Now,
		logger:         logger,
	}
}

// Submit validates the input and creates a pending claim with its
// initial history entry. Nothing is persisted when validation fails.
func (s *claimServiceImpl) Submit(ctx context.Context, claimantID string, input SubmitInput) (*entity.Claim, error) {
	claimant, err := s.userRepo.GetByID(ctx, claimantID)
	if err != nil {
		return nil, fmt.Errorf("get claimant: %w", err)
	}
	if claimant == nil || claimant.IsRemoved() {
		return nil, fmt.Errorf("claimant %s: %w", claimantID, ErrNotFound)
	}

	claim, fields := s.buildClaim(claimant, input)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	// Drive the lifecycle machine from draft so the pending state is
	// only ever reached through a submission
	machine := s.lifecycle.Build(workflow.StateDraft)
	if err := machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
		return nil, fmt.Errorf("submit transition: %w", err)
	}
	claim.Status = entity.ClaimStatus(machine.State())

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}

		step := &entity.ValidationStep{
			ClaimID:   claim.ID,
			Timestamp: claim.CreatedAt,
			ActorID:   claimantID,
			Action:    entity.ActionSubmitted,
			Comment:   "submitted for validation",
		}
		if err := s.historyRepo.Append(txCtx, step); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		claim.History = []entity.ValidationStep{*step}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit claim", "error", err, "claimant_id", claimantID)
		return nil, err
	}

	s.logger.Info("Claim submitted",
		"claim_id", claim.ID,
		"claimant_id", claimantID,
		"type", string(claim.Type),
		"amount", claim.Amount)
	return claim, nil
}

// buildClaim assembles a claim from the input and collects field-level
// validation errors. Derived rule fields (distances, angle rule) are
// computed here when the geometry is available.
func (s *claimServiceImpl) buildClaim(claimant *entity.User, input SubmitInput) (*entity.Claim, map[string]string) {
	fields := make(map[string]string)

	var date time.Time
	if input.Date == "" {
		fields["date"] = "date is required"
	} else {
		var err error
		date, err = time.Parse("2006-01-02", input.Date)
		if err != nil {
			fields["date"] = "date must be YYYY-MM-DD"
		}
	}

	if input.Type == "" {
		fields["type"] = "claim type is required"
	} else if !input.Type.IsValid() {
		fields["type"] = fmt.Sprintf("unknown claim type %q", input.Type)
	}

	admissible := entity.SubtypesFor(input.Type, claimant.Role)
	if len(admissible) > 0 {
		if input.Subtype == "" {
			fields["subtype"] = "subtype is required for this claim type"
		} else if !containsSubtype(admissible, input.Subtype) {
			fields["subtype"] = fmt.Sprintf("subtype %q is not admissible for this claim type", input.Subtype)
		}
	}

	if input.Amount <= 0 {
		fields["amount"] = "amount must be a positive number"
	} else if claimant.HasFixedAllowance && input.Amount < policy.FixedAllowanceMinimum && !input.IsClientMission {
		fields["amount"] = fmt.Sprintf("minimum amount is %.0f CHF for fixed-allowance claimants (client missions excepted)", policy.FixedAllowanceMinimum)
	}

	if descriptionRequired(input.Type, input.Subtype, admissible) && strings.TrimSpace(input.Description) == "" {
		fields["description"] = "description is required for this claim type"
	}

	if input.Type == entity.ClaimTypeSupplies {
		if strings.TrimSpace(input.SupplyCode) == "" {
			fields["supply_code"] = "a CS or ACO reference is required for supplies"
		}
		if strings.TrimSpace(input.SupplyReason) == "" {
			fields["supply_reason"] = "a purchase justification is required for supplies"
		}
	}

	now := s.now()
	claim := &entity.Claim{
		ID:              uuid.NewString(),
		Date:            date,
		ClaimantID:      claimant.ID,
		Type:            input.Type,
		Subtype:         input.Subtype,
		Amount:          input.Amount,
		Description:     input.Description,
		Receipts:        append([]string{}, input.Receipts...),
		MissionLocation: input.MissionLocation,
		Kilometers:      input.Kilometers,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		IsClientMission: input.IsClientMission,
		SupplyCode:      input.SupplyCode,
		SupplyReason:    input.SupplyReason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if input.MissionLocation != nil {
		if claimant.Home != nil {
			d := policy.DistanceKm(*claimant.Home, *input.MissionLocation)
			claim.DistanceHome = &d
		}
		if claimant.Workplace != nil {
			d := policy.DistanceKm(*claimant.Workplace, *input.MissionLocation)
			claim.DistanceWorkplace = &d
		}
		if claim.IsKilometric() && claimant.Home != nil && claimant.Workplace != nil {
			ok := policy.RespectsAngleRule(*claimant.Home, *claimant.Workplace, *input.MissionLocation)
			claim.RespectsAngleRule = &ok
		}
	}

	if policy.ReceiptRequired(claim, claimant) && len(claim.Receipts) == 0 {
		fields["receipts"] = "a receipt is required for this claim"
	}

	return claim, fields
}

// Get retrieves a claim with its history
func (s *claimServiceImpl) Get(ctx context.Context, id string) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %s: %w", id, ErrNotFound)
	}
	if err := s.attachHistory(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// ListForClaimant retrieves the claims owned by a claimant
func (s *claimServiceImpl) ListForClaimant(ctx context.Context, claimantID string) ([]*entity.Claim, error) {
	return s.claimRepo.ListByClaimant(ctx, claimantID)
}

// List retrieves a paginated list of claims
func (s *claimServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.Claim, error) {
	return s.claimRepo.List(ctx, limit, offset)
}

// ListByStatus retrieves all claims in a given lifecycle status
func (s *claimServiceImpl) ListByStatus(ctx context.Context, status entity.ClaimStatus) ([]*entity.Claim, error) {
	return s.claimRepo.ListByStatus(ctx, status)
}

// PendingQueue returns the pending claims the approver may act on,
// directly or through an in-effect delegation, each annotated with the
// policy verdict.
func (s *claimServiceImpl) PendingQueue(ctx context.Context, approverID string) ([]*QueueEntry, error) {
	approver, users, delegations, err := s.approvalContext(ctx, approverID)
	if err != nil {
		return nil, err
	}

	pending, err := s.claimRepo.ListByStatus(ctx, entity.StatusPending)
	if err != nil {
		return nil, err
	}

	now := s.now()
	queue := make([]*QueueEntry, 0)
	for _, claim := range pending {
		claimant := users[claim.ClaimantID]
		if claimant == nil {
			continue
		}
		if _, ok := approval.Authorize(approver, claimant, claim, delegations, lookup(users), now); !ok {
			continue
		}
		result := policy.Evaluate(claim, claimant)
		queue = append(queue, &QueueEntry{Claim: claim, Claimant: claimant, Compliance: result})
	}
	return queue, nil
}

// Decide applies an approver's decision to a pending claim. The status
// update and the history append happen in one transaction; losing a
// race to another decision surfaces as ErrConflict.
func (s *claimServiceImpl) Decide(ctx context.Context, approverID, claimID string, decision Decision, comment string) (*entity.Claim, error) {
	if decision != DecisionValidate && decision != DecisionReject {
		return nil, &ValidationError{Fields: map[string]string{"decision": fmt.Sprintf("unknown decision %q", decision)}}
	}
	if decision == DecisionReject && strings.TrimSpace(comment) == "" {
		return nil, &ValidationError{Fields: map[string]string{"comment": "a comment is required to reject a claim"}}
	}

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %s: %w", claimID, ErrNotFound)
	}
	if claim.Status.IsTerminal() {
		return nil, fmt.Errorf("claim %s is %s: %w", claimID, claim.Status, ErrAlreadyTerminal)
	}

	approver, users, delegations, err := s.approvalContext(ctx, approverID)
	if err != nil {
		return nil, err
	}
	claimant := users[claim.ClaimantID]
	if claimant == nil {
		return nil, fmt.Errorf("claimant %s: %w", claim.ClaimantID, ErrNotFound)
	}

	now := s.now()
	grant, ok := approval.Authorize(approver, claimant, claim, delegations, lookup(users), now)
	if !ok {
		return nil, fmt.Errorf("approver %s on claim %s: %w", approverID, claimID, ErrForbidden)
	}

	// Validate the transition against the lifecycle machine
	machine := s.lifecycle.Build(workflow.State(claim.Status))
	trigger := workflow.TriggerValidate
	action := entity.ActionValidated
	status := entity.StatusValidated
	if decision == DecisionReject {
		trigger = workflow.TriggerReject
		action = entity.ActionRejected
		status = entity.StatusRejected
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, fmt.Errorf("claim %s: %w", claimID, ErrAlreadyTerminal)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		applied, err := s.claimRepo.Decide(txCtx, claimID, status, approverID, now, comment, grant.Via, grant.DelegationID)
		if err != nil {
			return fmt.Errorf("decide claim: %w", err)
		}
		if !applied {
			return fmt.Errorf("claim %s already decided: %w", claimID, ErrConflict)
		}

		// If the decision rides on a delegation, re-read it inside the
		// transaction so a concurrent revoke invalidates the grant
		if grant.Via == entity.ViaDelegation {
			d, err := s.delegationRepo.GetByID(txCtx, grant.DelegationID)
			if err != nil {
				return err
			}
			if d == nil || !approval.InEffect(d, now) {
				return fmt.Errorf("delegation %s no longer in effect: %w", grant.DelegationID, ErrConflict)
			}
		}

		step := &entity.ValidationStep{
			ClaimID:   claimID,
			Timestamp: now,
			ActorID:   approverID,
			Action:    action,
			Comment:   comment,
		}
		if err := s.historyRepo.Append(txCtx, step); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to decide claim", "error", err, "claim_id", claimID, "approver_id", approverID)
		return nil, err
	}

	claim.Status = status
	claim.ApproverID = approverID
	claim.DecidedAt = &now
	claim.Comment = comment
	claim.DecidedVia = grant.Via
	claim.DelegationUsed = grant.DelegationID

	s.logger.Info("Claim decided",
		"claim_id", claimID,
		"approver_id", approverID,
		"decision", string(decision),
		"via", string(grant.Via))
	return claim, nil
}

// BulkDecide applies the decision to every compliant claim in the
// batch and reports a per-claim outcome. Non-compliant claims are
// excluded, never auto-rejected.
func (s *claimServiceImpl) BulkDecide(ctx context.Context, approverID string, claimIDs []string, decision Decision, comment string) ([]BulkResult, error) {
	results := make([]BulkResult, 0, len(claimIDs))

	for _, id := range claimIDs {
		claim, err := s.claimRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if claim == nil {
			results = append(results, BulkResult{ClaimID: id, Applied: false, Reason: "claim not found"})
			continue
		}

		claimant, err := s.userRepo.GetByID(ctx, claim.ClaimantID)
		if err != nil {
			return nil, err
		}
		if claimant == nil {
			results = append(results, BulkResult{ClaimID: id, Applied: false, Reason: "claimant not found"})
			continue
		}

		verdict := policy.Evaluate(claim, claimant)
		if !verdict.Compliant {
			results = append(results, BulkResult{
				ClaimID: id,
				Applied: false,
				Reason:  "not compliant: " + strings.Join(verdict.Issues, "; "),
			})
			continue
		}

		if _, err := s.Decide(ctx, approverID, id, decision, comment); err != nil {
			results = append(results, BulkResult{ClaimID: id, Applied: false, Reason: err.Error()})
			continue
		}
		results = append(results, BulkResult{ClaimID: id, Applied: true})
	}

	s.logger.Info("Bulk decision processed",
		"approver_id", approverID,
		"total", len(claimIDs),
		"applied", countApplied(results))
	return results, nil
}

// AdminOverride merges the patch into the claim and records a modified
// history entry tagged with the reason. Admin authority is
// unconditional; the approval router is bypassed.
func (s *claimServiceImpl) AdminOverride(ctx context.Context, adminID, claimID string, patch ClaimPatch, reason string) (*entity.Claim, error) {
	admin, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil || admin.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("actor %s is not an administrator: %w", adminID, ErrForbidden)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Fields: map[string]string{"reason": "a reason is required for an admin override"}}
	}

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %s: %w", claimID, ErrNotFound)
	}

	applyPatch(claim, patch)
	now := s.now()
	claim.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Update(txCtx, claim); err != nil {
			return fmt.Errorf("update claim: %w", err)
		}
		step := &entity.ValidationStep{
			ClaimID:   claimID,
			Timestamp: now,
			ActorID:   adminID,
			Action:    entity.ActionModified,
			Comment:   "admin override: " + reason,
		}
		if err := s.historyRepo.Append(txCtx, step); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to override claim", "error", err, "claim_id", claimID, "admin_id", adminID)
		return nil, err
	}

	s.logger.Info("Claim overridden", "claim_id", claimID, "admin_id", adminID, "reason", reason)
	return claim, nil
}

// AttachReceipt stores a receipt file and links it to the claim. Only
// the claimant or an administrator may attach receipts.
func (s *claimServiceImpl) AttachReceipt(ctx context.Context, actorID, claimID, filename string, content []byte) (string, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return "", err
	}
	if claim == nil {
		return "", fmt.Errorf("claim %s: %w", claimID, ErrNotFound)
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return "", err
	}
	if actor == nil {
		return "", fmt.Errorf("actor %s: %w", actorID, ErrNotFound)
	}
	if actor.ID != claim.ClaimantID && actor.Role != entity.RoleAdmin {
		return "", fmt.Errorf("actor %s on claim %s: %w", actorID, claimID, ErrUnauthorized)
	}

	url, err := s.receiptStore.Store(ctx, claimID, filename, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}

	receipts := append(append([]string{}, claim.Receipts...), url)
	if err := s.claimRepo.SetReceipts(ctx, claimID, receipts); err != nil {
		return "", fmt.Errorf("set receipts: %w", err)
	}

	s.logger.Info("Receipt attached", "claim_id", claimID, "url", url)
	return url, nil
}

// approvalContext loads the approver, the full user index and the
// approver's delegations in one pass
func (s *claimServiceImpl) approvalContext(ctx context.Context, approverID string) (*entity.User, map[string]*entity.User, []*entity.Delegation, error) {
	users, err := s.userRepo.List(ctx, false)
	if err != nil {
		return nil, nil, nil, err
	}
	index := make(map[string]*entity.User, len(users))
	for _, u := range users {
		index[u.ID] = u
	}

	approver := index[approverID]
	if approver == nil {
		return nil, nil, nil, fmt.Errorf("approver %s: %w", approverID, ErrNotFound)
	}

	delegations, err := s.delegationRepo.ListByDelegate(ctx, approverID)
	if err != nil {
		return nil, nil, nil, err
	}
	return approver, index, delegations, nil
}

func (s *claimServiceImpl) attachHistory(ctx context.Context, claim *entity.Claim) error {
	steps, err := s.historyRepo.ListByClaim(ctx, claim.ID)
	if err != nil {
		return err
	}
	claim.History = make([]entity.ValidationStep, 0, len(steps))
	for _, st := range steps {
		claim.History = append(claim.History, *st)
	}
	return nil
}

func lookup(index map[string]*entity.User) func(string) *entity.User {
	return func(id string) *entity.User { return index[id] }
}

func containsSubtype(list []entity.ClaimSubtype, st entity.ClaimSubtype) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

// descriptionRequired mirrors the submission form: a description is
// mandatory unless the chosen subtype carries its own label.
func descriptionRequired(t entity.ClaimType, st entity.ClaimSubtype, admissible []entity.ClaimSubtype) bool {
	return len(admissible) == 0 || !containsSubtype(admissible, st)
}

func applyPatch(claim *entity.Claim, patch ClaimPatch) {
	if patch.Date != nil {
		if d, err := time.Parse("2006-01-02", *patch.Date); err == nil {
			claim.Date = d
		}
	}
	if patch.Type != nil {
		claim.Type = *patch.Type
	}
	if patch.Subtype != nil {
		claim.Subtype = *patch.Subtype
	}
	if patch.Amount != nil {
		claim.Amount = *patch.Amount
	}
	if patch.Description != nil {
		claim.Description = *patch.Description
	}
	if patch.Kilometers != nil {
		claim.Kilometers = patch.Kilometers
	}
	if patch.IsClientMission != nil {
		claim.IsClientMission = *patch.IsClientMission
	}
	if patch.SupplyCode != nil {
		claim.SupplyCode = *patch.SupplyCode
	}
	if patch.SupplyReason != nil {
		claim.SupplyReason = *patch.SupplyReason
	}
}

func countApplied(results []BulkResult) int {
	n := 0
	for _, r := range results {
		if r.Applied {
			n++
		}
	}
	return n
}
