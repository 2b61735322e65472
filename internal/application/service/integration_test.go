package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
	"github.com/ge-entretec/debours/internal/domain/workflow"
	"github.com/ge-entretec/debours/internal/infrastructure/persistence/repository"
	"github.com/ge-entretec/debours/internal/infrastructure/persistence/sqlite"
	"github.com/ge-entretec/debours/pkg/database"
)

// integrationEnv wires the claim service to real SQLite repositories
// and the real transaction manager
type integrationEnv struct {
	conn           *database.Connection
	txManager      *sqlite.DB
	claimRepo      port.ClaimRepository
	historyRepo    port.HistoryRepository
	userRepo       port.UserRepository
	delegationRepo port.DelegationRepository
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()
	logger := zap.NewNop()

	conn, err := database.Open(database.Config{
		Path: filepath.Join(t.TempDir(), "debours.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, database.NewMigrator(conn, logger).Run("../../../migrations"))

	env := &integrationEnv{
		conn:           conn,
		txManager:      sqlite.NewDB(conn.DB, logger),
		claimRepo:      repository.NewClaimRepository(conn.DB, logger),
		historyRepo:    repository.NewHistoryRepository(conn.DB, logger),
		userRepo:       repository.NewUserRepository(conn.DB, logger),
		delegationRepo: repository.NewDelegationRepository(conn.DB, logger),
	}

	for id, u := range userFixtures() {
		u.Email = id + "@example.test"
		u.CreatedAt = svcTime()
		u.UpdatedAt = svcTime()
		require.NoError(t, env.userRepo.Create(context.Background(), u))
	}
	return env
}

func (e *integrationEnv) service(txManager port.TransactionManager) *claimServiceImpl {
	return &claimServiceImpl{
		claimRepo:      e.claimRepo,
		historyRepo:    e.historyRepo,
		userRepo:       e.userRepo,
		delegationRepo: e.delegationRepo,
		txManager:      txManager,
		lifecycle:      workflow.ClaimLifecycle(),
		now:            svcTime,
		logger:         noopLogger{},
	}
}

// rivalTxManager slips one write in just before the transaction opens,
// standing in for a concurrent request that commits first
type rivalTxManager struct {
	inner    port.TransactionManager
	beforeTx func()
}

func (m *rivalTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.beforeTx != nil {
		m.beforeTx()
	}
	return m.inner.WithTransaction(ctx, fn)
}

// A rolled-back transaction must leave no trace: the repositories have
// to run their statements on the transaction the manager opened, not on
// the raw connection.
func TestIntegration_TransactionRollback(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	claim := pendingClaim("c-rollback", "collab-1")
	step := &entity.ValidationStep{
		ClaimID:   claim.ID,
		Timestamp: svcTime(),
		ActorID:   "collab-1",
		Action:    entity.ActionSubmitted,
	}

	boom := errors.New("boom")
	err := env.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, env.claimRepo.Create(txCtx, claim))
		require.NoError(t, env.historyRepo.Append(txCtx, step))

		// Both writes are visible inside the transaction
		inTx, err := env.historyRepo.ListByClaim(txCtx, claim.ID)
		require.NoError(t, err)
		require.Len(t, inTx, 1)

		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := env.claimRepo.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "claim row survived a rolled-back transaction")

	steps, err := env.historyRepo.ListByClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Empty(t, steps, "history row survived a rolled-back transaction")
}

func TestIntegration_Submit(t *testing.T) {
	env := newIntegrationEnv(t)
	svc := env.service(env.txManager)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, "collab-1", kilometricInput(100, 60))
	require.NoError(t, err)

	stored, err := svc.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, stored.Status)
	require.Len(t, stored.History, 1)
	assert.Equal(t, entity.ActionSubmitted, stored.History[0].Action)
	assert.Equal(t, "collab-1", stored.History[0].ActorID)
}

func TestIntegration_Decide(t *testing.T) {
	ctx := context.Background()

	t.Run("losing the race to a rival decision surfaces a conflict", func(t *testing.T) {
		env := newIntegrationEnv(t)
		claim := pendingClaim("c-race", "collab-1")
		require.NoError(t, env.claimRepo.Create(ctx, claim))

		svc := env.service(&rivalTxManager{
			inner: env.txManager,
			beforeTx: func() {
				applied, err := env.claimRepo.Decide(ctx, claim.ID,
					entity.StatusRejected, "em-1", svcTime(), "duplicate entry", entity.ViaDirect, "")
				require.NoError(t, err)
				require.True(t, applied)
			},
		})

		_, err := svc.Decide(ctx, "em-1", claim.ID, DecisionValidate, "")
		require.ErrorIs(t, err, ErrConflict)

		// The rival decision stands untouched and the loser wrote nothing
		stored, err := env.claimRepo.GetByID(ctx, claim.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusRejected, stored.Status)
		assert.Equal(t, "duplicate entry", stored.Comment)

		steps, err := env.historyRepo.ListByClaim(ctx, claim.ID)
		require.NoError(t, err)
		assert.Empty(t, steps)

		// A retry now sees the terminal state up front
		_, err = svc.Decide(ctx, "em-1", claim.ID, DecisionValidate, "")
		require.ErrorIs(t, err, ErrAlreadyTerminal)
	})

	t.Run("a delegation revoked mid-decision voids the grant", func(t *testing.T) {
		env := newIntegrationEnv(t)
		claim := pendingClaim("c-delegated", "collab-1")
		require.NoError(t, env.claimRepo.Create(ctx, claim))

		delegation := &entity.Delegation{
			ID:          "d-race",
			DelegatorID: "em-1",
			DelegateID:  "em-2",
			StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			Scope:       entity.ScopeAll,
			Motive:      "vacances",
			Status:      entity.DelegationActive,
			CreatedAt:   svcTime(),
		}
		require.NoError(t, env.delegationRepo.Create(ctx, delegation))

		svc := env.service(&rivalTxManager{
			inner: env.txManager,
			beforeTx: func() {
				revoked, err := env.delegationRepo.Revoke(ctx, delegation.ID, svcTime(), "back early")
				require.NoError(t, err)
				require.True(t, revoked)
			},
		})

		_, err := svc.Decide(ctx, "em-2", claim.ID, DecisionValidate, "")
		require.ErrorIs(t, err, ErrConflict)

		// The decision was rolled back with the conflict: the claim is
		// still pending and carries no approver
		stored, err := env.claimRepo.GetByID(ctx, claim.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPending, stored.Status)
		assert.Empty(t, stored.ApproverID)

		steps, err := env.historyRepo.ListByClaim(ctx, claim.ID)
		require.NoError(t, err)
		assert.Empty(t, steps)
	})
}
