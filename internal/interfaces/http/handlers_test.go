package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/application/service"
	"github.com/ge-entretec/debours/internal/domain/entity"
	"github.com/ge-entretec/debours/internal/report"

	"go.uber.org/zap"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockClaimService struct {
	submit        func(ctx context.Context, claimantID string, input service.SubmitInput) (*entity.Claim, error)
	get           func(ctx context.Context, id string) (*entity.Claim, error)
	pendingQueue  func(ctx context.Context, approverID string) ([]*service.QueueEntry, error)
	decide        func(ctx context.Context, approverID, claimID string, decision service.Decision, comment string) (*entity.Claim, error)
	attachReceipt func(ctx context.Context, actorID, claimID, filename string, content []byte) (string, error)
}

func (m *mockClaimService) Submit(ctx context.Context, claimantID string, input service.SubmitInput) (*entity.Claim, error) {
	return m.submit(ctx, claimantID, input)
}

func (m *mockClaimService) Get(ctx context.Context, id string) (*entity.Claim, error) {
	return m.get(ctx, id)
}

func (m *mockClaimService) ListForClaimant(ctx context.Context, claimantID string) ([]*entity.Claim, error) {
	return nil, nil
}

func (m *mockClaimService) List(ctx context.Context, limit, offset int) ([]*entity.Claim, error) {
	return nil, nil
}

func (m *mockClaimService) ListByStatus(ctx context.Context, status entity.ClaimStatus) ([]*entity.Claim, error) {
	return nil, nil
}

func (m *mockClaimService) PendingQueue(ctx context.Context, approverID string) ([]*service.QueueEntry, error) {
	return m.pendingQueue(ctx, approverID)
}

func (m *mockClaimService) Decide(ctx context.Context, approverID, claimID string, decision service.Decision, comment string) (*entity.Claim, error) {
	return m.decide(ctx, approverID, claimID, decision, comment)
}

func (m *mockClaimService) BulkDecide(ctx context.Context, approverID string, claimIDs []string, decision service.Decision, comment string) ([]service.BulkResult, error) {
	return nil, nil
}

func (m *mockClaimService) AdminOverride(ctx context.Context, adminID, claimID string, patch service.ClaimPatch, reason string) (*entity.Claim, error) {
	return nil, nil
}

func (m *mockClaimService) AttachReceipt(ctx context.Context, actorID, claimID, filename string, content []byte) (string, error) {
	return m.attachReceipt(ctx, actorID, claimID, filename, content)
}

type mockDelegationService struct {
	create      func(ctx context.Context, delegatorID string, input service.DelegationInput) (*entity.Delegation, error)
	listForUser func(ctx context.Context, userID string) ([]*service.DelegationView, error)
}

func (m *mockDelegationService) Create(ctx context.Context, delegatorID string, input service.DelegationInput) (*entity.Delegation, error) {
	return m.create(ctx, delegatorID, input)
}

func (m *mockDelegationService) Revoke(ctx context.Context, actorID, delegationID, reason string) (*entity.Delegation, error) {
	return nil, nil
}

func (m *mockDelegationService) ListForUser(ctx context.Context, userID string) ([]*service.DelegationView, error) {
	return m.listForUser(ctx, userID)
}

func (m *mockDelegationService) ListActiveFor(ctx context.Context, userID string, asOf time.Time) ([]*entity.Delegation, error) {
	return nil, nil
}

func (m *mockDelegationService) ListAll(ctx context.Context) ([]*service.DelegationView, error) {
	return nil, nil
}

type mockUserService struct {
	list func(ctx context.Context, includeRemoved bool) ([]*entity.User, error)
}

func (m *mockUserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return nil, nil
}

func (m *mockUserService) List(ctx context.Context, includeRemoved bool) ([]*entity.User, error) {
	return m.list(ctx, includeRemoved)
}

func (m *mockUserService) Update(ctx context.Context, actorID, userID string, patch service.UserPatch) (*entity.User, error) {
	return nil, nil
}

func (m *mockUserService) Remove(ctx context.Context, actorID, userID string) error {
	return nil
}

type mockAnalyzer struct {
	analyze func(ctx context.Context, filename string, document []byte) (*port.AnalysisResult, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, filename string, document []byte) (*port.AnalysisResult, error) {
	return m.analyze(ctx, filename, document)
}

func newTestServer(
	claims *mockClaimService,
	delegations *mockDelegationService,
	users *mockUserService,
	analyzer *mockAnalyzer,
) *Server {
	return NewServer(
		DefaultServerConfig(),
		claims,
		delegations,
		users,
		analyzer,
		report.NewExcelWriter(zap.NewNop()),
		noopLogger{},
	)
}

func emptyMocks() (*mockClaimService, *mockDelegationService, *mockUserService, *mockAnalyzer) {
	return &mockClaimService{}, &mockDelegationService{}, &mockUserService{}, &mockAnalyzer{}
}

func TestRequireActingUser(t *testing.T) {
	t.Run("rejects requests without the header", func(t *testing.T) {
		srv := newTestServer(emptyMocks())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/claims/pending", nil)
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "X-User-ID")
	})

	t.Run("resolves the acting user from the header", func(t *testing.T) {
		claims, delegations, users, analyzer := emptyMocks()
		var seenApprover string
		claims.pendingQueue = func(ctx context.Context, approverID string) ([]*service.QueueEntry, error) {
			seenApprover = approverID
			return []*service.QueueEntry{}, nil
		}
		srv := newTestServer(claims, delegations, users, analyzer)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/claims/pending", nil)
		req.Header.Set("X-User-ID", "em-1")
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "em-1", seenApprover)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized},
		{"already terminal", service.ErrAlreadyTerminal, http.StatusConflict},
		{"conflict", service.ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, delegations, users, analyzer := emptyMocks()
			claims.get = func(ctx context.Context, id string) (*entity.Claim, error) {
				return nil, tt.err
			}
			srv := newTestServer(claims, delegations, users, analyzer)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/claims/c1", nil)
			req.Header.Set("X-User-ID", "u1")
			srv.Router().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
		})
	}

	t.Run("validation errors carry field details", func(t *testing.T) {
		claims, delegations, users, analyzer := emptyMocks()
		claims.submit = func(ctx context.Context, claimantID string, input service.SubmitInput) (*entity.Claim, error) {
			return nil, &service.ValidationError{Fields: map[string]string{"amount": "must be positive"}}
		}
		srv := newTestServer(claims, delegations, users, analyzer)

		w := httptest.NewRecorder()
		body := strings.NewReader(`{"type":"meal","subtype":"lunch","amount":-3,"date":"2026-03-16","description":"x"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/claims", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "u1")
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "must be positive")
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		claims, delegations, users, analyzer := emptyMocks()
		claims.get = func(ctx context.Context, id string) (*entity.Claim, error) {
			return nil, assert.AnError
		}
		srv := newTestServer(claims, delegations, users, analyzer)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/claims/c1", nil)
		req.Header.Set("X-User-ID", "u1")
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})
}

func TestSubmitClaim(t *testing.T) {
	claims, delegations, users, analyzer := emptyMocks()
	claims.submit = func(ctx context.Context, claimantID string, input service.SubmitInput) (*entity.Claim, error) {
		return &entity.Claim{ID: "c-new", ClaimantID: claimantID, Status: entity.StatusPending}, nil
	}
	srv := newTestServer(claims, delegations, users, analyzer)

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"type":"meal","subtype":"lunch","amount":18.5,"date":"2026-03-16","description":"lunch on site"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/claims", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "collab-1")
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Success bool         `json:"success"`
		Data    entity.Claim `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "c-new", resp.Data.ID)
	assert.Equal(t, "collab-1", resp.Data.ClaimantID)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(emptyMocks())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
