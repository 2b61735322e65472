package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/application/service"
	"github.com/ge-entretec/debours/internal/domain/entity"
	"github.com/ge-entretec/debours/internal/report"
)

// actingUserKey is the gin context key for the resolved acting user ID
const actingUserKey = "acting_user_id"

// maxUploadBytes caps receipt and document uploads
const maxUploadBytes = 10 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	claimService      service.ClaimService
	delegationService service.DelegationService
	userService       service.UserService
	analyzer          port.DocumentAnalyzer
	reportWriter      *report.ExcelWriter
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	claimService service.ClaimService,
	delegationService service.DelegationService,
	userService service.UserService,
	analyzer port.DocumentAnalyzer,
	reportWriter *report.ExcelWriter,
	logger Logger,
) *Handlers {
	return &Handlers{
		claimService:      claimService,
		delegationService: delegationService,
		userService:       userService,
		analyzer:          analyzer,
		reportWriter:      reportWriter,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}

// requireActingUser resolves the acting user from the X-User-ID header
func requireActingUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "X-User-ID header is required",
			})
			return
		}
		c.Set(actingUserKey, userID)
		c.Next()
	}
}

func actingUser(c *gin.Context) string {
	return c.GetString(actingUserKey)
}

// respondError maps service errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	if verr, ok := service.IsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "validation failed",
			Fields:  verr.Fields,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrAlreadyTerminal), errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// SubmitClaim handles POST /api/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var input service.SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.Submit(c.Request.Context(), actingUser(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: claim})
}

// ListClaims handles GET /api/claims. With ?claimant_id= the listing is
// restricted to one claimant, otherwise it is paginated over everything.
func (h *Handlers) ListClaims(c *gin.Context) {
	if claimantID := c.Query("claimant_id"); claimantID != "" {
		claims, err := h.claimService.ListForClaimant(c.Request.Context(), claimantID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: claims})
		return
	}

	var query struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	claims, err := h.claimService.List(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	claim, err := h.claimService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// PendingQueue handles GET /api/claims/pending
func (h *Handlers) PendingQueue(c *gin.Context) {
	queue, err := h.claimService.PendingQueue(c.Request.Context(), actingUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: queue})
}

// DecisionRequest carries a single claim decision
type DecisionRequest struct {
	Decision service.Decision `json:"decision"`
	Comment  string           `json:"comment"`
}

// DecideClaim handles POST /api/claims/:id/decision
func (h *Handlers) DecideClaim(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.Decide(c.Request.Context(), actingUser(c), c.Param("id"), req.Decision, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// BulkDecisionRequest carries a decision over a batch of claims
type BulkDecisionRequest struct {
	ClaimIDs []string         `json:"claim_ids"`
	Decision service.Decision `json:"decision"`
	Comment  string           `json:"comment"`
}

// BulkDecide handles POST /api/claims/decisions
func (h *Handlers) BulkDecide(c *gin.Context) {
	var req BulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if len(req.ClaimIDs) == 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "claim_ids must not be empty"})
		return
	}

	results, err := h.claimService.BulkDecide(c.Request.Context(), actingUser(c), req.ClaimIDs, req.Decision, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: results})
}

// OverrideRequest carries an administrative claim correction
type OverrideRequest struct {
	Patch  service.ClaimPatch `json:"patch"`
	Reason string             `json:"reason"`
}

// OverrideClaim handles POST /api/claims/:id/override
func (h *Handlers) OverrideClaim(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.AdminOverride(c.Request.Context(), actingUser(c), c.Param("id"), req.Patch, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// AttachReceipt handles POST /api/claims/:id/receipts (multipart)
func (h *Handlers) AttachReceipt(c *gin.Context) {
	filename, content, ok := h.readUpload(c)
	if !ok {
		return
	}

	url, err := h.claimService.AttachReceipt(c.Request.Context(), actingUser(c), c.Param("id"), filename, content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"url": url}})
}

// AnalyzeDocument handles POST /api/documents/analyze (multipart)
func (h *Handlers) AnalyzeDocument(c *gin.Context) {
	filename, content, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), filename, content)
	if err != nil {
		h.logger.Error("Document analysis failed", "filename", filename, "error", err)
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: "document analysis failed"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// readUpload extracts the "file" part from a multipart request
func (h *Handlers) readUpload(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "a file upload is required"})
		return "", nil, false
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file too large"})
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return "", nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.respondError(c, err)
		return "", nil, false
	}
	return fileHeader.Filename, content, true
}

// CreateDelegation handles POST /api/delegations
func (h *Handlers) CreateDelegation(c *gin.Context) {
	var input service.DelegationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	d, err := h.delegationService.Create(c.Request.Context(), actingUser(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: d})
}

// ListDelegations handles GET /api/delegations. With ?all=true the
// full registry is returned, otherwise the acting user's delegations.
func (h *Handlers) ListDelegations(c *gin.Context) {
	var (
		views []*service.DelegationView
		err   error
	)
	if c.Query("all") == "true" {
		views, err = h.delegationService.ListAll(c.Request.Context())
	} else {
		views, err = h.delegationService.ListForUser(c.Request.Context(), actingUser(c))
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// RevokeRequest carries the reason of a delegation revocation
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// RevokeDelegation handles POST /api/delegations/:id/revoke
func (h *Handlers) RevokeDelegation(c *gin.Context) {
	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	d, err := h.delegationService.Revoke(c.Request.Context(), actingUser(c), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: d})
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context(), c.Query("include_removed") == "true")
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// UpdateUser handles PATCH /api/users/:id
func (h *Handlers) UpdateUser(c *gin.Context) {
	var patch service.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	user, err := h.userService.Update(c.Request.Context(), actingUser(c), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// RemoveUser handles DELETE /api/users/:id
func (h *Handlers) RemoveUser(c *gin.Context) {
	if err := h.userService.Remove(c.Request.Context(), actingUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// ClaimsReport handles GET /api/reports/claims.xlsx and streams the
// validated claims as a workbook
func (h *Handlers) ClaimsReport(c *gin.Context) {
	status := entity.ClaimStatus(c.DefaultQuery("status", string(entity.StatusValidated)))

	claims, err := h.claimService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	users, err := h.userService.List(c.Request.Context(), true)
	if err != nil {
		h.respondError(c, err)
		return
	}

	index := make(map[string]*entity.User, len(users))
	for _, u := range users {
		index[u.ID] = u
	}

	rows := make([]report.ClaimRow, 0, len(claims))
	for _, claim := range claims {
		rows = append(rows, report.ClaimRow{
			Claim:    claim,
			Claimant: index[claim.ClaimantID],
			Approver: index[claim.ApproverID],
		})
	}

	c.Header("Content-Disposition", `attachment; filename="claims.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := h.reportWriter.WriteClaims(rows, c.Writer); err != nil {
		h.logger.Error("Failed to write claims report", "error", err)
	}
}
