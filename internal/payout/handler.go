package payout

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/gateway"
	"github.com/richxcame/tutor-payouts/internal/ledger"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"github.com/richxcame/tutor-payouts/pkg/middleware"
	"github.com/richxcame/tutor-payouts/pkg/pagination"
	"github.com/richxcame/tutor-payouts/pkg/storage"
	"github.com/richxcame/tutor-payouts/pkg/websocket"
)

// TutorService is the tutor-facing flow used by the handler
type TutorService interface {
	CreateWithdrawal(ctx context.Context, in CreateInput) (*withdrawal.Request, error)
	CancelWithdrawal(ctx context.Context, tutorID, requestID uuid.UUID) (*withdrawal.Request, error)
	ListTutorWithdrawals(ctx context.Context, tutorID uuid.UUID, limit, offset int) ([]*withdrawal.Request, int64, error)
	TutorWallet(ctx context.Context, tutorID uuid.UUID) (*ledger.Wallet, error)
}

// AdminDecisions is the admin flow used by the handler
type AdminDecisions interface {
	Approve(ctx context.Context, requestID, adminID uuid.UUID, note string) (*withdrawal.Request, error)
	Reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*withdrawal.Request, error)
	Overview(ctx context.Context) (*DashboardOverview, error)
	List(ctx context.Context, filter withdrawal.ListFilter) ([]*withdrawal.Request, int64, error)
	Detail(ctx context.Context, requestID uuid.UUID) (*RequestDetail, error)
	FraudLogs(ctx context.Context, filter audit.FraudLogFilter) ([]*audit.FraudCheckLog, int64, error)
	Alerts(ctx context.Context, resolved *bool, limit, offset int) ([]*audit.SystemAlert, int64, error)
	ResolveAlert(ctx context.Context, alertID, adminID uuid.UUID) (*audit.SystemAlert, error)
	PlatformBalance(ctx context.Context) (*gateway.PlatformBalance, error)
	ReceiptURL(ctx context.Context, requestID uuid.UUID) (*storage.PresignedURL, error)
}

// Handler handles HTTP requests for payouts
type Handler struct {
	tutor       TutorService
	admin       AdminDecisions
	createLimit gin.HandlerFunc
	feed        *websocket.Hub
	upgrader    *gorillaws.Upgrader
}

// NewHandler creates a new payout handler
func NewHandler(tutor TutorService, admin AdminDecisions) *Handler {
	return &Handler{tutor: tutor, admin: admin}
}

// WithCreateLimiter throttles withdrawal submissions with mw.
func (h *Handler) WithCreateLimiter(mw gin.HandlerFunc) *Handler {
	h.createLimit = mw
	return h
}

// WithDashboardFeed serves the admin live event stream from hub.
func (h *Handler) WithDashboardFeed(hub *websocket.Hub, upgrader *gorillaws.Upgrader) *Handler {
	h.feed, h.upgrader = hub, upgrader
	return h
}

// RegisterRoutes registers the tutor and admin payout routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtSecret))

	tutor := api.Group("/payout")
	tutor.Use(middleware.RequireRole(middleware.RoleTutor))
	{
		create := []gin.HandlerFunc{h.CreateWithdrawal}
		if h.createLimit != nil {
			create = append([]gin.HandlerFunc{h.createLimit}, create...)
		}
		tutor.POST("/withdrawals", create...)
		tutor.GET("/withdrawals", h.ListMyWithdrawals)
		tutor.POST("/withdrawals/:id/cancel", h.CancelWithdrawal)
		tutor.GET("/wallet", h.GetMyWallet)
	}

	admin := api.Group("/admin/payout")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/overview", h.GetOverview)
		admin.GET("/requests", h.ListRequests)
		admin.GET("/requests/:id", h.GetRequest)
		admin.POST("/requests/:id/approve", h.ApproveRequest)
		admin.POST("/requests/:id/reject", h.RejectRequest)
		admin.GET("/requests/:id/receipt", h.GetReceipt)
		admin.GET("/fraud-logs", h.ListFraudLogs)
		admin.GET("/system-alerts", h.ListSystemAlerts)
		admin.POST("/system-alerts/:id/resolve", h.ResolveSystemAlert)
		admin.GET("/payos-balance", h.GetPlatformBalance)
		if h.feed != nil {
			admin.GET("/stream", h.StreamDashboard)
		}
	}
}

// CreateWithdrawal submits a withdrawal for the calling tutor
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	tutorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateWithdrawalRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.tutor.CreateWithdrawal(c.Request.Context(), CreateInput{
		TutorID: tutorID,
		Amount:  req.Amount,
		Bank: withdrawal.BankDetails{
			HolderName:    req.BankAccount.HolderName,
			AccountNumber: req.BankAccount.AccountNumber,
			BankName:      req.BankAccount.BankName,
			BankBin:       req.BankAccount.BankBin,
		},
		IP: c.ClientIP(),
	})
	if err != nil {
		common.HandleError(c, err, "failed to create withdrawal")
		return
	}

	common.CreatedResponse(c, result)
}

// ListMyWithdrawals lists the calling tutor's withdrawals
func (h *Handler) ListMyWithdrawals(c *gin.Context) {
	tutorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := pagination.ParseParams(c)
	items, total, err := h.tutor.ListTutorWithdrawals(c.Request.Context(), tutorID, params.Limit(), params.Offset())
	if err != nil {
		common.HandleError(c, err, "failed to list withdrawals")
		return
	}

	common.SuccessResponseWithMeta(c, items, pagination.BuildMeta(params, total))
}

// CancelWithdrawal cancels one of the calling tutor's withdrawals
func (h *Handler) CancelWithdrawal(c *gin.Context) {
	tutorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.tutor.CancelWithdrawal(c.Request.Context(), tutorID, id)
	if err != nil {
		common.HandleError(c, err, "failed to cancel withdrawal")
		return
	}

	common.SuccessResponse(c, result)
}

// GetMyWallet returns the calling tutor's balances
func (h *Handler) GetMyWallet(c *gin.Context) {
	tutorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	wallet, err := h.tutor.TutorWallet(c.Request.Context(), tutorID)
	if err != nil {
		common.HandleError(c, err, "failed to load wallet")
		return
	}

	common.SuccessResponse(c, gin.H{
		"tutor_id":          wallet.TutorID,
		"balance":           wallet.Balance,
		"frozen_balance":    wallet.Frozen,
		"available_balance": wallet.Available(),
		"currency":          wallet.Currency,
	})
}

// GetOverview returns dashboard aggregates
func (h *Handler) GetOverview(c *gin.Context) {
	ov, err := h.admin.Overview(c.Request.Context())
	if err != nil {
		common.HandleError(c, err, "failed to load overview")
		return
	}
	common.SuccessResponse(c, ov)
}

// ListRequests lists withdrawal requests with an optional status filter
func (h *Handler) ListRequests(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := withdrawal.ListFilter{Limit: params.Limit(), Offset: params.Offset()}

	if s := c.Query("status"); s != "" {
		status, err := withdrawal.ParseStatus(s)
		if err != nil {
			common.AppErrorResponse(c, common.NewValidationError(err.Error(), nil))
			return
		}
		filter.Status = &status
	}
	if s := c.Query("tutorId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			common.AppErrorResponse(c, common.NewValidationError("invalid tutorId", err))
			return
		}
		filter.TutorID = &id
	}

	items, total, err := h.admin.List(c.Request.Context(), filter)
	if err != nil {
		common.HandleError(c, err, "failed to list withdrawals")
		return
	}

	common.SuccessResponseWithMeta(c, items, pagination.BuildMeta(params, total))
}

// GetRequest returns the full detail of a request
func (h *Handler) GetRequest(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	detail, err := h.admin.Detail(c.Request.Context(), id)
	if err != nil {
		common.HandleError(c, err, "failed to load withdrawal")
		return
	}
	common.SuccessResponse(c, detail)
}

// ApproveRequest approves and pays out a request
func (h *Handler) ApproveRequest(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ApproveRequest
	if c.Request.ContentLength > 0 && !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.admin.Approve(c.Request.Context(), id, adminID, req.Note)
	if err != nil {
		common.HandleError(c, err, "failed to approve withdrawal")
		return
	}
	common.SuccessResponse(c, result)
}

// RejectRequest rejects a request with a reason
func (h *Handler) RejectRequest(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req RejectRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	result, err := h.admin.Reject(c.Request.Context(), id, adminID, req.Reason)
	if err != nil {
		common.HandleError(c, err, "failed to reject withdrawal")
		return
	}
	common.SuccessResponse(c, result)
}

// ListFraudLogs lists fraud rule results
func (h *Handler) ListFraudLogs(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := audit.FraudLogFilter{Limit: params.Limit(), Offset: params.Offset()}

	if s := c.Query("tutorId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			common.AppErrorResponse(c, common.NewValidationError("invalid tutorId", err))
			return
		}
		filter.TutorID = &id
	}
	if s := c.Query("ruleName"); s != "" {
		rule, err := fraud.ParseRuleName(s)
		if err != nil {
			common.AppErrorResponse(c, common.NewValidationError(err.Error(), nil))
			return
		}
		name := string(rule)
		filter.RuleName = &name
	}
	if s := c.Query("passed"); s != "" {
		passed, err := strconv.ParseBool(s)
		if err != nil {
			common.AppErrorResponse(c, common.NewValidationError("invalid passed flag", err))
			return
		}
		filter.Passed = &passed
	}
	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		s := c.Query(key)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			common.AppErrorResponse(c, common.NewValidationError("invalid "+key+" timestamp, expected RFC3339", err))
			return
		}
		*dst = &t
	}

	logs, total, err := h.admin.FraudLogs(c.Request.Context(), filter)
	if err != nil {
		common.HandleError(c, err, "failed to list fraud logs")
		return
	}
	common.SuccessResponseWithMeta(c, logs, pagination.BuildMeta(params, total))
}

// ListSystemAlerts lists system alerts, optionally filtered by resolution
func (h *Handler) ListSystemAlerts(c *gin.Context) {
	params := pagination.ParseParams(c)

	var resolved *bool
	if s := c.Query("resolved"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			common.AppErrorResponse(c, common.NewValidationError("invalid resolved flag", err))
			return
		}
		resolved = &v
	}

	alerts, total, err := h.admin.Alerts(c.Request.Context(), resolved, params.Limit(), params.Offset())
	if err != nil {
		common.HandleError(c, err, "failed to list system alerts")
		return
	}
	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(params, total))
}

// ResolveSystemAlert marks an alert resolved
func (h *Handler) ResolveSystemAlert(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	alert, err := h.admin.ResolveAlert(c.Request.Context(), id, adminID)
	if err != nil {
		common.HandleError(c, err, "failed to resolve alert")
		return
	}
	common.SuccessResponse(c, alert)
}

// GetPlatformBalance returns the settlement account balance and its alert level
func (h *Handler) GetPlatformBalance(c *gin.Context) {
	balance, err := h.admin.PlatformBalance(c.Request.Context())
	if err != nil {
		common.HandleError(c, err, "failed to read platform balance")
		return
	}
	common.SuccessResponse(c, balance)
}

// GetReceipt returns a short-lived download link for a paid request's receipt
func (h *Handler) GetReceipt(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	link, err := h.admin.ReceiptURL(c.Request.Context(), id)
	if err != nil {
		common.HandleError(c, err, "failed to sign receipt link")
		return
	}
	common.SuccessResponse(c, link)
}

// StreamDashboard upgrades to a websocket that receives withdrawal events
func (h *Handler) StreamDashboard(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	websocket.NewClient(adminID.String(), conn, h.feed, logger.WithContext(c.Request.Context())).Serve()
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.NewValidationError("invalid id", err))
		return uuid.Nil, false
	}
	return id, true
}
