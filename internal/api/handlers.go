package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nekoneko/seisan-server/internal/models"
	"github.com/nekoneko/seisan-server/internal/service"
)

// Version is the server build version reported by /api/version.
const Version = "1.2.0"

// Handler holds the service layer and handles HTTP requests
type Handler struct {
	svc    service.Service
	appEnv string
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, appEnv string) *Handler {
	return &Handler{svc: svc, appEnv: appEnv}
}

// SetupRoutes registers all the API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/version", h.GetVersion)

		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.SignUp)
			auth.POST("/login", h.Login)
		}

		authenticated := api.Group("")
		authenticated.Use(AuthMiddleware())
		{
			authenticated.GET("/users/me", h.GetCurrentUser)
			authenticated.PUT("/users/push-token", h.RegisterPushToken)

			authenticated.POST("/couples", h.CreateCouple)
			authenticated.GET("/couples", h.GetCouple)

			authenticated.GET("/invoices", h.GetInvoiceHistory)
			authenticated.GET("/invoices/active", h.GetActiveInvoice)
			authenticated.POST("/invoices/close", h.CloseMonth)
			authenticated.GET("/invoices/:id/payments", h.ListPayments)
			authenticated.GET("/invoices/:id/balance", h.GetInvoiceBalance)
			authenticated.POST("/invoices/:id/seed-recurring", h.SeedRecurringPayments)

			authenticated.POST("/payments", h.AddPayment)
			authenticated.PUT("/payments/:id", h.UpdatePayment)
			authenticated.DELETE("/payments/:id", h.DeletePayment)

			authenticated.GET("/subscriptions", h.ListSubscriptions)
			authenticated.POST("/subscriptions", h.AddSubscription)
			authenticated.GET("/subscriptions/summary", h.GetSubscriptionSummary)
			authenticated.PUT("/subscriptions/:id", h.UpdateSubscription)
			authenticated.DELETE("/subscriptions/:id", h.DeleteSubscription)

			authenticated.GET("/recurring-rules", h.ListRecurringRules)
			authenticated.POST("/recurring-rules", h.AddRecurringRule)
			authenticated.DELETE("/recurring-rules/:id", h.DeleteRecurringRule)
		}
	}
}

// respondError maps service sentinel errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "INVALID_INPUT", Message: err.Error(),
		})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Status: "error", Code: "FORBIDDEN", Message: err.Error(),
		})
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrNoCouple),
		errors.Is(err, service.ErrNoActiveInvoice):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status: "error", Code: "NOT_FOUND", Message: err.Error(),
		})
	case errors.Is(err, service.ErrCloseConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status: "error", Code: "CONFLICT", Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status: "error", Code: "INTERNAL_ERROR", Message: "An unexpected error occurred",
		})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status: "error", Code: "INVALID_INPUT", Message: err.Error(),
	})
}

func currentUserID(c *gin.Context) string {
	return c.MustGet("userId").(string)
}

// GetVersion reports the build version and environment.
func (h *Handler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, models.VersionResponse{
		Version:     Version,
		Environment: h.appEnv,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// SignUp handles user registration
func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles user authentication
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status: "error", Code: "UNAUTHORIZED", Message: "Invalid email or password",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) RegisterPushToken(c *gin.Context) {
	var req models.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.RegisterPushToken(c.Request.Context(), currentUserID(c), req.ExpoPushToken); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) CreateCouple(c *gin.Context) {
	var req models.CreateCoupleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	couple, err := h.svc.CreateCouple(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CoupleResponse{Status: "success", Couple: couple})
}

func (h *Handler) GetCouple(c *gin.Context) {
	couple, err := h.svc.GetCouple(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CoupleResponse{Status: "success", Couple: couple})
}

func (h *Handler) GetActiveInvoice(c *gin.Context) {
	invoice, err := h.svc.ActiveInvoice(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.InvoiceResponse{Status: "success", Invoice: invoice})
}

func (h *Handler) GetInvoiceHistory(c *gin.Context) {
	invoices, err := h.svc.InvoiceHistory(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.InvoiceHistoryResponse{Status: "success", Invoices: invoices})
}

func (h *Handler) CloseMonth(c *gin.Context) {
	resp, err := h.svc.CloseMonth(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListPayments(c *gin.Context) {
	payments, err := h.svc.ListPayments(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PaymentListResponse{Status: "success", Payments: payments})
}

func (h *Handler) GetInvoiceBalance(c *gin.Context) {
	invoiceID := c.Param("id")
	balance, err := h.svc.InvoiceBalance(c.Request.Context(), currentUserID(c), invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		Status:    "success",
		InvoiceID: invoiceID,
		Balance:   balance,
	})
}

func (h *Handler) SeedRecurringPayments(c *gin.Context) {
	if err := h.svc.SeedRecurringPayments(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) AddPayment(c *gin.Context) {
	var req models.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	payment, err := h.svc.AddPayment(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.PaymentResponse{Status: "success", Payment: payment})
}

func (h *Handler) UpdatePayment(c *gin.Context) {
	var req models.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	payment, err := h.svc.UpdatePayment(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PaymentResponse{Status: "success", Payment: payment})
}

func (h *Handler) DeletePayment(c *gin.Context) {
	if err := h.svc.DeletePayment(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.svc.ListSubscriptions(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SubscriptionListResponse{Status: "success", Subscriptions: subs})
}

func (h *Handler) AddSubscription(c *gin.Context) {
	var req models.AddSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sub, err := h.svc.AddSubscription(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.SubscriptionResponse{Status: "success", Subscription: sub})
}

func (h *Handler) UpdateSubscription(c *gin.Context) {
	var req models.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sub, err := h.svc.UpdateSubscription(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SubscriptionResponse{Status: "success", Subscription: sub})
}

func (h *Handler) DeleteSubscription(c *gin.Context) {
	if err := h.svc.DeleteSubscription(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetSubscriptionSummary(c *gin.Context) {
	summary, err := h.svc.SubscriptionSummary(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListRecurringRules(c *gin.Context) {
	rules, err := h.svc.ListRecurringRules(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RecurringRuleListResponse{Status: "success", Rules: rules})
}

func (h *Handler) AddRecurringRule(c *gin.Context) {
	var req models.AddRecurringRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule, err := h.svc.AddRecurringRule(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.RecurringRuleResponse{Status: "success", Rule: rule})
}

func (h *Handler) DeleteRecurringRule(c *gin.Context) {
	if err := h.svc.DeleteRecurringRule(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
