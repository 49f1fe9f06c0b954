package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"referral-backend/internal/common/errors"
	"referral-backend/internal/common/logger"
	"referral-backend/internal/common/middleware"
	"referral-backend/internal/features/payment/models"
	"referral-backend/internal/features/payment/service"
	usermodels "referral-backend/internal/features/user/models"
)

// CommissionCrediter appends a commission to the owner's balance once their
// payment completes.
type CommissionCrediter interface {
	CreditCommission(ctx context.Context, userID int64, amount decimal.Decimal, paymentID string) error
}

type PaymentHandler struct {
	service service.PaymentService
	balance CommissionCrediter
}

func NewPaymentHandler(service service.PaymentService, balance CommissionCrediter) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		balance: balance,
	}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/payments")
	{
		payments.POST("", h.createIntent)
		payments.GET("", h.list)
		payments.GET("/:id", h.getByID)
	}

	admin := router.Group("/payments")
	admin.Use(middleware.RequireCapability(usermodels.CapResolvePayments))
	{
		admin.PUT("/:id/resolve", h.resolve)
		admin.GET("/summary", h.aggregate)
	}
}

// @Summary Create a payment intent
// @Description Records a pending purchase with the commission frozen at the current tier rate. A second pending intent within the dedup window is refused.
// @Tags payments
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param intent body models.CreateIntentRequest true "Intent"
// @Success 201 {object} models.Payment
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) createIntent(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	var input models.CreateIntentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	payment, err := h.service.CreateIntent(c.Request.Context(), user, &input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// @Summary Get a payment
// @Tags payments
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Payment ID"
// @Success 200 {object} models.Payment
// @Failure 404 {object} middleware.ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) getByID(c *gin.Context) {
	payment, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	user, _ := middleware.CurrentUser(c)
	if user == nil || (payment.UserID != user.ID && !usermodels.HasCapability(user.Role, usermodels.CapResolvePayments)) {
		middleware.RespondError(c, errors.NewForbiddenError())
		return
	}
	c.JSON(http.StatusOK, payment)
}

// @Summary List payments
// @Description Regular users see their own payments; operators may filter by user.
// @Tags payments
// @Produce json
// @Security TelegramInitData
// @Param status query string false "Status filter"
// @Param user_id query int false "User filter (operator only)"
// @Success 200 {array} models.Payment
// @Router /payments [get]
func (h *PaymentHandler) list(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	filter, err := buildFilter(c, user)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	payments, err := h.service.List(c.Request.Context(), *filter)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// @Summary Aggregate payments
// @Description Count and sums over the same filter as the list endpoint. Operator only.
// @Tags payments
// @Produce json
// @Security TelegramInitData
// @Param status query string false "Status filter"
// @Param user_id query int false "User filter"
// @Success 200 {object} models.Aggregate
// @Failure 403 {object} middleware.ErrorResponse
// @Router /payments/summary [get]
func (h *PaymentHandler) aggregate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	filter, err := buildFilter(c, user)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	agg, err := h.service.Aggregate(c.Request.Context(), *filter)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

// @Summary Resolve a payment
// @Description Settles a pending payment as completed or failed. Completion credits the frozen commission to the owner's balance. Operator only.
// @Tags payments
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Payment ID"
// @Param resolution body models.ResolveRequest true "Outcome"
// @Success 200 {object} models.Payment
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /payments/{id}/resolve [put]
func (h *PaymentHandler) resolve(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var input models.ResolveRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	payment, err := h.service.Resolve(c.Request.Context(), actor, c.Param("id"), input.Outcome)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	if payment.Status == models.PaymentStatusCompleted {
		if err := h.balance.CreditCommission(c.Request.Context(), payment.UserID, payment.Commission, payment.ID); err != nil {
			// The payment is settled; the missing credit needs manual
			// reconciliation, not a rolled-back resolution.
			logger.Error().Err(err).
				Str("payment_id", payment.ID).
				Int64("user_id", payment.UserID).
				Msg("failed to credit commission")
		}
	}
	c.JSON(http.StatusOK, payment)
}

func buildFilter(c *gin.Context, user *usermodels.User) (*models.Filter, error) {
	filter := &models.Filter{}

	if raw := c.Query("status"); raw != "" {
		status := models.PaymentStatus(raw)
		switch status {
		case models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusFailed:
			filter.Status = &status
		default:
			return nil, errors.NewValidationError("status", "unknown status")
		}
	}

	if user != nil && usermodels.HasCapability(user.Role, usermodels.CapResolvePayments) {
		if raw := c.Query("user_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, errors.NewValidationError("user_id", "must be an integer")
			}
			filter.UserID = &id
		}
	} else if user != nil {
		id := user.ID
		filter.UserID = &id
	}

	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.NewValidationError("from", "must be RFC3339")
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.NewValidationError("to", "must be RFC3339")
		}
		filter.To = &ts
	}
	return filter, nil
}
