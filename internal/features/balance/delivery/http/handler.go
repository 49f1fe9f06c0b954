package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"referral-backend/internal/common/errors"
	"referral-backend/internal/common/middleware"
	"referral-backend/internal/features/balance/models"
	"referral-backend/internal/features/balance/repository"
	"referral-backend/internal/features/balance/service"
	usermodels "referral-backend/internal/features/user/models"
)

type BalanceHandler struct {
	service service.BalanceService
}

func NewBalanceHandler(service service.BalanceService) *BalanceHandler {
	return &BalanceHandler{
		service: service,
	}
}

func (h *BalanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	balance := router.Group("/balance")
	{
		balance.GET("", h.getBalance)
		balance.POST("/deposits", h.submitDeposit)
		balance.GET("/deposits", h.listDeposits)
		balance.POST("/withdrawals", h.submitWithdrawal)
		balance.GET("/withdrawals", h.listWithdrawals)
	}

	admin := router.Group("/balance")
	admin.Use(middleware.RequireCapability(usermodels.CapResolveNotices))
	{
		admin.PUT("/deposits/:id/resolve", h.resolveDeposit)
		admin.PUT("/withdrawals/:id/resolve", h.resolveWithdrawal)
	}
}

// @Summary Get own balance
// @Description Settled sum of the ledger, funds held by open withdrawals, and what remains available.
// @Tags balance
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.BalanceSummary
// @Router /balance [get]
func (h *BalanceHandler) getBalance(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	summary, err := h.service.Balance(c.Request.Context(), user.ID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Submit a deposit notice
// @Description Claims that funds were sent. Amounts below the minimum are refused; an operator later confirms or rejects the notice.
// @Tags balance
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param notice body models.SubmitDepositRequest true "Notice"
// @Success 201 {object} models.DepositNotice
// @Failure 422 {object} middleware.ErrorResponse
// @Router /balance/deposits [post]
func (h *BalanceHandler) submitDeposit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	var input models.SubmitDepositRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	notice, err := h.service.SubmitDeposit(c.Request.Context(), user, &input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notice)
}

// @Summary List deposit notices
// @Description Regular users see their own notices; operators may filter by user and status.
// @Tags balance
// @Produce json
// @Security TelegramInitData
// @Param status query string false "Status filter"
// @Param user_id query int false "User filter (operator only)"
// @Success 200 {array} models.DepositNotice
// @Router /balance/deposits [get]
func (h *BalanceHandler) listDeposits(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	filter := repository.DepositFilter{}
	if raw := c.Query("status"); raw != "" {
		status := models.DepositStatus(raw)
		switch status {
		case models.DepositStatusPending, models.DepositStatusConfirmed, models.DepositStatusRejected:
			filter.Status = &status
		default:
			middleware.RespondError(c, errors.NewValidationError("status", "unknown status"))
			return
		}
	}
	if userID, err := scopeUserFilter(c, user); err != nil {
		middleware.RespondError(c, err)
		return
	} else {
		filter.UserID = userID
	}

	notices, err := h.service.ListDeposits(c.Request.Context(), filter)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notices)
}

// @Summary Resolve a deposit notice
// @Description Confirms or rejects a pending notice. Confirmation credits the balance. Operator only.
// @Tags balance
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Notice ID"
// @Param resolution body models.ResolveDepositRequest true "Outcome"
// @Success 200 {object} models.DepositNotice
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /balance/deposits/{id}/resolve [put]
func (h *BalanceHandler) resolveDeposit(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var input models.ResolveDepositRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	notice, err := h.service.ResolveDeposit(c.Request.Context(), actor, c.Param("id"), input.Outcome)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notice)
}

// @Summary Submit a withdrawal request
// @Description Requests a payout. Refused when the amount exceeds the available balance, counting funds held by earlier open requests.
// @Tags balance
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body models.SubmitWithdrawalRequest true "Request"
// @Success 201 {object} models.WithdrawalRequest
// @Failure 422 {object} middleware.ErrorResponse
// @Router /balance/withdrawals [post]
func (h *BalanceHandler) submitWithdrawal(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	var input models.SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	req, err := h.service.SubmitWithdrawal(c.Request.Context(), user, &input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// @Summary List withdrawal requests
// @Tags balance
// @Produce json
// @Security TelegramInitData
// @Param status query string false "Status filter"
// @Param user_id query int false "User filter (operator only)"
// @Success 200 {array} models.WithdrawalRequest
// @Router /balance/withdrawals [get]
func (h *BalanceHandler) listWithdrawals(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	filter := repository.WithdrawalFilter{}
	if raw := c.Query("status"); raw != "" {
		status := models.WithdrawalStatus(raw)
		switch status {
		case models.WithdrawalStatusPending, models.WithdrawalStatusApproved,
			models.WithdrawalStatusRejected, models.WithdrawalStatusPaid:
			filter.Status = &status
		default:
			middleware.RespondError(c, errors.NewValidationError("status", "unknown status"))
			return
		}
	}
	if userID, err := scopeUserFilter(c, user); err != nil {
		middleware.RespondError(c, err)
		return
	} else {
		filter.UserID = userID
	}

	requests, err := h.service.ListWithdrawals(c.Request.Context(), filter)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// @Summary Resolve a withdrawal request
// @Description Applies one state machine step: approve, reject, or mark paid. Marking paid debits the balance. Operator only.
// @Tags balance
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Request ID"
// @Param resolution body models.ResolveWithdrawalRequest true "Next status"
// @Success 200 {object} models.WithdrawalRequest
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /balance/withdrawals/{id}/resolve [put]
func (h *BalanceHandler) resolveWithdrawal(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var input models.ResolveWithdrawalRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	req, err := h.service.ResolveWithdrawal(c.Request.Context(), actor, c.Param("id"), input.Status)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// scopeUserFilter limits list queries to the caller unless they hold the
// notice resolution capability.
func scopeUserFilter(c *gin.Context, user *usermodels.User) (*int64, error) {
	if usermodels.HasCapability(user.Role, usermodels.CapResolveNotices) {
		if raw := c.Query("user_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, errors.NewValidationError("user_id", "must be an integer")
			}
			return &id, nil
		}
		return nil, nil
	}
	id := user.ID
	return &id, nil
}
