package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"referral-backend/internal/common/errors"
	"referral-backend/internal/common/middleware"
	"referral-backend/internal/features/tier"
	"referral-backend/internal/features/user/models"
	"referral-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/me", h.getMe)
		users.GET("/:id", h.getUser)
		users.POST("/me/kyc", h.submitKYC)
		users.PUT("/me/wallets", h.setWallets)
		users.GET("/:id/events", h.listEvents)
	}

	admin := router.Group("/users")
	admin.Use(middleware.RequireCapability(models.CapManageUsers))
	{
		admin.GET("", h.listUsers)
		admin.PUT("/:id/kyc", h.decideKYC)
		admin.PUT("/:id/tier", h.setTier)
	}
}

// @Summary Get current user
// @Description Returns the authenticated user, created on first contact.
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// @Summary Get user by ID
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Param id path int true "User ID"
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) getUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.RespondError(c, errors.NewValidationError("id", "must be an integer"))
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// @Summary List users
// @Description Lists all users. Operator only.
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.UserResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /users [get]
func (h *UserHandler) listUsers(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)
	users, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToResponse())
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Submit KYC documents
// @Description Starts a verification review. Refused while a review is open.
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param submission body models.KYCSubmission true "Document references"
// @Success 200 {object} models.UserResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /users/me/kyc [post]
func (h *UserHandler) submitKYC(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	var input models.KYCSubmission
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.service.SubmitKYC(c.Request.Context(), user, &input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated.ToResponse())
}

type kycDecision struct {
	Approved *bool `json:"approved" binding:"required"`
}

// @Summary Decide a KYC review
// @Description Approves or rejects the pending review. Operator only.
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "User ID"
// @Param decision body kycDecision true "Decision"
// @Success 200 {object} models.UserResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /users/{id}/kyc [put]
func (h *UserHandler) decideKYC(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.RespondError(c, errors.NewValidationError("id", "must be an integer"))
		return
	}

	var input kycDecision
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	user, err := h.service.DecideKYC(c.Request.Context(), actor, id, *input.Approved)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

type tierUpdate struct {
	Tier tier.Tier `json:"tier" binding:"required"`
}

// @Summary Change a user's tier
// @Description Affects only future payments. Operator only.
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "User ID"
// @Param tier body tierUpdate true "New tier"
// @Success 200 {object} models.UserResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /users/{id}/tier [put]
func (h *UserHandler) setTier(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.RespondError(c, errors.NewValidationError("id", "must be an integer"))
		return
	}

	var input tierUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	user, err := h.service.SetTier(c.Request.Context(), actor, id, input.Tier)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

type walletUpdate struct {
	PayoutWallet     string `json:"payout_wallet"`
	CommissionWallet string `json:"commission_wallet"`
}

// @Summary Update own wallets
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param wallets body walletUpdate true "Wallet addresses"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /users/me/wallets [put]
func (h *UserHandler) setWallets(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthenticatedError("caller not resolved"))
		return
	}

	var input walletUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.service.SetWallets(c.Request.Context(), user, input.PayoutWallet, input.CommissionWallet)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated.ToResponse())
}

// @Summary List account security events
// @Description Users see their own trail, operators anyone's.
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Param id path int true "User ID"
// @Param limit query int false "Max events" default(50)
// @Success 200 {array} models.SecurityEvent
// @Failure 403 {object} middleware.ErrorResponse
// @Router /users/{id}/events [get]
func (h *UserHandler) listEvents(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.RespondError(c, errors.NewValidationError("id", "must be an integer"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	actor, _ := middleware.CurrentUser(c)
	events, err := h.service.ListSecurityEvents(c.Request.Context(), actor, id, limit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
