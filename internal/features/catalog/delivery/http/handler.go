package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"referral-backend/internal/common/errors"
	"referral-backend/internal/common/middleware"
	"referral-backend/internal/features/catalog/models"
	"referral-backend/internal/features/catalog/service"
	usermodels "referral-backend/internal/features/user/models"
)

type PackageHandler struct {
	service service.PackageService
}

func NewPackageHandler(service service.PackageService) *PackageHandler {
	return &PackageHandler{
		service: service,
	}
}

func (h *PackageHandler) RegisterRoutes(router *gin.RouterGroup) {
	packages := router.Group("/packages")
	{
		packages.GET("", h.list)
		packages.GET("/:id", h.getByID)
	}

	admin := router.Group("/packages")
	admin.Use(middleware.RequireCapability(usermodels.CapManageCatalog))
	{
		admin.POST("", h.create)
		admin.PUT("/:id", h.update)
		admin.DELETE("/:id", h.delete)
	}
}

// @Summary List packages
// @Description Active packages by default; operators may include inactive ones.
// @Tags packages
// @Produce json
// @Security TelegramInitData
// @Param include_inactive query bool false "Include inactive packages (operator only)"
// @Success 200 {array} models.Package
// @Router /packages [get]
func (h *PackageHandler) list(c *gin.Context) {
	includeInactive := false
	if c.Query("include_inactive") == "true" {
		user, _ := middleware.CurrentUser(c)
		includeInactive = user != nil && usermodels.HasCapability(user.Role, usermodels.CapManageCatalog)
	}

	packages, err := h.service.List(c.Request.Context(), includeInactive)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, packages)
}

// @Summary Get a package
// @Tags packages
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Package ID"
// @Success 200 {object} models.Package
// @Failure 404 {object} middleware.ErrorResponse
// @Router /packages/{id} [get]
func (h *PackageHandler) getByID(c *gin.Context) {
	pkg, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// @Summary Create a package
// @Description Operator only. The USD price is the canonical amount copied to payments; display strings are informational.
// @Tags packages
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param package body models.PackageCreate true "Package"
// @Success 201 {object} models.Package
// @Failure 403 {object} middleware.ErrorResponse
// @Router /packages [post]
func (h *PackageHandler) create(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var input models.PackageCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	pkg, err := h.service.Create(c.Request.Context(), actor, &input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

// @Summary Update a package
// @Description Operator only. Price edits affect only future payments.
// @Tags packages
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Package ID"
// @Param package body models.PackageUpdate true "Fields to update"
// @Success 200 {object} models.Package
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /packages/{id} [put]
func (h *PackageHandler) update(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var input models.PackageUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return
	}

	pkg, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), &input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// @Summary Delete a package
// @Description Operator only. Refused while any payment references the package.
// @Tags packages
// @Security TelegramInitData
// @Param id path string true "Package ID"
// @Success 204
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /packages/{id} [delete]
func (h *PackageHandler) delete(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
