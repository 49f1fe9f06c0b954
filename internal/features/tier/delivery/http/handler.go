package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"referral-backend/internal/features/tier"
)

type TierHandler struct {
	catalog *tier.Catalog
}

func NewTierHandler(catalog *tier.Catalog) *TierHandler {
	return &TierHandler{catalog: catalog}
}

func (h *TierHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tiers", h.list)
}

// @Summary List tiers
// @Description Commission tiers in ascending trust order.
// @Tags tiers
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} tier.Info
// @Router /tiers [get]
func (h *TierHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.List())
}
