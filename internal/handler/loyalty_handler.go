package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitrine-commerce/service-promotions/internal/application"
	"github.com/vitrine-commerce/service-promotions/internal/domain/loyalty"
	"github.com/vitrine-commerce/service-promotions/pkg/auth"
	"github.com/vitrine-commerce/service-promotions/pkg/middleware"
	"github.com/vitrine-commerce/service-promotions/pkg/response"
)

// LoyaltyHandler handles HTTP requests for the points program.
type LoyaltyHandler struct {
	service *application.LoyaltyService
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(service *application.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{service: service}
}

// RegisterRoutes registers loyalty routes on the given router group.
func (h *LoyaltyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	points := r.Group("/loyalty")
	points.Use(middleware.AuthMiddleware(jwtManager))
	{
		points.GET("", h.GetBalance)
		points.GET("/rewards", h.ListRewards)
		points.POST("/redeem", h.Redeem)
	}
}

// GetBalance handles GET /api/v1/loyalty
func (h *LoyaltyHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dto, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, dto)
}

// ListRewards handles GET /api/v1/loyalty/rewards
func (h *LoyaltyHandler) ListRewards(c *gin.Context) {
	response.Success(c, h.service.Rewards())
}

// Redeem handles POST /api/v1/loyalty/redeem
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.Redeem(c.Request.Context(), userID, req.RewardID)
	if err != nil {
		switch {
		case errors.Is(err, loyalty.ErrInvalidReward):
			response.BadRequest(c, "unknown reward")
		case errors.Is(err, loyalty.ErrInsufficientPoints):
			response.UnprocessableEntity(c, "insufficient points")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, dto)
}
