package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitrine-commerce/service-promotions/internal/application"
	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
	"github.com/vitrine-commerce/service-promotions/pkg/auth"
	"github.com/vitrine-commerce/service-promotions/pkg/middleware"
	"github.com/vitrine-commerce/service-promotions/pkg/response"
)

// PromotionHandler handles HTTP requests for coupons and their validation.
type PromotionHandler struct {
	validation *application.ValidationService
	promotions *application.PromotionService
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(validation *application.ValidationService, promotions *application.PromotionService) *PromotionHandler {
	return &PromotionHandler{
		validation: validation,
		promotions: promotions,
	}
}

// RegisterRoutes registers coupon routes on the given router group.
func (h *PromotionHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	coupons := r.Group("/coupons")
	{
		// Validation works for anonymous carts too; a token only matters
		// for user-bound coupons.
		coupons.POST("/validate", middleware.OptionalAuthMiddleware(jwtManager), h.ValidateCoupon)
		coupons.GET("/:code", middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin), h.GetCoupon)
	}
}

// ValidateCoupon handles POST /api/v1/coupons/validate
func (h *PromotionHandler) ValidateCoupon(c *gin.Context) {
	var req application.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var requester *uuid.UUID
	if userID, ok := middleware.GetUserID(c); ok {
		requester = &userID
	}

	dto, err := h.validation.Validate(c.Request.Context(), requester, req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, dto)
}

// GetCoupon handles GET /api/v1/coupons/:code
func (h *PromotionHandler) GetCoupon(c *gin.Context) {
	dto, err := h.promotions.GetCoupon(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, couponDomain.ErrNotFound) {
			response.NotFound(c, "coupon not found")
			return
		}
		response.InternalError(c)
		return
	}

	response.Success(c, dto)
}
