package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitrine-commerce/service-promotions/internal/application"
	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
	"github.com/vitrine-commerce/service-promotions/pkg/auth"
	"github.com/vitrine-commerce/service-promotions/pkg/middleware"
	"github.com/vitrine-commerce/service-promotions/pkg/response"
)

// AdminHandler handles administrative HTTP requests: coupon and rule
// management, manual issuance and accrual, and batch jobs.
type AdminHandler struct {
	issuance   *application.IssuanceService
	promotions *application.PromotionService
	loyalty    *application.LoyaltyService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	issuance *application.IssuanceService,
	promotions *application.PromotionService,
	loyalty *application.LoyaltyService,
) *AdminHandler {
	return &AdminHandler{
		issuance:   issuance,
		promotions: promotions,
		loyalty:    loyalty,
	}
}

// RegisterRoutes registers admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/coupons", h.CreateCoupon)
		admin.GET("/coupons", h.ListCoupons)
		admin.DELETE("/coupons/:code", h.DeleteCoupon)
		admin.POST("/coupons/:code/deactivate", h.DeactivateCoupon)
		admin.POST("/coupons/issue", h.IssueFromRule)

		admin.POST("/rules", h.CreateRule)
		admin.GET("/rules", h.ListRules)
		admin.PUT("/rules/:type", h.UpdateRule)
		admin.DELETE("/rules/:type", h.DeleteRule)

		admin.POST("/loyalty/accrue", h.AccruePoints)
		admin.POST("/jobs/birthday", h.RunBirthdayBatch)
	}
}

// CreateCoupon handles POST /api/v1/admin/coupons
func (h *AdminHandler) CreateCoupon(c *gin.Context) {
	var req application.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.issuance.IssueManual(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, couponDomain.ErrCodeTaken) {
			response.Conflict(c, "coupon code already exists")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, dto)
}

// ListCoupons handles GET /api/v1/admin/coupons
func (h *AdminHandler) ListCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	dtos, total, err := h.promotions.ListCoupons(c.Request.Context(), page, limit)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Paginated(c, dtos, total, page, limit)
}

// DeactivateCoupon handles POST /api/v1/admin/coupons/:code/deactivate
func (h *AdminHandler) DeactivateCoupon(c *gin.Context) {
	dto, err := h.promotions.DeactivateCoupon(c.Request.Context(), c.Param("code"))
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

// DeleteCoupon handles DELETE /api/v1/admin/coupons/:code
func (h *AdminHandler) DeleteCoupon(c *gin.Context) {
	if err := h.promotions.DeleteCoupon(c.Request.Context(), c.Param("code")); err != nil {
		if errors.Is(err, couponDomain.ErrNotFound) {
			response.NotFound(c, "coupon not found")
			return
		}
		response.InternalError(c)
		return
	}

	response.NoContent(c)
}

type issueFromRuleRequest struct {
	UserID   uuid.UUID `json:"user_id" binding:"required"`
	RuleType string    `json:"rule_type" binding:"required"`
}

// IssueFromRule handles POST /api/v1/admin/coupons/issue
func (h *AdminHandler) IssueFromRule(c *gin.Context) {
	var req issueFromRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.issuance.IssueFromRule(c.Request.Context(), req.UserID, couponDomain.RuleType(req.RuleType))
	if err != nil {
		response.InternalError(c)
		return
	}
	if dto == nil {
		response.UnprocessableEntity(c, "no active rule for this trigger")
		return
	}

	response.Created(c, dto)
}

// CreateRule handles POST /api/v1/admin/rules
func (h *AdminHandler) CreateRule(c *gin.Context) {
	var req application.UpsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.promotions.CreateRule(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, couponDomain.ErrRuleExists) {
			response.Conflict(c, "a rule already exists for this trigger")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, dto)
}

// ListRules handles GET /api/v1/admin/rules
func (h *AdminHandler) ListRules(c *gin.Context) {
	dtos, err := h.promotions.ListRules(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, dtos)
}

// UpdateRule handles PUT /api/v1/admin/rules/:type
func (h *AdminHandler) UpdateRule(c *gin.Context) {
	var req application.UpsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.promotions.UpdateRule(c.Request.Context(), c.Param("type"), req)
	if err != nil {
		if errors.Is(err, couponDomain.ErrRuleNotFound) {
			response.NotFound(c, "rule not found")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, dto)
}

// DeleteRule handles DELETE /api/v1/admin/rules/:type
func (h *AdminHandler) DeleteRule(c *gin.Context) {
	if err := h.promotions.DeleteRule(c.Request.Context(), c.Param("type")); err != nil {
		if errors.Is(err, couponDomain.ErrRuleNotFound) {
			response.NotFound(c, "rule not found")
			return
		}
		response.InternalError(c)
		return
	}

	response.NoContent(c)
}

// AccruePoints handles POST /api/v1/admin/loyalty/accrue
func (h *AdminHandler) AccruePoints(c *gin.Context) {
	var req application.AccrueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.loyalty.Accrue(c.Request.Context(), req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, dto)
}

// RunBirthdayBatch handles POST /api/v1/admin/jobs/birthday
func (h *AdminHandler) RunBirthdayBatch(c *gin.Context) {
	result, err := h.issuance.RunBirthdayBatch(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, result)
}
