package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

func strPtr(s string) *string { return &s }

func seedCoupon(t *testing.T, repo *mockCouponRepo, code string, mutate func(*reconstructArgs)) {
	t.Helper()
	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)
	args := &reconstructArgs{
		code: code, discountType: couponDomain.DiscountTypePercentage, discountValue: 10,
		expiresAt: &future, active: true, minQuantity: 1,
	}
	if mutate != nil {
		mutate(args)
	}
	c := couponDomain.Reconstruct(
		uuid.New(), args.code, args.discountType, args.discountValue,
		args.maxUses, args.usedCount, args.expiresAt, args.active, args.userID,
		couponDomain.Scope{ProductID: args.productID, CategoryID: args.categoryID},
		args.minQuantity, false, false, now, now,
	)
	require.NoError(t, repo.Save(context.Background(), c))
}

type reconstructArgs struct {
	code          string
	discountType  couponDomain.DiscountType
	discountValue int64
	maxUses       *int
	usedCount     int
	expiresAt     *time.Time
	active        bool
	userID        *uuid.UUID
	productID     *string
	categoryID    *string
	minQuantity   int
}

func TestValidate_Rejections(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	past := time.Now().UTC().Add(-time.Hour)

	repo := newMockCouponRepo()
	seedCoupon(t, repo, "INACTIVE", func(a *reconstructArgs) { a.active = false })
	seedCoupon(t, repo, "EXPIRED", func(a *reconstructArgs) { a.expiresAt = &past })
	seedCoupon(t, repo, "SPENT", func(a *reconstructArgs) { a.maxUses = intPtr(3); a.usedCount = 3 })
	seedCoupon(t, repo, "PERSONAL", func(a *reconstructArgs) { a.userID = &owner })

	svc := NewValidationService(repo, &mockProductCatalog{}, zap.NewNop())

	tests := []struct {
		name       string
		code       string
		requester  *uuid.UUID
		wantReason string
	}{
		{"unknown code", "NOPE", nil, ReasonNotFound},
		{"inactive coupon", "INACTIVE", nil, ReasonInactive},
		{"expired coupon", "EXPIRED", nil, ReasonExpired},
		{"exhausted coupon", "SPENT", nil, ReasonLimitReached},
		{"user-bound coupon for stranger", "PERSONAL", &stranger, ReasonNotOwner},
		{"user-bound coupon for anonymous", "PERSONAL", nil, ReasonNotOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto, err := svc.Validate(ctx, tt.requester, ValidateCouponRequest{Code: tt.code})
			require.NoError(t, err, "rejections are values, not errors")
			assert.False(t, dto.Valid)
			assert.Equal(t, tt.wantReason, dto.Reason)
			assert.NotEmpty(t, dto.Message)
		})
	}
}

func TestValidate_Success(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	repo := newMockCouponRepo()
	seedCoupon(t, repo, "PERSONAL", func(a *reconstructArgs) { a.userID = &owner })

	svc := NewValidationService(repo, &mockProductCatalog{}, zap.NewNop())

	dto, err := svc.Validate(ctx, &owner, ValidateCouponRequest{
		Code:  "personal",
		Items: []CartItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, dto.Valid)
	assert.Equal(t, "PERSONAL", dto.Code)
	assert.Equal(t, "percentage", dto.DiscountType)
	assert.Equal(t, int64(10), dto.DiscountValue)
	assert.Empty(t, dto.Reason)
}

func TestValidate_QuantityScoping(t *testing.T) {
	ctx := context.Background()

	repo := newMockCouponRepo()
	seedCoupon(t, repo, "SAVE10", func(a *reconstructArgs) {
		a.categoryID = strPtr("mugs")
		a.minQuantity = 3
	})

	catalog := &mockProductCatalog{categories: map[string]string{
		"mug-blue": "mugs",
		"mug-red":  "mugs",
		"tee-1":    "shirts",
	}}
	svc := NewValidationService(repo, catalog, zap.NewNop())

	t.Run("too few eligible items", func(t *testing.T) {
		dto, err := svc.Validate(ctx, nil, ValidateCouponRequest{
			Code: "SAVE10",
			Items: []CartItemRequest{
				{ProductID: "mug-blue", Quantity: 1},
				{ProductID: "mug-red", Quantity: 1},
				{ProductID: "tee-1", Quantity: 5},
			},
		})
		require.NoError(t, err)
		assert.False(t, dto.Valid)
		assert.Equal(t, ReasonInsufficientQuantity, dto.Reason)
	})

	t.Run("adding one eligible item flips the outcome", func(t *testing.T) {
		dto, err := svc.Validate(ctx, nil, ValidateCouponRequest{
			Code: "SAVE10",
			Items: []CartItemRequest{
				{ProductID: "mug-blue", Quantity: 2},
				{ProductID: "mug-red", Quantity: 1},
				{ProductID: "tee-1", Quantity: 5},
			},
		})
		require.NoError(t, err)
		assert.True(t, dto.Valid)
	})

	t.Run("catalog consulted once per distinct product", func(t *testing.T) {
		catalog.calls = 0
		_, err := svc.Validate(ctx, nil, ValidateCouponRequest{
			Code: "SAVE10",
			Items: []CartItemRequest{
				{ProductID: "mug-blue", Quantity: 1},
				{ProductID: "mug-blue", Quantity: 1},
				{ProductID: "tee-1", Quantity: 1},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, catalog.calls)
	})

	t.Run("catalog skipped without a quantity floor", func(t *testing.T) {
		repo2 := newMockCouponRepo()
		seedCoupon(t, repo2, "MUGS", func(a *reconstructArgs) { a.categoryID = strPtr("mugs") })

		counting := &mockProductCatalog{}
		svc2 := NewValidationService(repo2, counting, zap.NewNop())

		dto, err := svc2.Validate(ctx, nil, ValidateCouponRequest{
			Code:  "MUGS",
			Items: []CartItemRequest{{ProductID: "tee-1", Quantity: 1}},
		})
		require.NoError(t, err)
		assert.True(t, dto.Valid)
		assert.Equal(t, 0, counting.calls)
	})
}
