package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
	"github.com/vitrine-commerce/service-promotions/internal/domain/loyalty"
)

// mockCouponRepo is an in-memory coupon.Repository keyed by code. The mutex
// lets concurrency tests hammer it from multiple goroutines.
type mockCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*couponDomain.Coupon

	saveErr   error
	existsErr error
	findErr   error
}

func newMockCouponRepo() *mockCouponRepo {
	return &mockCouponRepo{coupons: make(map[string]*couponDomain.Coupon)}
}

func (m *mockCouponRepo) Save(_ context.Context, c *couponDomain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.coupons[c.Code()]; ok {
		return couponDomain.ErrCodeTaken
	}
	m.coupons[c.Code()] = c
	return nil
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*couponDomain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, couponDomain.ErrNotFound
	}
	return c, nil
}

func (m *mockCouponRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.coupons[strings.ToUpper(strings.TrimSpace(code))]
	return ok, nil
}

func (m *mockCouponRepo) List(_ context.Context, _, _ int) ([]*couponDomain.Coupon, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*couponDomain.Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *couponDomain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[c.Code()]; !ok {
		return couponDomain.ErrNotFound
	}
	m.coupons[c.Code()] = c
	return nil
}

func (m *mockCouponRepo) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[code]; !ok {
		return couponDomain.ErrNotFound
	}
	delete(m.coupons, code)
	return nil
}

func (m *mockCouponRepo) RegisterUsage(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return couponDomain.ErrNotFound
	}
	if c.MaxUses() != nil && c.UsedCount() >= *c.MaxUses() {
		return couponDomain.ErrLimitReached
	}
	m.coupons[c.Code()] = couponDomain.Reconstruct(
		c.ID(), c.Code(), c.DiscountType(), c.DiscountValue(), c.MaxUses(), c.UsedCount()+1,
		c.ExpiresAt(), c.Active(), c.UserID(),
		couponDomain.Scope{ProductID: c.ProductID(), CategoryID: c.CategoryID()},
		c.MinQuantity(), c.Cumulative(), c.SystemGenerated(), c.CreatedAt(), time.Now().UTC(),
	)
	return nil
}

func (m *mockCouponRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.coupons)
}

func (m *mockCouponRepo) byPrefix(prefix string) []*couponDomain.Coupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*couponDomain.Coupon
	for code, c := range m.coupons {
		if strings.HasPrefix(code, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// mockRuleRepo is an in-memory coupon.RuleRepository keyed by trigger type.
type mockRuleRepo struct {
	rules map[couponDomain.RuleType]*couponDomain.Rule
}

func newMockRuleRepo(rules ...*couponDomain.Rule) *mockRuleRepo {
	m := &mockRuleRepo{rules: make(map[couponDomain.RuleType]*couponDomain.Rule)}
	for _, r := range rules {
		m.rules[r.Type] = r
	}
	return m
}

func (m *mockRuleRepo) Save(_ context.Context, r *couponDomain.Rule) error {
	if _, ok := m.rules[r.Type]; ok {
		return couponDomain.ErrRuleExists
	}
	m.rules[r.Type] = r
	return nil
}

func (m *mockRuleRepo) Update(_ context.Context, r *couponDomain.Rule) error {
	if _, ok := m.rules[r.Type]; !ok {
		return couponDomain.ErrRuleNotFound
	}
	m.rules[r.Type] = r
	return nil
}

func (m *mockRuleRepo) FindByType(_ context.Context, ruleType couponDomain.RuleType) (*couponDomain.Rule, error) {
	r, ok := m.rules[ruleType]
	if !ok {
		return nil, couponDomain.ErrRuleNotFound
	}
	return r, nil
}

func (m *mockRuleRepo) List(_ context.Context) ([]*couponDomain.Rule, error) {
	out := make([]*couponDomain.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRuleRepo) Delete(_ context.Context, ruleType couponDomain.RuleType) error {
	if _, ok := m.rules[ruleType]; !ok {
		return couponDomain.ErrRuleNotFound
	}
	delete(m.rules, ruleType)
	return nil
}

// mockLoyaltyRepo is an in-memory loyalty.Repository. Redeem mirrors the
// transactional store: the balance check-and-decrement, coupon insert, and
// ledger row happen under one lock, all or nothing.
type mockLoyaltyRepo struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	history  map[uuid.UUID][]loyalty.HistoryEntry
	coupons  *mockCouponRepo
}

func newMockLoyaltyRepo(coupons *mockCouponRepo) *mockLoyaltyRepo {
	return &mockLoyaltyRepo{
		balances: make(map[uuid.UUID]int64),
		history:  make(map[uuid.UUID][]loyalty.HistoryEntry),
		coupons:  coupons,
	}
}

func (m *mockLoyaltyRepo) account(userID uuid.UUID, balance int64) *loyalty.Account {
	now := time.Now().UTC()
	return &loyalty.Account{
		UserID:    userID,
		Balance:   balance,
		Tier:      loyalty.TierFor(balance),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (m *mockLoyaltyRepo) FindAccount(_ context.Context, userID uuid.UUID) (*loyalty.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return nil, loyalty.ErrAccountNotFound
	}
	return m.account(userID, balance), nil
}

func (m *mockLoyaltyRepo) History(_ context.Context, userID uuid.UUID, limit int) ([]loyalty.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.history[userID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *mockLoyaltyRepo) Accrue(_ context.Context, userID uuid.UUID, points int64, reason string, orderID *uuid.UUID) (*loyalty.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += points
	m.history[userID] = append(m.history[userID], loyalty.HistoryEntry{
		ID: uuid.New(), UserID: userID, Delta: points, Reason: reason, OrderID: orderID, CreatedAt: time.Now().UTC(),
	})
	return m.account(userID, m.balances[userID]), nil
}

func (m *mockLoyaltyRepo) Redeem(ctx context.Context, userID uuid.UUID, cost int64, reason string, c *couponDomain.Coupon) (*loyalty.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok || balance < cost {
		return nil, loyalty.ErrInsufficientPoints
	}
	if err := m.coupons.Save(ctx, c); err != nil {
		return nil, err
	}
	m.balances[userID] = balance - cost
	m.history[userID] = append(m.history[userID], loyalty.HistoryEntry{
		ID: uuid.New(), UserID: userID, Delta: -cost, Reason: reason, CreatedAt: time.Now().UTC(),
	})
	return m.account(userID, m.balances[userID]), nil
}

// mockProductCatalog resolves categories from a fixed map.
type mockProductCatalog struct {
	categories map[string]string
	calls      int
}

func (m *mockProductCatalog) CategoryOf(_ context.Context, productID string) (string, error) {
	m.calls++
	return m.categories[productID], nil
}

// mockBirthdayDirectory returns a fixed user list for any date.
type mockBirthdayDirectory struct {
	users []uuid.UUID
	err   error
}

func (m *mockBirthdayDirectory) UsersBornOn(_ context.Context, _ time.Month, _ int) ([]uuid.UUID, error) {
	return m.users, m.err
}

// mockPublisher records issued-coupon notifications.
type mockPublisher struct {
	mu     sync.Mutex
	issued []string
	err    error
}

func (m *mockPublisher) PublishCouponIssued(_ context.Context, c *CouponDTO, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.issued = append(m.issued, c.Code)
	return nil
}
