package loyalty

import (
	"github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

// Reward maps a point cost to the coupon terms it grants.
type Reward struct {
	ID            string              `json:"id"`
	Cost          int64               `json:"cost"`
	DiscountType  coupon.DiscountType `json:"discount_type"`
	DiscountValue int64               `json:"discount_value"`
	Description   string              `json:"description"`
}

// Catalog is the immutable reward catalog injected into the redemption
// service at construction. Not user-editable at runtime.
type Catalog struct {
	rewards map[string]Reward
	order   []string
}

// NewCatalog builds a catalog preserving the given reward order.
func NewCatalog(rewards ...Reward) Catalog {
	byID := make(map[string]Reward, len(rewards))
	order := make([]string, 0, len(rewards))
	for _, r := range rewards {
		if _, ok := byID[r.ID]; ok {
			continue
		}
		byID[r.ID] = r
		order = append(order, r.ID)
	}
	return Catalog{rewards: byID, order: order}
}

// DefaultCatalog is the storefront's standard reward table.
func DefaultCatalog() Catalog {
	return NewCatalog(
		Reward{ID: "discount_5", Cost: 250, DiscountType: coupon.DiscountTypePercentage, DiscountValue: 5, Description: "5% off one order"},
		Reward{ID: "discount_10", Cost: 500, DiscountType: coupon.DiscountTypePercentage, DiscountValue: 10, Description: "10% off one order"},
		Reward{ID: "discount_20", Cost: 1000, DiscountType: coupon.DiscountTypePercentage, DiscountValue: 20, Description: "20% off one order"},
		Reward{ID: "fixed_25", Cost: 2000, DiscountType: coupon.DiscountTypeFixed, DiscountValue: 2500, Description: "R$25 off one order"},
	)
}

// Find looks a reward up by its identifier.
func (c Catalog) Find(id string) (Reward, bool) {
	r, ok := c.rewards[id]
	return r, ok
}

// List returns the rewards in catalog order.
func (c Catalog) List() []Reward {
	out := make([]Reward, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.rewards[id])
	}
	return out
}
