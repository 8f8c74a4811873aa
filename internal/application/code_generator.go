package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

const (
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeTokenLen   = 4
	maxGenAttempts = 5
)

// ErrGenerationExhausted is returned when every generation attempt collided
// with an existing code. Retryable server-side failure, never silently
// produces a duplicate.
var ErrGenerationExhausted = errors.New("coupon code generation exhausted its retry budget")

// CodeGenerator produces collision-checked human-readable coupon codes of
// the form PREFIX-XXXX.
type CodeGenerator struct {
	coupons couponDomain.Repository
}

// NewCodeGenerator creates a generator backed by the coupon ledger.
func NewCodeGenerator(coupons couponDomain.Repository) *CodeGenerator {
	return &CodeGenerator{coupons: coupons}
}

// Generate returns a fresh code with the given prefix. Each candidate is
// checked against the ledger; after maxGenAttempts collisions it fails with
// ErrGenerationExhausted. The pre-check is best effort only: the ledger's
// unique index on insert remains the authoritative collision signal, and
// callers retry on coupon.ErrCodeTaken.
func (g *CodeGenerator) Generate(ctx context.Context, prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("code prefix is required")
	}

	for attempt := 0; attempt < maxGenAttempts; attempt++ {
		token, err := randomToken(codeTokenLen)
		if err != nil {
			return "", fmt.Errorf("generate code token: %w", err)
		}
		code := prefix + "-" + token

		exists, err := g.coupons.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

func randomToken(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
