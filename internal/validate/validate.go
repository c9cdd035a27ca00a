package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

const addressLength = 32

var (
	ErrInvalidAddress = errors.New("invalid creator wallet address")
	ErrInvalidPrice   = errors.New("invalid mint price")
)

// Address accepts any base58 string that decodes to a 32-byte public key.
func Address(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ErrInvalidAddress
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != addressLength {
		return fmt.Errorf("%w: decoded to %d bytes", ErrInvalidAddress, len(decoded))
	}
	return nil
}

// Price checks 0 <= price <= max.
func Price(price *decimal.Decimal, max decimal.Decimal) (decimal.Decimal, error) {
	if price == nil {
		return decimal.Zero, fmt.Errorf("%w: format", ErrInvalidPrice)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: cannot be negative", ErrInvalidPrice)
	}
	if price.GreaterThan(max) {
		return decimal.Zero, fmt.Errorf("%w: cannot exceed %s SOL", ErrInvalidPrice, max.String())
	}
	return *price, nil
}
