// Package utils holds parsing and validation helpers shared by the paymesh
// services.
package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var hexRe = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// ValidateAmount checks that an amount string is a non-negative decimal and
// returns its parsed value.
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}
	return &dec, nil
}

// ValidateShare checks that a percentage share lies in [0, 100].
func ValidateShare(share string) (*decimal.Decimal, error) {
	dec, err := ValidateAmount(share)
	if err != nil {
		return nil, err
	}
	if dec.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("share cannot exceed 100")
	}
	return dec, nil
}

// ValidateTransactionHash checks the canonical transaction hash shape:
// 0x-prefixed, 64 hex characters.
func ValidateTransactionHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}
	if !strings.HasPrefix(hash, "0x") {
		return fmt.Errorf("transaction hash must start with 0x")
	}
	if len(hash) != 66 {
		return fmt.Errorf("transaction hash must be 66 characters long")
	}
	if !hexRe.MatchString(hash[2:]) {
		return fmt.Errorf("transaction hash must be valid hex")
	}
	return nil
}
