package validation

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// addressHexLen is the hex length of an EVM address without the 0x prefix
// (20 bytes).
const addressHexLen = 40

// ValidateAddress validates a wallet address format: 0x followed by 40
// hex characters, case-insensitive.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("address must start with 0x")
	}
	normalized := addr[2:]

	if len(normalized) != addressHexLen {
		return fmt.Errorf("invalid address length: expected %d characters (without 0x), got %d", addressHexLen, len(normalized))
	}

	if _, err := hex.DecodeString(normalized); err != nil {
		return fmt.Errorf("invalid hex address: %w", err)
	}

	return nil
}

// NormalizeAddress converts an address to its canonical stored form:
// lowercase with the 0x prefix kept.
func NormalizeAddress(addr string) string {
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	return "0x" + strings.ToLower(addr)
}

// ValidateAndNormalizeAddress validates an address and returns its
// normalized form.
func ValidateAndNormalizeAddress(addr string) (string, error) {
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return NormalizeAddress(addr), nil
}

// EqualAddresses compares two addresses case-insensitively.
func EqualAddresses(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}
