// Package address normalizes and formats wallet addresses.
package address

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid address")

// IsValid reports whether s is a 20-byte hex address, with or without 0x.
func IsValid(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}

// Normalize returns the EIP-55 checksummed form of s.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(s).Hex(), nil
}

// Key is the case-insensitive form used to index per-user records.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Same compares two addresses ignoring case. Empty addresses never match.
func Same(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Truncate shortens a valid address to 0x1234...abcd. Anything that is not
// an address is returned unchanged.
func Truncate(s string, start, end int) string {
	if !IsValid(s) || len(s) <= start+end {
		return s
	}
	return s[:start] + "..." + s[len(s)-end:]
}

// Short is Truncate with the usual 6/4 split.
func Short(s string) string {
	return Truncate(s, 6, 4)
}
