package validator

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
// Ethereum and BSC share the address format.
func IsValidAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// NormalizeAddress converts an address to lowercase
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsZeroAddress checks if the address is the zero address
func IsZeroAddress(address string) bool {
	return common.HexToAddress(address) == (common.Address{})
}

// TruncateAddress returns a truncated address for display (0x1234...abcd)
func TruncateAddress(address string, prefixLen, suffixLen int) string {
	if len(address) < prefixLen+suffixLen+3 {
		return address
	}
	return address[:prefixLen] + "..." + address[len(address)-suffixLen:]
}
