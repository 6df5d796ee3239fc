package account

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidAddress = errors.New("invalid account address")

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// Normalize lowercases and trims addr, rejecting anything that is not a
// 0x-prefixed hex string.
func Normalize(addr string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(addr))
	if !addressPattern.MatchString(a) {
		return "", ErrInvalidAddress
	}
	return a, nil
}

const DefaultFormatLength = 8

// FormatAddress shortens addr to its first and last length characters.
// Addresses no longer than 2*length come back unchanged.
func FormatAddress(addr string, length int) string {
	if addr == "" {
		return ""
	}
	if length <= 0 || len(addr) <= length*2 {
		return addr
	}
	return addr[:length] + "..." + addr[len(addr)-length:]
}
