package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseOptionalAddress returns nil for an empty input.
func ParseOptionalAddress(input string) (*common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	addr, err := ParseAddress(input)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
