package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// ChainID is the canonical network identifier. Wallets report ids as 0x-hex
// strings, config and the coordinator use decimal; both parse to the same value.
type ChainID uint64

// Hex returns the lowercase 0x-prefixed form, e.g. "0x14a34".
func (c ChainID) Hex() string {
	return "0x" + strconv.FormatUint(uint64(c), 16)
}

// String returns the decimal form, e.g. "84532".
func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

func (c ChainID) IsZero() bool { return c == 0 }

// ParseChainID normalizes a hex ("0x14A34", "0X14a34") or decimal ("84532")
// network id.
func ParseChainID(raw string) (ChainID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("chain id is empty")
	}

	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(NormalizeHex0x(s)[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", raw, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("invalid chain id %q: zero", raw)
	}
	return ChainID(v), nil
}

func NormalizeHex0x(s string) string {
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}

// UnmarshalText lets catalog files and request bodies carry either form.
func (c *ChainID) UnmarshalText(text []byte) error {
	id, err := ParseChainID(string(text))
	if err != nil {
		return err
	}
	*c = id
	return nil
}

func (c ChainID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
