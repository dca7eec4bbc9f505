package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var defaultNetworksYAML []byte

// NativeAddr marks a contract slot that refers to the network's native currency.
const NativeAddr = "0x0000000000000000000000000000000000000000"

const defaultNativeDecimals = 18

type ContractSet struct {
	Wrapped    common.Address `json:"wrapped"`
	Underlying common.Address `json:"underlying"`
}

// UnderlyingIsNative reports whether deposits are paid in the native currency
// rather than through an ERC-20 approval.
func (c ContractSet) UnderlyingIsNative() bool {
	return c.Underlying == common.HexToAddress(NativeAddr)
}

type Descriptor struct {
	ID             ChainID     `json:"chainId"`
	ChainIDHex     string      `json:"chainIdHex"`
	Name           string      `json:"name"`
	RPCURL         string      `json:"rpcUrl"`
	ExplorerURL    string      `json:"explorer,omitempty"`
	NativeSymbol   string      `json:"nativeSymbol"`
	NativeDecimals uint8       `json:"nativeDecimals"`
	Contracts      ContractSet `json:"contracts"`
}

// Catalog is the immutable network registry. All() keeps file order, which
// the selection tie-break depends on.
type Catalog struct {
	wrappedSymbol string
	ordered       []Descriptor
	byID          map[ChainID]int
}

type fileContracts struct {
	Wrapped    string `yaml:"wrapped"`
	Underlying string `yaml:"underlying"`
}

type fileNetwork struct {
	Name           string        `yaml:"name"`
	ChainID        ChainID       `yaml:"chainId"`
	RPC            string        `yaml:"rpc"`
	Explorer       string        `yaml:"explorer"`
	NativeSymbol   string        `yaml:"nativeSymbol"`
	NativeDecimals uint8         `yaml:"nativeDecimals"`
	Contracts      fileContracts `yaml:"contracts"`
}

type file struct {
	WrappedSymbol string        `yaml:"wrappedSymbol"`
	Networks      []fileNetwork `yaml:"networks"`
}

func Default() (*Catalog, error) {
	return Load(defaultNetworksYAML)
}

func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read networks file: %w", err)
	}
	return Load(b)
}

func Load(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse networks: %w", err)
	}
	if len(f.Networks) == 0 {
		return nil, fmt.Errorf("networks: at least one network is required")
	}

	c := &Catalog{
		wrappedSymbol: strings.TrimSpace(f.WrappedSymbol),
		ordered:       make([]Descriptor, 0, len(f.Networks)),
		byID:          make(map[ChainID]int, len(f.Networks)),
	}
	if c.wrappedSymbol == "" {
		c.wrappedSymbol = "SuperUSDC"
	}

	for i, n := range f.Networks {
		d, err := n.descriptor()
		if err != nil {
			return nil, fmt.Errorf("networks[%d]: %w", i, err)
		}
		if prev, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("networks[%d]: chain id %s already used by %q", i, d.ID, c.ordered[prev].Name)
		}
		c.byID[d.ID] = len(c.ordered)
		c.ordered = append(c.ordered, d)
	}

	return c, nil
}

func (n fileNetwork) descriptor() (Descriptor, error) {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return Descriptor{}, fmt.Errorf("name is required")
	}
	if n.ChainID.IsZero() {
		return Descriptor{}, fmt.Errorf("%s: chainId is required", name)
	}
	rpc := strings.TrimSpace(n.RPC)
	if rpc == "" {
		return Descriptor{}, fmt.Errorf("%s: rpc is required", name)
	}

	wrapped, err := parseAddress(n.Contracts.Wrapped, false)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%s: contracts.wrapped: %w", name, err)
	}
	underlying, err := parseAddress(n.Contracts.Underlying, true)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%s: contracts.underlying: %w", name, err)
	}

	symbol := strings.TrimSpace(n.NativeSymbol)
	if symbol == "" {
		symbol = "ETH"
	}
	decimals := n.NativeDecimals
	if decimals == 0 {
		decimals = defaultNativeDecimals
	}

	return Descriptor{
		ID:             n.ChainID,
		ChainIDHex:     n.ChainID.Hex(),
		Name:           name,
		RPCURL:         rpc,
		ExplorerURL:    strings.TrimRight(strings.TrimSpace(n.Explorer), "/"),
		NativeSymbol:   symbol,
		NativeDecimals: decimals,
		Contracts: ContractSet{
			Wrapped:    wrapped,
			Underlying: underlying,
		},
	}, nil
}

// parseAddress accepts an empty value only where the native sentinel is allowed.
func parseAddress(raw string, allowNative bool) (common.Address, error) {
	a := strings.TrimSpace(raw)
	if a == "" {
		if allowNative {
			return common.HexToAddress(NativeAddr), nil
		}
		return common.Address{}, fmt.Errorf("address is required")
	}
	if !common.IsHexAddress(a) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	addr := common.HexToAddress(a)
	if addr == (common.Address{}) && !allowNative {
		return common.Address{}, fmt.Errorf("zero address not allowed")
	}
	return addr, nil
}

func (c *Catalog) ByID(id ChainID) (Descriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return c.ordered[i], true
}

// Lookup resolves a wallet- or user-supplied id in any representation.
func (c *Catalog) Lookup(raw string) (Descriptor, bool) {
	id, err := ParseChainID(raw)
	if err != nil {
		return Descriptor{}, false
	}
	return c.ByID(id)
}

func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func (c *Catalog) Contracts(id ChainID) (ContractSet, bool) {
	d, ok := c.ByID(id)
	if !ok {
		return ContractSet{}, false
	}
	return d.Contracts, true
}

// FirstOtherThan returns the first network in catalog order whose id differs
// from id.
func (c *Catalog) FirstOtherThan(id ChainID) (Descriptor, bool) {
	for _, d := range c.ordered {
		if d.ID != id {
			return d, true
		}
	}
	return Descriptor{}, false
}

func (c *Catalog) WrappedSymbol() string { return c.wrappedSymbol }

func (c *Catalog) Len() int { return len(c.ordered) }
