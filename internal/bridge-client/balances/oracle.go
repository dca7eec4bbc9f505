package balances

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/utils"
)

// TokenReader is the read side of the on-chain client.
type TokenReader interface {
	Contracts(chain catalog.ChainID) (catalog.ContractSet, error)
	NativeBalance(ctx context.Context, chain catalog.ChainID, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, chain catalog.ChainID, token, account common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, chain catalog.ChainID, token common.Address) (uint8, error)
}

// Oracle produces fresh balance snapshots. It keeps no state of its own.
type Oracle struct {
	reader  TokenReader
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewOracle(reader TokenReader, cat *catalog.Catalog) *Oracle {
	return &Oracle{reader: reader, catalog: cat, now: time.Now}
}

// LoadBalances reads native, wrapped and underlying balances of account on
// chain, each formatted with its own token precision.
func (o *Oracle) LoadBalances(ctx context.Context, account common.Address, chain catalog.ChainID) (shared.Balances, error) {
	set, err := o.reader.Contracts(chain)
	if err != nil {
		return shared.Balances{}, err
	}
	nativeDecimals := uint8(18)
	if d, ok := o.catalog.ByID(chain); ok && d.NativeDecimals > 0 {
		nativeDecimals = d.NativeDecimals
	}

	nativeRaw, err := o.reader.NativeBalance(ctx, chain, account)
	if err != nil {
		return shared.Balances{}, err
	}
	wrapped, err := o.tokenAmount(ctx, chain, set.Wrapped, account)
	if err != nil {
		return shared.Balances{}, errors.Wrap(err, "wrapped balance")
	}

	underlying := utils.FormatUnits(nativeRaw, nativeDecimals)
	if !set.UnderlyingIsNative() {
		underlying, err = o.tokenAmount(ctx, chain, set.Underlying, account)
		if err != nil {
			return shared.Balances{}, errors.Wrap(err, "underlying balance")
		}
	}

	return shared.Balances{
		Account:    account.Hex(),
		ChainID:    chain,
		Native:     utils.FormatUnits(nativeRaw, nativeDecimals),
		Wrapped:    wrapped,
		Underlying: underlying,
		LoadedAt:   o.now(),
	}, nil
}

func (o *Oracle) tokenAmount(ctx context.Context, chain catalog.ChainID, token, account common.Address) (string, error) {
	raw, err := o.reader.TokenBalance(ctx, chain, token, account)
	if err != nil {
		return "", err
	}
	dec, err := o.reader.TokenDecimals(ctx, chain, token)
	if err != nil {
		return "", err
	}
	return utils.FormatUnits(raw, dec), nil
}

type cacheKey struct {
	account common.Address
	chain   catalog.ChainID
}

// Cache holds the last snapshot per (account, network). It is cleared
// whenever the wallet identity changes.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]shared.Balances
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]shared.Balances)}
}

func (c *Cache) Put(b shared.Balances) {
	if !common.IsHexAddress(b.Account) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{account: common.HexToAddress(b.Account), chain: b.ChainID}] = b
}

func (c *Cache) Get(account common.Address, chain catalog.ChainID) (shared.Balances, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[cacheKey{account: account, chain: chain}]
	return b, ok
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
