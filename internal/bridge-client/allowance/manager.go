package allowance

import (
	"context"
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/utils"
)

// Token is the allowance surface of the on-chain client.
type Token interface {
	Contracts(chain catalog.ChainID) (catalog.ContractSet, error)
	TokenDecimals(ctx context.Context, chain catalog.ChainID, token common.Address) (uint8, error)
	Allowance(ctx context.Context, chain catalog.ChainID, owner common.Address) (*big.Int, error)
	Approve(ctx context.Context, chain catalog.ChainID, amount *big.Int) (*types.Receipt, error)
}

type key struct {
	account common.Address
	chain   catalog.ChainID
}

// Manager raises the underlying allowance granted to the wrapped contract.
// Calls for the same (account, network) never overlap.
type Manager struct {
	token Token

	mu    sync.Mutex
	locks map[key]*sync.Mutex
}

func NewManager(token Token) *Manager {
	return &Manager{token: token, locks: make(map[key]*sync.Mutex)}
}

// NeedsApproval reports whether amount exceeds the allowance currently
// granted to the wrapped contract. It never writes.
func (m *Manager) NeedsApproval(ctx context.Context, account common.Address, chain catalog.ChainID, amount decimal.Decimal) (bool, error) {
	set, err := m.token.Contracts(chain)
	if err != nil {
		return false, err
	}
	if set.UnderlyingIsNative() {
		return false, nil
	}
	r, err := m.read(ctx, account, chain, set, amount)
	if err != nil {
		return false, err
	}
	return r.short(), nil
}

// EnsureAllowance approves exactly amount when the current allowance is
// lower, and waits for the approval to confirm. It reports whether an
// approval was sent.
func (m *Manager) EnsureAllowance(ctx context.Context, account common.Address, chain catalog.ChainID, amount decimal.Decimal) (bool, error) {
	set, err := m.token.Contracts(chain)
	if err != nil {
		return false, err
	}
	if set.UnderlyingIsNative() {
		return false, nil
	}

	l := m.lockFor(key{account: account, chain: chain})
	l.Lock()
	defer l.Unlock()

	r, err := m.read(ctx, account, chain, set, amount)
	if err != nil {
		return false, err
	}
	if !r.short() {
		return false, nil
	}

	log.Info("allowance below amount, approving",
		"reason", shared.ErrInsufficientAllowance.Error(),
		"chain_id", chain.String(),
		"current", utils.FormatUnitsTrim(r.current, r.decimals, 6),
		"amount", amount.String())

	if _, err := m.token.Approve(ctx, chain, r.want); err != nil {
		return false, errors.Wrap(err, "approve underlying")
	}
	return true, nil
}

type reading struct {
	want     *big.Int
	current  *big.Int
	decimals uint8
}

func (r reading) short() bool { return r.current.Cmp(r.want) < 0 }

func (m *Manager) read(ctx context.Context, account common.Address, chain catalog.ChainID, set catalog.ContractSet, amount decimal.Decimal) (reading, error) {
	dec, err := m.token.TokenDecimals(ctx, chain, set.Underlying)
	if err != nil {
		return reading{}, err
	}
	want, err := utils.ToUnits(amount, dec)
	if err != nil {
		return reading{}, err
	}
	current, err := m.token.Allowance(ctx, chain, account)
	if err != nil {
		return reading{}, err
	}
	return reading{want: want, current: current, decimals: dec}, nil
}

func (m *Manager) lockFor(k key) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[k]
	if !ok {
		l = &sync.Mutex{}
		m.locks[k] = l
	}
	return l
}
