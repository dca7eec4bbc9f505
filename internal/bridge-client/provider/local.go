package provider

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/event"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/ethwallet/wtypes"
)

// ChainRegistry is the set of networks the local wallet can sign for.
type ChainRegistry interface {
	Known(id catalog.ChainID) bool
	Resolve(id catalog.ChainID) (catalog.Descriptor, error)
	Register(d catalog.Descriptor)
}

type LocalConfig struct {
	Wallet       wtypes.Wallet
	Chains       ChainRegistry
	Approver     Approver
	InitialChain catalog.ChainID
}

// Local is a single-account wallet provider backed by a local key.
type Local struct {
	wallet   wtypes.Wallet
	chains   ChainRegistry
	approver Approver

	mu         sync.Mutex
	active     catalog.ChainID
	authorized bool
	locked     bool
	scope      *event.SubscriptionScope

	feed event.Feed
}

var _ Provider = (*Local)(nil)

func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("provider: wallet is nil")
	}
	if cfg.Chains == nil {
		return nil, fmt.Errorf("provider: chain registry is nil")
	}
	if cfg.Approver == nil {
		cfg.Approver = AutoApprove{}
	}
	if !cfg.Chains.Known(cfg.InitialChain) {
		return nil, fmt.Errorf("provider: initial chain %s is not known", cfg.InitialChain)
	}

	return &Local{
		wallet:   cfg.Wallet,
		chains:   cfg.Chains,
		approver: cfg.Approver,
		active:   cfg.InitialChain,
		scope:    &event.SubscriptionScope{},
	}, nil
}

func (l *Local) RequestAccounts(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	granted := l.authorized && !l.locked
	l.mu.Unlock()

	if !granted {
		if err := l.approve(ctx, RequestConnect, "connect account "+l.wallet.Address().Hex()); err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.authorized = true
		l.locked = false
		l.mu.Unlock()
	}

	return []string{l.wallet.Address().Hex()}, nil
}

func (l *Local) ChainID(ctx context.Context) (string, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active.Hex(), nil
}

func (l *Local) SwitchChain(ctx context.Context, chainIDHex string) error {
	id, err := catalog.ParseChainID(chainIDHex)
	if err != nil {
		return invalidParams("chainId: %v", err)
	}
	if !l.chains.Known(id) {
		return ErrUnrecognizedChain
	}

	l.mu.Lock()
	same := l.active == id
	l.mu.Unlock()
	if same {
		return nil
	}

	d, err := l.chains.Resolve(id)
	if err != nil {
		return ErrUnrecognizedChain
	}
	if err := l.approve(ctx, RequestSwitchChain, "switch to "+d.Name+" ("+id.String()+")"); err != nil {
		return err
	}

	l.mu.Lock()
	l.active = id
	l.mu.Unlock()

	l.emit(Notification{Event: ChainChanged, ChainIDHex: id.Hex()})
	return nil
}

func (l *Local) AddChain(ctx context.Context, params AddChainParams) error {
	id, err := catalog.ParseChainID(params.ChainIDHex)
	if err != nil {
		return invalidParams("chainId: %v", err)
	}
	name := strings.TrimSpace(params.ChainName)
	if name == "" {
		return invalidParams("chainName is required")
	}
	if len(params.RPCURLs) == 0 || strings.TrimSpace(params.RPCURLs[0]) == "" {
		return invalidParams("rpcUrls is required")
	}

	if err := l.approve(ctx, RequestAddChain, "add network "+name+" ("+id.String()+")"); err != nil {
		return err
	}

	if l.chains.Known(id) {
		return nil
	}

	explorer := ""
	if len(params.BlockExplorerURLs) > 0 {
		explorer = params.BlockExplorerURLs[0]
	}
	l.chains.Register(catalog.Descriptor{
		ID:             id,
		ChainIDHex:     id.Hex(),
		Name:           name,
		RPCURL:         strings.TrimSpace(params.RPCURLs[0]),
		ExplorerURL:    explorer,
		NativeSymbol:   params.NativeCurrency.Symbol,
		NativeDecimals: params.NativeCurrency.Decimals,
	})
	log.Info("network added to wallet", "network", name, "chain_id", id.String())
	return nil
}

// Subscribe delivers notifications of one event kind to handler on its own
// goroutine until UnsubscribeAll.
func (l *Local) Subscribe(ev Event, handler Handler) {
	ch := make(chan Notification, 16)

	l.mu.Lock()
	sub := l.scope.Track(l.feed.Subscribe(ch))
	l.mu.Unlock()

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case n := <-ch:
				if n.Event == ev {
					handler(n)
				}
			case <-sub.Err():
				return
			}
		}
	}()
}

func (l *Local) UnsubscribeAll() {
	l.mu.Lock()
	old := l.scope
	l.scope = &event.SubscriptionScope{}
	l.mu.Unlock()

	old.Close()
}

// Lock hides the account, as a locked browser wallet does.
func (l *Local) Lock() {
	l.mu.Lock()
	l.locked = true
	l.mu.Unlock()

	l.emit(Notification{Event: AccountsChanged, Accounts: []string{}})
}

func (l *Local) Unlock() {
	l.mu.Lock()
	l.locked = false
	authorized := l.authorized
	l.mu.Unlock()

	if authorized {
		l.emit(Notification{Event: AccountsChanged, Accounts: []string{l.wallet.Address().Hex()}})
	}
}

// TransactOpts returns a signer for chain once the user confirms the write.
func (l *Local) TransactOpts(ctx context.Context, chain catalog.ChainID, summary string) (*bind.TransactOpts, error) {
	l.mu.Lock()
	granted := l.authorized && !l.locked
	l.mu.Unlock()
	if !granted {
		return nil, ErrUnauthorized
	}
	if !l.chains.Known(chain) {
		return nil, ErrUnrecognizedChain
	}

	if err := l.approve(ctx, RequestTransaction, summary); err != nil {
		return nil, err
	}
	return l.wallet.TransactOpts(ctx, new(big.Int).SetUint64(uint64(chain)))
}

func (l *Local) approve(ctx context.Context, kind RequestKind, summary string) error {
	ok, err := l.approver.Approve(ctx, ApprovalRequest{Kind: kind, Summary: summary})
	if err != nil {
		return fmt.Errorf("approval %s: %w", kind, err)
	}
	if !ok {
		return ErrUserRejected
	}
	return nil
}

func (l *Local) emit(n Notification) {
	l.feed.Send(n)
}
