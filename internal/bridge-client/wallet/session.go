package wallet

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/provider"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

type ChangeKind string

const (
	ChangeConnected       ChangeKind = "connected"
	ChangeDisconnected    ChangeKind = "disconnected"
	ChangeNetworkSwitched ChangeKind = "network_switched"
	ChangeNetworkChanged  ChangeKind = "network_changed"
	ChangeAccountsChanged ChangeKind = "accounts_changed"
)

type Change struct {
	Kind     ChangeKind
	Previous shared.WalletState
	Current  shared.WalletState
}

// IdentityChanged reports whether data cached against the previous state is
// now stale: the account or network moved outside a session-initiated switch.
func (c Change) IdentityChanged() bool {
	switch c.Kind {
	case ChangeNetworkChanged, ChangeAccountsChanged, ChangeDisconnected:
		return true
	default:
		return false
	}
}

type Listener func(Change)

// message is the only way WalletState changes.
type message interface{ isMessage() }

type msgConnected struct {
	address string
	chain   catalog.ChainID
}

type msgSwitched struct{ chain catalog.ChainID }

type msgNotification struct{ n provider.Notification }

type msgDisconnected struct{}

func (msgConnected) isMessage()    {}
func (msgSwitched) isMessage()     {}
func (msgNotification) isMessage() {}
func (msgDisconnected) isMessage() {}

// Session owns WalletState. Construct one per process.
type Session struct {
	provider provider.Provider
	catalog  *catalog.Catalog

	mu            sync.Mutex
	state         shared.WalletState
	pendingSwitch catalog.ChainID
	listeners     []Listener

	switchMu sync.Mutex
}

// NewSession subscribes to provider notifications. A nil provider yields a
// session whose Connect fails with ErrWalletUnavailable.
func NewSession(p provider.Provider, cat *catalog.Catalog) *Session {
	s := &Session{provider: p, catalog: cat}
	if p != nil {
		p.Subscribe(provider.ChainChanged, s.onNotification)
		p.Subscribe(provider.AccountsChanged, s.onNotification)
	}
	return s
}

func (s *Session) State() shared.WalletState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		return shared.ErrWalletUnavailable
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return classifyProviderError(err, "request accounts")
	}
	if len(accounts) == 0 || !common.IsHexAddress(accounts[0]) {
		return errors.Mark(errors.New("wallet returned no usable account"), shared.ErrWalletUnavailable)
	}

	rawChain, err := s.provider.ChainID(ctx)
	if err != nil {
		return classifyProviderError(err, "read active chain")
	}
	chain, err := catalog.ParseChainID(rawChain)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "active chain"), shared.ErrWalletUnavailable)
	}

	s.apply(msgConnected{address: common.HexToAddress(accounts[0]).Hex(), chain: chain})
	log.Info("wallet connected", "address", accounts[0], "chain_id", chain.String())
	return nil
}

func (s *Session) Disconnect() {
	s.apply(msgDisconnected{})
}

// SwitchNetwork asks the wallet to move to target, registering the network
// first when the wallet does not know it. The switch is retried once.
func (s *Session) SwitchNetwork(ctx context.Context, target catalog.ChainID) error {
	if s.provider == nil {
		return shared.ErrWalletUnavailable
	}
	d, ok := s.catalog.ByID(target)
	if !ok {
		return errors.Mark(errors.Newf("network %s is not in the catalog", target), shared.ErrUnsupportedChain)
	}

	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	s.mu.Lock()
	s.pendingSwitch = target
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.pendingSwitch = 0
		s.mu.Unlock()
	}()

	err := s.provider.SwitchChain(ctx, target.Hex())
	if errors.Is(err, provider.ErrUnrecognizedChain) {
		log.Info("wallet does not know network, adding it", "network", d.Name, "chain_id", target.String())
		if addErr := s.provider.AddChain(ctx, addChainParams(d)); addErr != nil {
			return switchFailed(addErr, "add network "+d.Name)
		}
		err = s.provider.SwitchChain(ctx, target.Hex())
	}
	if err != nil {
		return switchFailed(err, "switch to "+d.Name)
	}

	s.apply(msgSwitched{chain: target})
	return nil
}

// Close drops all provider subscriptions.
func (s *Session) Close() {
	if s.provider != nil {
		s.provider.UnsubscribeAll()
	}
}

func (s *Session) onNotification(n provider.Notification) {
	s.apply(msgNotification{n: n})
}

// apply is the single writer of WalletState. Listeners run after the lock is
// released, in registration order.
func (s *Session) apply(m message) {
	s.mu.Lock()
	prev := s.state
	next := prev
	var kind ChangeKind

	switch msg := m.(type) {
	case msgConnected:
		next = shared.WalletState{Address: msg.address, ActiveChain: msg.chain, Connected: true}
		kind = ChangeConnected

	case msgDisconnected:
		next = shared.WalletState{ActiveChain: prev.ActiveChain}
		kind = ChangeDisconnected

	case msgSwitched:
		next.ActiveChain = msg.chain
		kind = ChangeNetworkSwitched

	case msgNotification:
		kind = s.applyNotification(msg.n, &next)
	}

	if next == prev && kind != ChangeConnected {
		s.mu.Unlock()
		return
	}
	s.state = next
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	change := Change{Kind: kind, Previous: prev, Current: next}
	for _, l := range listeners {
		l(change)
	}
}

// applyNotification must be called with s.mu held.
func (s *Session) applyNotification(n provider.Notification, next *shared.WalletState) ChangeKind {
	switch n.Event {
	case provider.ChainChanged:
		chain, err := catalog.ParseChainID(n.ChainIDHex)
		if err != nil {
			log.Warn("ignoring chainChanged with bad id", "chain_id", n.ChainIDHex, "error", err)
			return ChangeNetworkChanged
		}
		next.ActiveChain = chain
		if chain == s.pendingSwitch {
			return ChangeNetworkSwitched
		}
		return ChangeNetworkChanged

	case provider.AccountsChanged:
		if len(n.Accounts) == 0 {
			next.Address = ""
			next.Connected = false
			return ChangeDisconnected
		}
		if !common.IsHexAddress(n.Accounts[0]) {
			log.Warn("ignoring accountsChanged with bad address", "account", n.Accounts[0])
			return ChangeAccountsChanged
		}
		next.Address = common.HexToAddress(n.Accounts[0]).Hex()
		next.Connected = true
		return ChangeAccountsChanged
	}
	return ChangeNetworkChanged
}

func addChainParams(d catalog.Descriptor) provider.AddChainParams {
	p := provider.AddChainParams{
		ChainIDHex: d.ID.Hex(),
		ChainName:  d.Name,
		RPCURLs:    []string{d.RPCURL},
		NativeCurrency: provider.NativeCurrency{
			Name:     nativeName(d.NativeSymbol),
			Symbol:   d.NativeSymbol,
			Decimals: d.NativeDecimals,
		},
	}
	if d.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{d.ExplorerURL}
	}
	return p
}

func nativeName(symbol string) string {
	if strings.EqualFold(symbol, "ETH") {
		return "Ether"
	}
	return symbol
}

func classifyProviderError(err error, msg string) error {
	if errors.Is(err, provider.ErrUserRejected) {
		return shared.Mark(err, shared.ErrUserRejected, msg)
	}
	return shared.Mark(err, shared.ErrWalletUnavailable, msg)
}

func switchFailed(err error, msg string) error {
	wrapped := shared.Mark(err, shared.ErrNetworkSwitchFailed, msg)
	if errors.Is(err, provider.ErrUserRejected) {
		wrapped = errors.Mark(wrapped, shared.ErrUserRejected)
	}
	return wrapped
}
