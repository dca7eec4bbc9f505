package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/provider"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

const (
	addrA = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
	addrB = "0x13D962B70e8E280c7762557Ef8Bf89Fdc93e3F43"
)

// fakeProvider delivers notifications synchronously through notify.
type fakeProvider struct {
	mu sync.Mutex

	accounts   []string
	accountErr error
	chainHex   string

	known     map[string]bool
	switchErr error
	addErr    error

	switchCalls []string
	added       []provider.AddChainParams
	handlers    map[provider.Event][]provider.Handler
	unsubbed    bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: []string{addrA},
		chainHex: "0x14a34",
		known:    map[string]bool{"0x14a34": true, "0xaa37dc": true},
		handlers: map[provider.Event][]provider.Handler{},
	}
}

func (f *fakeProvider) RequestAccounts(context.Context) ([]string, error) {
	return f.accounts, f.accountErr
}

func (f *fakeProvider) ChainID(context.Context) (string, error) { return f.chainHex, nil }

func (f *fakeProvider) SwitchChain(_ context.Context, hex string) error {
	f.switchCalls = append(f.switchCalls, hex)
	if f.switchErr != nil {
		return f.switchErr
	}
	if !f.known[hex] {
		return provider.ErrUnrecognizedChain
	}
	f.chainHex = hex
	return nil
}

func (f *fakeProvider) AddChain(_ context.Context, p provider.AddChainParams) error {
	f.added = append(f.added, p)
	if f.addErr != nil {
		return f.addErr
	}
	f.known[p.ChainIDHex] = true
	return nil
}

func (f *fakeProvider) Subscribe(ev provider.Event, h provider.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[ev] = append(f.handlers[ev], h)
}

func (f *fakeProvider) UnsubscribeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = map[provider.Event][]provider.Handler{}
	f.unsubbed = true
}

func (f *fakeProvider) notify(n provider.Notification) {
	f.mu.Lock()
	hs := append([]provider.Handler(nil), f.handlers[n.Event]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(n)
	}
}

func newTestSession(t *testing.T, p provider.Provider) *Session {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewSession(p, cat)
}

func TestConnectWithoutProvider(t *testing.T) {
	s := newTestSession(t, nil)
	err := s.Connect(context.Background())
	require.True(t, errors.Is(err, shared.ErrWalletUnavailable))
	require.False(t, s.State().Connected)
}

func TestConnectRejected(t *testing.T) {
	p := newFakeProvider()
	p.accountErr = provider.ErrUserRejected
	s := newTestSession(t, p)

	err := s.Connect(context.Background())
	require.Equal(t, "UserRejected", shared.KindOf(err))
	require.False(t, s.State().Connected)
}

func TestConnectSetsState(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)

	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	require.NoError(t, s.Connect(context.Background()))
	st := s.State()
	require.True(t, st.Connected)
	require.Equal(t, addrA, st.Address)
	require.EqualValues(t, 84532, st.ActiveChain)
	require.Len(t, changes, 1)
	require.Equal(t, ChangeConnected, changes[0].Kind)
}

func TestSwitchNetworkKnown(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.SwitchNetwork(context.Background(), 11155420))
	require.EqualValues(t, 11155420, s.State().ActiveChain)
	require.Empty(t, p.added)
}

func TestSwitchNetworkAddsUnknownThenRetriesOnce(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.SwitchNetwork(context.Background(), 999))
	require.Equal(t, []string{"0x3e7", "0x3e7"}, p.switchCalls)
	require.Len(t, p.added, 1)
	require.Equal(t, "Zora Testnet", p.added[0].ChainName)
	require.Equal(t, "ETH", p.added[0].NativeCurrency.Symbol)
	require.EqualValues(t, 18, p.added[0].NativeCurrency.Decimals)
	require.EqualValues(t, 999, s.State().ActiveChain)
}

func TestSwitchNetworkAddFails(t *testing.T) {
	p := newFakeProvider()
	p.addErr = provider.ErrUserRejected
	s := newTestSession(t, p)
	require.NoError(t, s.Connect(context.Background()))

	err := s.SwitchNetwork(context.Background(), 999)
	require.True(t, errors.Is(err, shared.ErrNetworkSwitchFailed))
	require.Equal(t, "NetworkSwitchFailed", shared.KindOf(err))
	require.Len(t, p.switchCalls, 1)
	require.EqualValues(t, 84532, s.State().ActiveChain)
}

func TestSwitchNetworkDeclined(t *testing.T) {
	p := newFakeProvider()
	p.switchErr = provider.ErrUserRejected
	s := newTestSession(t, p)
	require.NoError(t, s.Connect(context.Background()))

	err := s.SwitchNetwork(context.Background(), 11155420)
	require.True(t, errors.Is(err, shared.ErrNetworkSwitchFailed))
	require.True(t, errors.Is(err, shared.ErrUserRejected))
}

func TestSwitchNetworkOutsideCatalog(t *testing.T) {
	s := newTestSession(t, newFakeProvider())
	err := s.SwitchNetwork(context.Background(), 1)
	require.True(t, errors.Is(err, shared.ErrUnsupportedChain))
}

func TestNotificationsUpdateStateAndNotify(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)
	require.NoError(t, s.Connect(context.Background()))

	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	p.notify(provider.Notification{Event: provider.ChainChanged, ChainIDHex: "0xAA37DC"})
	require.EqualValues(t, 11155420, s.State().ActiveChain)

	// same chain again: nothing changes, nobody is told
	p.notify(provider.Notification{Event: provider.ChainChanged, ChainIDHex: "11155420"})

	p.notify(provider.Notification{Event: provider.AccountsChanged, Accounts: []string{addrB}})
	require.Equal(t, addrB, s.State().Address)

	p.notify(provider.Notification{Event: provider.AccountsChanged, Accounts: []string{}})
	require.False(t, s.State().Connected)
	require.Empty(t, s.State().Address)

	require.Len(t, changes, 3)
	require.Equal(t, ChangeNetworkChanged, changes[0].Kind)
	require.Equal(t, ChangeAccountsChanged, changes[1].Kind)
	require.Equal(t, ChangeDisconnected, changes[2].Kind)
	for _, c := range changes {
		require.True(t, c.IdentityChanged())
	}
}

// A chainChanged echo of the session's own switch is not an identity change.
func TestOwnSwitchEchoIsNotIdentityChange(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)
	require.NoError(t, s.Connect(context.Background()))

	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	require.NoError(t, s.SwitchNetwork(context.Background(), 11155420))
	p.notify(provider.Notification{Event: provider.ChainChanged, ChainIDHex: "0xaa37dc"})

	require.Len(t, changes, 1)
	require.Equal(t, ChangeNetworkSwitched, changes[0].Kind)
	require.False(t, changes[0].IdentityChanged())
}

func TestCloseUnsubscribes(t *testing.T) {
	p := newFakeProvider()
	s := newTestSession(t, p)
	s.Close()
	require.True(t, p.unsubbed)
}
