package chains

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

// stubBackend satisfies Backend through the embedded nil interface; the
// service never calls into it in these tests.
type stubBackend struct {
	Backend
	id catalog.ChainID
}

func newTestService(t *testing.T, dials *atomic.Int32) *Service {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	svc, err := NewService(Config{
		Catalog: cat,
		Dial: func(_ context.Context, d catalog.Descriptor) (Backend, error) {
			dials.Add(1)
			return &stubBackend{id: d.ID}, nil
		},
	})
	require.NoError(t, err)
	return svc
}

func TestClientForCachesPerNetwork(t *testing.T) {
	var dials atomic.Int32
	svc := newTestService(t, &dials)

	a1, err := svc.ClientFor(context.Background(), 84532)
	require.NoError(t, err)
	a2, err := svc.ClientFor(context.Background(), 84532)
	require.NoError(t, err)
	require.Same(t, a1, a2)

	b, err := svc.ClientFor(context.Background(), 999)
	require.NoError(t, err)
	require.EqualValues(t, 999, b.(*stubBackend).id)
	require.EqualValues(t, 2, dials.Load())

	require.NoError(t, svc.Close())
	_, err = svc.ClientFor(context.Background(), 84532)
	require.NoError(t, err)
	require.EqualValues(t, 3, dials.Load())
}

func TestUnknownChainIsUnsupported(t *testing.T) {
	var dials atomic.Int32
	svc := newTestService(t, &dials)

	_, err := svc.ClientFor(context.Background(), 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrUnsupportedChain))
	require.Zero(t, dials.Load())
}

func TestRegisterMakesNetworkKnown(t *testing.T) {
	var dials atomic.Int32
	svc := newTestService(t, &dials)

	require.False(t, svc.Known(31337))
	svc.Register(catalog.Descriptor{ID: 31337, Name: "Local", RPCURL: "http://127.0.0.1:8545"})
	require.True(t, svc.Known(31337))

	d, err := svc.Resolve(31337)
	require.NoError(t, err)
	require.Equal(t, "Local", d.Name)

	_, err = svc.ClientFor(context.Background(), 31337)
	require.NoError(t, err)
}
