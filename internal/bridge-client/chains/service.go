package chains

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

// Backend is the surface of an RPC client the bridge needs on one network.
type Backend interface {
	bind.ContractBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type DialFunc func(ctx context.Context, d catalog.Descriptor) (Backend, error)

type Config struct {
	Catalog     *catalog.Catalog
	DialTimeout time.Duration
	// Dial overrides the go-ethereum dialer; tests use it.
	Dial DialFunc
}

// Service keeps one RPC client per network. Networks outside the catalog can
// be registered when the wallet adds them.
type Service struct {
	catalog     *catalog.Catalog
	dial        DialFunc
	dialTimeout time.Duration

	mu         sync.Mutex
	registered map[catalog.ChainID]catalog.Descriptor
	clients    map[catalog.ChainID]Backend
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("chains: catalog is nil")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 15 * time.Second
	}

	s := &Service{
		catalog:     cfg.Catalog,
		dial:        cfg.Dial,
		dialTimeout: cfg.DialTimeout,
		registered:  make(map[catalog.ChainID]catalog.Descriptor),
		clients:     make(map[catalog.ChainID]Backend),
	}
	if s.dial == nil {
		s.dial = s.dialEthclient
	}
	return s, nil
}

func (s *Service) Register(d catalog.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[d.ID] = d
}

func (s *Service) Resolve(id catalog.ChainID) (catalog.Descriptor, error) {
	if d, ok := s.catalog.ByID(id); ok {
		return d, nil
	}

	s.mu.Lock()
	d, ok := s.registered[id]
	s.mu.Unlock()
	if ok {
		return d, nil
	}

	return catalog.Descriptor{}, errors.Mark(errors.Newf("unknown chain %s", id), shared.ErrUnsupportedChain)
}

func (s *Service) Known(id catalog.ChainID) bool {
	_, err := s.Resolve(id)
	return err == nil
}

// ClientFor returns (and caches) the client for a network.
func (s *Service) ClientFor(ctx context.Context, id catalog.ChainID) (Backend, error) {
	s.mu.Lock()
	if existing := s.clients[id]; existing != nil {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	d, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}

	// Dial outside the lock
	dialed, err := s.dial(ctx, d)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing := s.clients[id]; existing != nil {
		s.mu.Unlock()
		closeBackend(dialed)
		return existing, nil
	}
	s.clients[id] = dialed
	s.mu.Unlock()

	return dialed, nil
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.clients {
		closeBackend(c)
		delete(s.clients, id)
	}
	return nil
}

func (s *Service) dialEthclient(ctx context.Context, d catalog.Descriptor) (Backend, error) {
	url := strings.TrimSpace(d.RPCURL)
	if url == "" {
		return nil, errors.Newf("network %q has no rpc url", d.Name)
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()

	cfg := retry.DefaultConfig()
	cfg.MaxDelayBeforeRetrying = 2 * time.Second
	cfg.InitialDelayBeforeRetrying = 200 * time.Millisecond

	res, err := retry.Retry(dialCtx, cfg,
		func(ctx context.Context) ([]interface{}, error) {
			c, err := ethclient.DialContext(ctx, url)
			if err != nil {
				return nil, err
			}
			return []interface{}{c}, nil
		},
		nil,
		"dial "+d.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s at %s", d.Name, url)
	}
	client := res[0].(*ethclient.Client)

	remote, err := client.ChainID(dialCtx)
	if err != nil {
		log.Warn("chain id check skipped", "network", d.Name, "error", err)
		return client, nil
	}
	if remote.Uint64() != uint64(d.ID) {
		client.Close()
		return nil, errors.Newf("rpc %s reports chain %s, expected %s", url, remote, d.ID)
	}

	log.Info("connected to network", "network", d.Name, "chain_id", d.ID.String())
	return client, nil
}

func closeBackend(b Backend) {
	if closer, ok := b.(interface{ Close() }); ok {
		closer.Close()
	}
}
