package bridge_client

import (
	"context"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/bridge-client/cmd/bridge-client/config"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/allowance"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/balances"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/chains"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/coordinator"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/ethwallet/userwallet"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/ethwallet/wtypes"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/helpers"
	clienthttp "github.com/quantumauth-io/bridge-client/internal/bridge-client/http"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/metrics"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/onchain"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/poller"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/provider"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/transfer"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/wallet"
)

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

func Run(ctx context.Context, build BuildInfo) error {
	log.Info("bridge-client",
		"version", build.Version,
		"commit", build.Commit,
		"build_date", build.BuildDate,
	)

	// ---- Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	// ---- Network catalog
	cat, err := loadCatalog(cfg.ClientSettings.NetworksFile)
	if err != nil {
		return err
	}
	initialChain := cfg.InitialChainID
	if initialChain.IsZero() {
		initialChain = cat.All()[0].ID
	}
	if _, ok := cat.ByID(initialChain); !ok {
		return errors.Newf("initial chain %s is not in the network catalog", initialChain)
	}

	// ---- Chain service (dialled lazily, one client per network)
	chainService, err := chains.NewService(chains.Config{Catalog: cat})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := chainService.Close(); closeErr != nil {
			log.Error("chain service close failed", "error", closeErr)
		}
	}()

	// ---- Signing key
	signingWallet, err := loadWallet(cfg)
	if err != nil {
		return err
	}
	log.Info("wallet loaded", "address", signingWallet.Address().Hex())

	// ---- Wallet provider + session
	var approver provider.Approver = provider.AutoApprove{}
	if !cfg.ClientSettings.AutoApprove {
		if !helpers.IsTerminal() {
			return errors.New("AutoApprove is off but stdin is not a terminal to confirm requests on")
		}
		approver = &provider.TerminalApprover{In: os.Stdin, Out: os.Stderr}
	}
	localProvider, err := provider.NewLocal(provider.LocalConfig{
		Wallet:       signingWallet,
		Chains:       chainService,
		Approver:     approver,
		InitialChain: initialChain,
	})
	if err != nil {
		return err
	}
	defer localProvider.UnsubscribeAll()

	session := wallet.NewSession(localProvider, cat)
	defer session.Close()

	// ---- On-chain access
	onchainClient, err := onchain.NewClient(onchain.Config{
		Catalog: cat,
		Chains:  chainService,
		Signer:  localProvider,
	})
	if err != nil {
		return err
	}
	oracle := balances.NewOracle(onchainClient, cat)
	balanceCache := balances.NewCache()
	allowances := allowance.NewManager(onchainClient)

	// ---- Coordinator + poller
	coordinatorClient, err := coordinator.NewClient(coordinator.Config{
		BaseURL: cfg.Coordinator.URL,
		Timeout: cfg.CoordinatorTimeout,
		RPS:     cfg.Coordinator.RPS,
		Burst:   cfg.Coordinator.Burst,
	})
	if err != nil {
		return err
	}
	appMetrics := metrics.New()
	taskPoller := poller.New(coordinatorClient, appMetrics)

	// ---- Orchestrator
	orchestrator, err := transfer.New(transfer.Config{
		Catalog:            cat,
		Wallet:             session,
		Balances:           oracle,
		Cache:              balanceCache,
		Allowances:         allowances,
		Contracts:          onchainClient,
		Coordinator:        coordinatorClient,
		Tracker:            taskPoller,
		Metrics:            appMetrics,
		PollInterval:       cfg.PollInterval,
		PollDeadline:       cfg.PollDeadline,
		InstructionTimeout: cfg.Coordinator.InstructionTimeout,
	})
	if err != nil {
		return err
	}
	defer orchestrator.Close()

	session.OnChange(func(c wallet.Change) {
		appMetrics.WalletChange(string(c.Kind))
		orchestrator.HandleWalletChange(c)
	})

	// ---- HTTP server
	handler := clienthttp.NewHandler(clienthttp.Deps{
		Catalog:          cat,
		Wallet:           session,
		Locker:           localProvider,
		Transfers:        orchestrator,
		Balances:         oracle,
		Cache:            balanceCache,
		Tasks:            coordinatorClient,
		Metrics:          appMetrics.Handler(),
		OperationTimeout: cfg.OperationTimeout,
		AllowedOrigins:   cfg.ClientSettings.AllowedOrigins,
	})

	listenAddr := net.JoinHostPort(cfg.ClientSettings.LocalHost, cfg.ClientSettings.Port)
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           clienthttp.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("bridge client ready",
		"addr", listenAddr,
		"coordinator", cfg.Coordinator.URL,
		"networks", cat.Len(),
	)
	return clienthttp.Serve(ctx, httpServer, 5*time.Second)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

// loadWallet prefers a raw key from the environment, then the keystore.
func loadWallet(cfg *config.Config) (wtypes.Wallet, error) {
	if cfg.WalletKeyHex != "" {
		return userwallet.FromHex(cfg.WalletKeyHex)
	}

	store, err := userwallet.NewStore(cfg.ClientSettings.KeystorePath)
	if err != nil {
		return nil, err
	}

	password := []byte(cfg.WalletPassword)
	if len(password) == 0 {
		if !helpers.IsTerminal() {
			return nil, errors.New("BRIDGE_WALLET_PASSWORD is not set and stdin is not a terminal")
		}
		if password, err = helpers.PromptPassword("Keystore password: "); err != nil {
			return nil, err
		}
	}
	defer helpers.ZeroBytes(password)

	return store.Ensure(password)
}
