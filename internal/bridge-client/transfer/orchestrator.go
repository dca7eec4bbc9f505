package transfer

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/constants"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/coordinator"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/poller"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/status"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/utils"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/wallet"
)

type Wallet interface {
	State() shared.WalletState
	SwitchNetwork(ctx context.Context, target catalog.ChainID) error
}

type BalanceLoader interface {
	LoadBalances(ctx context.Context, account common.Address, chain catalog.ChainID) (shared.Balances, error)
}

type AllowanceEnsurer interface {
	NeedsApproval(ctx context.Context, account common.Address, chain catalog.ChainID, amount decimal.Decimal) (bool, error)
	EnsureAllowance(ctx context.Context, account common.Address, chain catalog.ChainID, amount decimal.Decimal) (bool, error)
}

type Contracts interface {
	Contracts(chain catalog.ChainID) (catalog.ContractSet, error)
	TokenDecimals(ctx context.Context, chain catalog.ChainID, token common.Address) (uint8, error)
	Deposit(ctx context.Context, chain catalog.ChainID, amount *big.Int) (*types.Receipt, error)
	Withdraw(ctx context.Context, chain catalog.ChainID, amount *big.Int) (*types.Receipt, error)
	CrosschainBurn(ctx context.Context, chain catalog.ChainID, from common.Address, amount *big.Int) (*types.Receipt, error)
}

type Coordinator interface {
	SubmitTransfer(ctx context.Context, in coordinator.TransferInstruction) (coordinator.Submission, error)
}

type Tracker interface {
	Track(ctx context.Context, taskID string, onUpdate func(shared.TaskUpdate), opts poller.Options) *poller.Handle
	Cancel(taskID string)
	CancelAll()
}

type BalanceCache interface {
	Put(b shared.Balances)
	Clear()
}

type Recorder interface {
	OperationStarted()
	OperationFinished(operation, result string)
}

type Config struct {
	Catalog     *catalog.Catalog
	Wallet      Wallet
	Balances    BalanceLoader
	Cache       BalanceCache
	Allowances  AllowanceEnsurer
	Contracts   Contracts
	Coordinator Coordinator
	Tracker     Tracker
	Board       *status.Board
	Metrics     Recorder

	PollInterval       time.Duration
	PollDeadline       time.Duration
	InstructionTimeout int
	// RefreshTimeout bounds the balance reload after a bridge completes.
	RefreshTimeout time.Duration
}

// Orchestrator runs deposit, withdraw and bridge one at a time.
type Orchestrator struct {
	cfg     Config
	catalog *catalog.Catalog
	board   *status.Board

	busy atomic.Bool
	// idle is closed and replaced each time busy is released.
	idleMu sync.Mutex
	idle   chan struct{}

	selMu sync.Mutex
	sel   Selection

	taskMu sync.Mutex
	task   *shared.TransferTask

	lifeCtx context.Context
	stop    context.CancelFunc
	newID   func() string
}

func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Catalog == nil:
		return nil, errors.New("transfer: catalog is required")
	case cfg.Wallet == nil, cfg.Balances == nil, cfg.Allowances == nil, cfg.Contracts == nil:
		return nil, errors.New("transfer: wallet, balances, allowances and contracts are required")
	case cfg.Coordinator == nil || cfg.Tracker == nil:
		return nil, errors.New("transfer: coordinator and tracker are required")
	}
	if cfg.Board == nil {
		cfg.Board = status.NewBoard()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopRecorder{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.DefaultPollInterval
	}
	if cfg.PollDeadline <= 0 {
		cfg.PollDeadline = constants.DefaultPollDeadline
	}
	if cfg.InstructionTimeout <= 0 {
		cfg.InstructionTimeout = constants.DefaultInstructionTimeout
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 2 * time.Minute
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:     cfg,
		catalog: cfg.Catalog,
		board:   cfg.Board,
		sel:     defaultSelection(cfg.Catalog),
		idle:    make(chan struct{}),
		lifeCtx: ctx,
		stop:    stop,
		newID:   uuid.NewString,
	}, nil
}

func (o *Orchestrator) Board() *status.Board { return o.board }

// Busy reports whether an invocation is in flight; callers disable their
// triggers while it is true.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

func (o *Orchestrator) release() {
	o.busy.Store(false)
	o.idleMu.Lock()
	close(o.idle)
	o.idle = make(chan struct{})
	o.idleMu.Unlock()
}

// acquire takes the busy flag, waiting for a running invocation to end.
func (o *Orchestrator) acquire(ctx context.Context) bool {
	for {
		o.idleMu.Lock()
		idle := o.idle
		o.idleMu.Unlock()

		if o.busy.CompareAndSwap(false, true) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-idle:
		}
	}
}

// Task returns a copy of the current bridge task, if any.
func (o *Orchestrator) Task() (shared.TransferTask, bool) {
	o.taskMu.Lock()
	defer o.taskMu.Unlock()
	if o.task == nil {
		return shared.TransferTask{}, false
	}
	return *o.task, true
}

// Close stops every poll loop started by bridge invocations.
func (o *Orchestrator) Close() {
	o.stop()
	o.cfg.Tracker.CancelAll()
}

// HandleWalletChange keeps derived state in step with the wallet. Identity
// changes drop cached balances and the in-flight task; a running invocation
// is not aborted.
func (o *Orchestrator) HandleWalletChange(c wallet.Change) {
	switch c.Kind {
	case wallet.ChangeConnected, wallet.ChangeAccountsChanged:
		o.followAccount(c.Kind, c.Previous.Address, c.Current.Address)
	}
	if !c.IdentityChanged() {
		return
	}

	if o.cfg.Cache != nil {
		o.cfg.Cache.Clear()
	}
	o.taskMu.Lock()
	dropped := o.task
	o.task = nil
	o.taskMu.Unlock()

	if dropped != nil {
		log.Info("wallet changed, dropping tracked task", "task_id", dropped.ID, "change", string(c.Kind))
		o.cfg.Tracker.Cancel(dropped.ID)
	}
	if o.busy.Load() {
		o.board.Update(func(s *status.Snapshot) { s.Task = nil })
		return
	}
	o.board.Set(status.Snapshot{State: string(StateIdle), Message: "wallet changed"})
}

// invocation is one traversal of the state machine.
type invocation struct {
	o       *Orchestrator
	id      string
	op      Operation
	account common.Address
	txHash  string
}

func (o *Orchestrator) begin(op Operation) (*invocation, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, errors.Mark(errors.Newf("%s rejected", op), shared.ErrBusy)
	}
	inv := &invocation{o: o, id: o.newID(), op: op}
	o.board.Set(status.Snapshot{
		InvocationID: inv.id,
		Operation:    string(op),
		State:        string(StateValidatingInput),
		Message:      "validating input",
	})
	o.cfg.Metrics.OperationStarted()
	log.Info("operation started", "invocation_id", inv.id, "operation", string(op))
	return inv, nil
}

func (inv *invocation) step(state State, msg string) {
	inv.o.board.Update(func(s *status.Snapshot) {
		s.InvocationID = inv.id
		s.Operation = string(inv.op)
		s.State = string(state)
		s.Message = msg
		s.ErrorKind = ""
		s.Error = ""
	})
	log.Info("operation step", "invocation_id", inv.id, "state", string(state), "message", msg)
}

// end releases the busy flag. A nil err leaves the last step on the board.
func (inv *invocation) end(err error) {
	defer inv.o.release()

	if err == nil {
		inv.o.cfg.Metrics.OperationFinished(string(inv.op), "ok")
		return
	}
	kind := shared.KindOf(err)
	inv.o.board.Update(func(s *status.Snapshot) {
		s.InvocationID = inv.id
		s.Operation = string(inv.op)
		s.State = string(StateFailed)
		s.Message = string(inv.op) + " failed"
		s.ErrorKind = kind
		s.Error = err.Error()
	})
	inv.o.cfg.Metrics.OperationFinished(string(inv.op), kind)
	log.Warn("operation failed", "invocation_id", inv.id, "operation", string(inv.op), "kind", kind, "error", err)
}

// validateAmount is the first check of every operation, before any read.
func (inv *invocation) validateAmount(raw string) (decimal.Decimal, error) {
	return utils.ParseAmount(raw)
}

func (inv *invocation) requireAccount() error {
	st := inv.o.cfg.Wallet.State()
	if !st.Connected || !common.IsHexAddress(st.Address) {
		return shared.ErrNotConnected
	}
	inv.account = common.HexToAddress(st.Address)
	return nil
}

func (inv *invocation) ensureNetwork(ctx context.Context, chain catalog.ChainID) error {
	if inv.o.cfg.Wallet.State().ActiveChain == chain {
		return nil
	}
	inv.step(StateEnsuringNetwork, "switching wallet to "+inv.o.networkName(chain))
	return inv.o.cfg.Wallet.SwitchNetwork(ctx, chain)
}

// checkBalance reloads balances and compares amount to the field pick selects.
func (inv *invocation) checkBalance(ctx context.Context, chain catalog.ChainID, amount decimal.Decimal, label string, pick func(shared.Balances) string) error {
	inv.step(StateCheckingBalance, "checking "+label+" balance")
	b, err := inv.o.cfg.Balances.LoadBalances(ctx, inv.account, chain)
	if err != nil {
		return err
	}
	if inv.o.cfg.Cache != nil {
		inv.o.cfg.Cache.Put(b)
	}

	have, err := decimal.NewFromString(pick(b))
	if err != nil {
		return errors.Wrapf(err, "%s balance %q", label, pick(b))
	}
	if have.LessThan(amount) {
		return errors.Mark(errors.Newf("%s balance %s is below %s", label, have, amount), shared.ErrInsufficientBalance)
	}
	return nil
}

func (inv *invocation) reload(ctx context.Context, chain catalog.ChainID) {
	b, err := inv.o.cfg.Balances.LoadBalances(ctx, inv.account, chain)
	if err != nil {
		log.Warn("balance reload failed", "invocation_id", inv.id, "chain_id", chain.String(), "error", err)
		return
	}
	if inv.o.cfg.Cache != nil {
		inv.o.cfg.Cache.Put(b)
	}
}

// Result describes a finished deposit or withdraw, or an accepted bridge.
type Result struct {
	InvocationID string               `json:"invocationId"`
	TxHash       string               `json:"txHash"`
	Approved     bool                 `json:"approved,omitempty"`
	Task         *shared.TransferTask `json:"task,omitempty"`
}

// AmountRequest is a deposit or withdraw on one network. A zero Chain means
// the selected source network.
type AmountRequest struct {
	Amount string          `json:"amount"`
	Chain  catalog.ChainID `json:"chainId"`
}

func (o *Orchestrator) Deposit(ctx context.Context, req AmountRequest) (res Result, err error) {
	inv, err := o.begin(OpDeposit)
	if err != nil {
		return Result{}, err
	}
	res.InvocationID = inv.id
	defer func() { inv.end(err) }()

	amount, err := inv.validateAmount(req.Amount)
	if err != nil {
		return res, err
	}
	chain, err := o.resolveChain(req.Chain)
	if err != nil {
		return res, err
	}
	if err = inv.requireAccount(); err != nil {
		return res, err
	}
	if err = inv.ensureNetwork(ctx, chain); err != nil {
		return res, err
	}
	if err = inv.checkBalance(ctx, chain, amount, "underlying", func(b shared.Balances) string { return b.Underlying }); err != nil {
		return res, err
	}

	needsApproval, err := o.cfg.Allowances.NeedsApproval(ctx, inv.account, chain, amount)
	if err != nil {
		return res, err
	}
	if needsApproval {
		inv.step(StateApproving, "approving "+amount.String())
		res.Approved, err = o.cfg.Allowances.EnsureAllowance(ctx, inv.account, chain, amount)
		if err != nil {
			return res, err
		}
	}

	dec, err := o.underlyingDecimals(ctx, chain)
	if err != nil {
		return res, err
	}
	units, err := utils.ToUnits(amount, dec)
	if err != nil {
		return res, err
	}

	inv.step(StateExecuting, "depositing "+amount.String())
	receipt, err := o.cfg.Contracts.Deposit(ctx, chain, units)
	if err != nil {
		return res, err
	}
	res.TxHash = receipt.TxHash.Hex()
	inv.txHash = res.TxHash

	inv.reload(ctx, chain)
	o.board.Update(func(s *status.Snapshot) {
		s.State = string(StateCompleted)
		s.Message = "deposited " + amount.String()
		s.TxHash = res.TxHash
	})
	return res, nil
}

func (o *Orchestrator) Withdraw(ctx context.Context, req AmountRequest) (res Result, err error) {
	inv, err := o.begin(OpWithdraw)
	if err != nil {
		return Result{}, err
	}
	res.InvocationID = inv.id
	defer func() { inv.end(err) }()

	amount, err := inv.validateAmount(req.Amount)
	if err != nil {
		return res, err
	}
	chain, err := o.resolveChain(req.Chain)
	if err != nil {
		return res, err
	}
	if err = inv.requireAccount(); err != nil {
		return res, err
	}
	if err = inv.ensureNetwork(ctx, chain); err != nil {
		return res, err
	}
	if err = inv.checkBalance(ctx, chain, amount, "wrapped", func(b shared.Balances) string { return b.Wrapped }); err != nil {
		return res, err
	}

	units, err := o.wrappedUnits(ctx, chain, amount)
	if err != nil {
		return res, err
	}

	inv.step(StateExecuting, "withdrawing "+amount.String())
	receipt, err := o.cfg.Contracts.Withdraw(ctx, chain, units)
	if err != nil {
		return res, err
	}
	res.TxHash = receipt.TxHash.Hex()
	inv.txHash = res.TxHash

	inv.reload(ctx, chain)
	o.board.Update(func(s *status.Snapshot) {
		s.State = string(StateCompleted)
		s.Message = "withdrew " + amount.String()
		s.TxHash = res.TxHash
	})
	return res, nil
}

func (o *Orchestrator) resolveChain(id catalog.ChainID) (catalog.ChainID, error) {
	if id.IsZero() {
		id = o.Selection().Source
	}
	if _, ok := o.catalog.ByID(id); !ok {
		return 0, errors.Mark(errors.Newf("network %s is not in the catalog", id), shared.ErrUnsupportedChain)
	}
	return id, nil
}

func (o *Orchestrator) underlyingDecimals(ctx context.Context, chain catalog.ChainID) (uint8, error) {
	set, err := o.cfg.Contracts.Contracts(chain)
	if err != nil {
		return 0, err
	}
	if set.UnderlyingIsNative() {
		d, _ := o.catalog.ByID(chain)
		if d.NativeDecimals == 0 {
			return 18, nil
		}
		return d.NativeDecimals, nil
	}
	return o.cfg.Contracts.TokenDecimals(ctx, chain, set.Underlying)
}

func (o *Orchestrator) wrappedUnits(ctx context.Context, chain catalog.ChainID, amount decimal.Decimal) (*big.Int, error) {
	set, err := o.cfg.Contracts.Contracts(chain)
	if err != nil {
		return nil, err
	}
	dec, err := o.cfg.Contracts.TokenDecimals(ctx, chain, set.Wrapped)
	if err != nil {
		return nil, err
	}
	return utils.ToUnits(amount, dec)
}

func (o *Orchestrator) networkName(id catalog.ChainID) string {
	if d, ok := o.catalog.ByID(id); ok {
		return d.Name
	}
	return id.String()
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

type noopRecorder struct{}

func (noopRecorder) OperationStarted()                 {}
func (noopRecorder) OperationFinished(string, string) {}
