package http

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/coordinator"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/status"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/transfer"
)

type Wallet interface {
	State() shared.WalletState
	Connect(ctx context.Context) error
	Disconnect()
	SwitchNetwork(ctx context.Context, target catalog.ChainID) error
}

// Locker simulates the wallet locking and unlocking itself.
type Locker interface {
	Lock()
	Unlock()
}

type Transfers interface {
	Deposit(ctx context.Context, req transfer.AmountRequest) (transfer.Result, error)
	Withdraw(ctx context.Context, req transfer.AmountRequest) (transfer.Result, error)
	Bridge(ctx context.Context, req transfer.BridgeRequest) (transfer.Result, error)

	Selection() transfer.Selection
	SetSource(id catalog.ChainID) (transfer.Selection, error)
	SetTarget(id catalog.ChainID) (transfer.Selection, error)
	SetRecipient(raw string) (transfer.Selection, error)

	Board() *status.Board
	Busy() bool
	Task() (shared.TransferTask, bool)
}

type BalanceLoader interface {
	LoadBalances(ctx context.Context, account common.Address, chain catalog.ChainID) (shared.Balances, error)
}

type BalanceCache interface {
	Put(b shared.Balances)
}

type Tasks interface {
	ListTasks(ctx context.Context) ([]coordinator.TaskRecord, error)
	TaskStatus(ctx context.Context, taskID string) (shared.TaskUpdate, error)
}

// -------- DTOs for the local API --------

type switchReq struct {
	ChainID catalog.ChainID `json:"chainId" binding:"required"`
}

// selectionReq leaves fields the caller omits untouched.
type selectionReq struct {
	Source    *catalog.ChainID `json:"sourceChainId"`
	Target    *catalog.ChainID `json:"targetChainId"`
	Recipient *string          `json:"recipient"`
}

type walletRes struct {
	shared.WalletState
	Busy bool `json:"busy"`
}

type networksRes struct {
	WrappedSymbol string               `json:"wrappedSymbol"`
	Networks      []catalog.Descriptor `json:"networks"`
}

type statusRes struct {
	status.Snapshot
	Busy bool `json:"busy"`
}

type errorRes struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
