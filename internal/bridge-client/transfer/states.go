package transfer

type State string

const (
	StateIdle                     State = "idle"
	StateValidatingInput          State = "validating_input"
	StateEnsuringNetwork          State = "ensuring_network"
	StateCheckingBalance          State = "checking_balance"
	StateApproving                State = "approving"
	StateExecuting                State = "executing"
	StateAwaitingRemoteCompletion State = "awaiting_remote_completion"
	StateCompleted                State = "completed"
	StateFailed                   State = "failed"
)

func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

type Operation string

const (
	OpDeposit  Operation = "deposit"
	OpWithdraw Operation = "withdraw"
	OpBridge   Operation = "bridge"
)

// Status messages of a bridge, in the order the user sees them.
const (
	MsgBurnConfirmed      = "burn confirmed"
	MsgAwaitingCompletion = "awaiting remote completion"
	MsgTransferCompleted  = "transfer completed"
)
