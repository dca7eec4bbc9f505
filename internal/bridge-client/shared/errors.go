package shared

import (
	"github.com/cockroachdb/errors"
)

// Error taxonomy surfaced through the status field and the local API.
var (
	ErrWalletUnavailable     = errors.New("wallet unavailable")
	ErrUserRejected          = errors.New("user rejected request")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnsupportedChain      = errors.New("unsupported chain")
	ErrNetworkSwitchFailed   = errors.New("network switch failed")
	ErrContractCallReverted  = errors.New("contract call reverted")
	ErrTaskSubmissionFailed  = errors.New("task submission failed")
	ErrTaskFailed            = errors.New("task failed")
	ErrPollingTransient      = errors.New("polling transient error")

	ErrBusy             = errors.New("another operation is in progress")
	ErrNotConnected     = errors.New("wallet not connected")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrSameNetwork      = errors.New("source and target networks must differ")
)

// TaskFailedError carries the coordinator-reported reason.
type TaskFailedError struct {
	TaskID string
	Reason string
}

func (e *TaskFailedError) Error() string {
	if e.Reason == "" {
		return "task " + e.TaskID + " failed"
	}
	return "task " + e.TaskID + " failed: " + e.Reason
}

func (e *TaskFailedError) Is(target error) bool { return target == ErrTaskFailed }

func NewTaskFailed(taskID, reason string) error {
	return &TaskFailedError{TaskID: taskID, Reason: reason}
}

// Operation-level kinds come first: a switch failure caused by a user
// rejection reports NetworkSwitchFailed.
var kinds = []struct {
	err  error
	name string
}{
	{ErrNetworkSwitchFailed, "NetworkSwitchFailed"},
	{ErrTaskSubmissionFailed, "TaskSubmissionFailed"},
	{ErrTaskFailed, "TaskFailed"},
	{ErrContractCallReverted, "ContractCallReverted"},
	{ErrWalletUnavailable, "WalletUnavailable"},
	{ErrUserRejected, "UserRejected"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientAllowance, "InsufficientAllowance"},
	{ErrUnsupportedChain, "UnsupportedChain"},
	{ErrPollingTransient, "PollingTransientError"},
	{ErrBusy, "Busy"},
	{ErrNotConnected, "NotConnected"},
	{ErrInvalidRecipient, "InvalidRecipient"},
	{ErrSameNetwork, "SameNetwork"},
}

// KindOf returns the taxonomy name of err, or "Internal" when it carries none.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// Mark wraps err with msg and tags it with kind so errors.Is(err, kind) holds.
func Mark(err error, kind error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), kind)
}
