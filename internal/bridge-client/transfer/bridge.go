package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/coordinator"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/poller"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/status"
)

// BridgeRequest moves wrapped tokens from Source to Target. Zero networks and
// an empty recipient fall back to the current selection.
type BridgeRequest struct {
	Amount    string          `json:"amount"`
	Source    catalog.ChainID `json:"sourceChainId"`
	Target    catalog.ChainID `json:"targetChainId"`
	Recipient string          `json:"recipient"`
}

// Bridge burns on the source network, hands the mint to the coordinator and
// starts tracking the task. It returns once the task is accepted; completion
// is reported on the status board.
func (o *Orchestrator) Bridge(ctx context.Context, req BridgeRequest) (res Result, err error) {
	inv, err := o.begin(OpBridge)
	if err != nil {
		return Result{}, err
	}
	res.InvocationID = inv.id
	defer func() { inv.end(err) }()

	amount, err := inv.validateAmount(req.Amount)
	if err != nil {
		return res, err
	}
	if err = inv.requireAccount(); err != nil {
		return res, err
	}

	sel := o.Selection()
	if req.Source.IsZero() {
		req.Source = sel.Source
	}
	if req.Target.IsZero() {
		req.Target = sel.Target
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = sel.Recipient
	}
	if recipient == "" {
		recipient = inv.account.Hex()
	}
	if !common.IsHexAddress(recipient) {
		return res, errors.Mark(errors.Newf("recipient %q is not an address", recipient), shared.ErrInvalidRecipient)
	}
	recipient = common.HexToAddress(recipient).Hex()

	if req.Source == req.Target {
		return res, errors.Mark(errors.Newf("source and target are both %s", req.Source), shared.ErrSameNetwork)
	}
	source, ok := o.catalog.ByID(req.Source)
	if !ok {
		return res, errors.Mark(errors.Newf("source network %s is not in the catalog", req.Source), shared.ErrUnsupportedChain)
	}
	target, ok := o.catalog.ByID(req.Target)
	if !ok {
		return res, errors.Mark(errors.Newf("target network %s is not in the catalog", req.Target), shared.ErrUnsupportedChain)
	}

	if err = inv.ensureNetwork(ctx, source.ID); err != nil {
		return res, err
	}
	if err = inv.checkBalance(ctx, source.ID, amount, "wrapped", func(b shared.Balances) string { return b.Wrapped }); err != nil {
		return res, err
	}
	units, err := o.wrappedUnits(ctx, source.ID, amount)
	if err != nil {
		return res, err
	}

	inv.step(StateExecuting, "burning "+amount.String()+" on "+source.Name)
	receipt, err := o.cfg.Contracts.CrosschainBurn(ctx, source.ID, inv.account, units)
	if err != nil {
		return res, err
	}
	res.TxHash = receipt.TxHash.Hex()
	inv.txHash = res.TxHash
	inv.step(StateExecuting, MsgBurnConfirmed)
	o.board.Update(func(s *status.Snapshot) { s.TxHash = res.TxHash })

	instruction := coordinator.TransferInstruction{
		Amount:        amount.String(),
		Symbol:        o.catalog.WrappedSymbol(),
		SourceName:    source.Name,
		TargetName:    target.Name,
		Recipient:     recipient,
		SourceChainID: source.ID.String(),
		Timeout:       o.cfg.InstructionTimeout,
	}
	sub, err := o.cfg.Coordinator.SubmitTransfer(ctx, instruction)
	if err != nil {
		log.Error("burn confirmed but the coordinator did not accept the transfer",
			"invocation_id", inv.id, "tx", res.TxHash, "error", err)
		return res, err
	}

	task := &shared.TransferTask{
		ID:            sub.TaskID,
		Instruction:   instruction.Text(),
		SourceChainID: source.ID,
		TargetChainID: target.ID,
		Status:        sub.Status,
		CreatedAt:     time.Now(),
	}
	o.taskMu.Lock()
	o.task = task
	o.taskMu.Unlock()

	snapshotTask := *task
	res.Task = &snapshotTask
	o.board.Update(func(s *status.Snapshot) {
		s.State = string(StateAwaitingRemoteCompletion)
		s.Message = MsgAwaitingCompletion
		s.Task = &snapshotTask
		s.PollDeadlineReached = false
	})
	log.Info("transfer task submitted", "invocation_id", inv.id, "task_id", task.ID, "recipient", recipient)

	o.track(inv, task.ID)
	return res, nil
}

func (o *Orchestrator) track(inv *invocation, taskID string) {
	h := o.cfg.Tracker.Track(o.lifeCtx, taskID,
		func(u shared.TaskUpdate) { o.onTerminal(inv, u) },
		poller.Options{
			Interval:   o.cfg.PollInterval,
			Deadline:   o.cfg.PollDeadline,
			OnProgress: o.onProgress,
		})

	go func() {
		<-h.Done()
		if !h.DeadlineReached() {
			return
		}
		// The last known status stays on the board.
		if _, ok := o.currentTask(taskID); !ok {
			return
		}
		o.board.Update(func(s *status.Snapshot) {
			if s.Task != nil && s.Task.ID == taskID {
				s.PollDeadlineReached = true
			}
		})
	}()
}

// currentTask returns the tracked task when its id is taskID.
func (o *Orchestrator) currentTask(taskID string) (shared.TransferTask, bool) {
	o.taskMu.Lock()
	defer o.taskMu.Unlock()
	if o.task == nil || o.task.ID != taskID {
		return shared.TransferTask{}, false
	}
	return *o.task, true
}

// applyUpdate records u on the tracked task. It returns false when the task
// was dropped or replaced.
func (o *Orchestrator) applyUpdate(u shared.TaskUpdate) (shared.TransferTask, bool) {
	o.taskMu.Lock()
	defer o.taskMu.Unlock()
	if o.task == nil || o.task.ID != u.TaskID {
		return shared.TransferTask{}, false
	}
	o.task.Apply(u)
	return *o.task, true
}

func (o *Orchestrator) onProgress(u shared.TaskUpdate) {
	task, ok := o.applyUpdate(u)
	if !ok {
		return
	}
	o.board.Update(func(s *status.Snapshot) {
		if s.Task != nil && s.Task.ID == task.ID {
			s.Task = &task
		}
	})
}

func (o *Orchestrator) onTerminal(inv *invocation, u shared.TaskUpdate) {
	task, ok := o.applyUpdate(u)
	if !ok {
		log.Info("terminal status for a task no longer tracked", "task_id", u.TaskID, "status", string(u.Status))
		return
	}

	if u.Status == shared.TaskFailed {
		err := shared.NewTaskFailed(task.ID, u.Error)
		o.board.Set(status.Snapshot{
			InvocationID: inv.id,
			Operation:    string(OpBridge),
			State:        string(StateFailed),
			Message:      "bridge failed",
			ErrorKind:    shared.KindOf(err),
			Error:        err.Error(),
			TxHash:       inv.txHash,
			Task:         &task,
		})
		log.Warn("transfer task failed", "invocation_id", inv.id, "task_id", task.ID, "reason", u.Error)
		return
	}

	o.completeBridge(inv, task)
}

// completeBridge reloads balances on both networks, moving the wallet to the
// target network. When another invocation holds the orchestrator the refresh
// waits for it to finish.
func (o *Orchestrator) completeBridge(inv *invocation, task shared.TransferTask) {
	done := func(msg string) {
		o.board.Set(status.Snapshot{
			InvocationID: inv.id,
			Operation:    string(OpBridge),
			State:        string(StateCompleted),
			Message:      msg,
			TxHash:       inv.txHash,
			Task:         &task,
		})
		log.Info("transfer task completed", "invocation_id", inv.id, "task_id", task.ID)
	}

	ctx, cancel := context.WithTimeout(o.lifeCtx, o.cfg.RefreshTimeout)
	defer cancel()

	if !o.busy.CompareAndSwap(false, true) {
		log.Info("another operation is running, post-bridge refresh waits for it", "task_id", task.ID)
		if !o.acquire(ctx) {
			log.Warn("post-bridge balance refresh abandoned", "task_id", task.ID, "error", ctx.Err())
			if o.lifeCtx.Err() == nil {
				done(MsgTransferCompleted)
			}
			return
		}
		if _, ok := o.currentTask(task.ID); !ok {
			o.release()
			log.Info("task dropped while waiting, skipping post-bridge refresh", "task_id", task.ID)
			return
		}
	}
	defer o.release()

	st := o.cfg.Wallet.State()
	if !st.Connected || !sameAddress(st.Address, inv.account.Hex()) {
		done(MsgTransferCompleted)
		return
	}

	o.board.Update(func(s *status.Snapshot) { s.Message = "reloading balances" })
	inv.reload(ctx, task.SourceChainID)
	if st.ActiveChain != task.TargetChainID {
		if err := o.cfg.Wallet.SwitchNetwork(ctx, task.TargetChainID); err != nil {
			log.Warn("could not switch to target network after bridge", "task_id", task.ID, "error", err)
		}
	}
	inv.reload(ctx, task.TargetChainID)
	done(MsgTransferCompleted)
}
