package provider

import (
	"context"
	"io"
	"sync"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/helpers"
)

type RequestKind string

const (
	RequestConnect     RequestKind = "connect"
	RequestSwitchChain RequestKind = "switch_chain"
	RequestAddChain    RequestKind = "add_chain"
	RequestTransaction RequestKind = "transaction"
)

type ApprovalRequest struct {
	Kind    RequestKind
	Summary string
}

// Approver stands in for the wallet confirmation dialog.
type Approver interface {
	Approve(ctx context.Context, req ApprovalRequest) (bool, error)
}

type AutoApprove struct{}

func (AutoApprove) Approve(context.Context, ApprovalRequest) (bool, error) { return true, nil }

type ApproverFunc func(ctx context.Context, req ApprovalRequest) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	return f(ctx, req)
}

// TerminalApprover asks on the controlling terminal, one question at a time.
type TerminalApprover struct {
	In  io.Reader
	Out io.Writer

	mu sync.Mutex
}

func (t *TerminalApprover) Approve(ctx context.Context, req ApprovalRequest) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	return helpers.Confirm(t.In, t.Out, "["+string(req.Kind)+"] "+req.Summary), nil
}
