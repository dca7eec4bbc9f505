package shared

import (
	"strings"
	"time"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
)

type WalletState struct {
	Address     string          `json:"address"`
	ActiveChain catalog.ChainID `json:"activeChainId"`
	Connected   bool            `json:"isConnected"`
}

type Balances struct {
	Account    string          `json:"account"`
	ChainID    catalog.ChainID `json:"chainId"`
	Native     string          `json:"native"`
	Wrapped    string          `json:"wrapped"`
	Underlying string          `json:"underlying"`
	LoadedAt   time.Time       `json:"loadedAt"`
}

type TaskStatus string

const (
	TaskSubmitted  TaskStatus = "submitted"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// ParseTaskStatus maps coordinator spellings onto the four task states.
func ParseTaskStatus(raw string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "success", "succeeded", "done":
		return TaskCompleted
	case "failed", "failure", "error":
		return TaskFailed
	case "in_progress", "in-progress", "running", "processing":
		return TaskInProgress
	default:
		return TaskSubmitted
	}
}

type TransferTask struct {
	ID            string          `json:"taskId"`
	Instruction   string          `json:"instruction"`
	SourceChainID catalog.ChainID `json:"sourceChainId"`
	TargetChainID catalog.ChainID `json:"targetChainId"`
	Status        TaskStatus      `json:"status"`
	Result        string          `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TaskUpdate is one coordinator status report.
type TaskUpdate struct {
	TaskID string     `json:"taskId"`
	Status TaskStatus `json:"status"`
	Result string     `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// Apply copies a status report onto the task.
func (t *TransferTask) Apply(u TaskUpdate) {
	t.Status = u.Status
	t.Result = u.Result
	t.Error = u.Error
}
