package coordinator

import "github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"

type instructionRequest struct {
	Instruction string `json:"instruction"`
	ChainID     string `json:"chain_id"`
	Timeout     int    `json:"timeout"`
}

type instructionResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type taskRecord struct {
	TaskID      string  `json:"task_id"`
	Status      string  `json:"status"`
	ChainID     string  `json:"chain_id"`
	Instruction string  `json:"instruction"`
	Result      *string `json:"result"`
	Error       *string `json:"error"`
}

func (r taskRecord) update() shared.TaskUpdate {
	u := shared.TaskUpdate{TaskID: r.TaskID, Status: shared.ParseTaskStatus(r.Status)}
	if r.Result != nil {
		u.Result = *r.Result
	}
	if r.Error != nil {
		u.Error = *r.Error
	}
	return u
}
