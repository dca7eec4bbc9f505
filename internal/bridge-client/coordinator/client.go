package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/constants"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RPS caps outgoing requests; zero means unlimited.
	RPS   float64
	Burst int

	HTTPClient *http.Client
}

// Client talks to the off-chain task coordinator that performs the mint side
// of a bridge transfer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("coordinator: base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Wrapf(err, "coordinator: bad base url %q", base)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{httpClient: hc, baseURL: base, limiter: limiter}, nil
}

// TransferInstruction is what the bridge asks the coordinator to do.
type TransferInstruction struct {
	Amount     string
	Symbol     string
	SourceName string
	TargetName string
	Recipient  string
	// SourceChainID is sent in decimal form.
	SourceChainID string
	// Timeout in seconds; zero selects the default.
	Timeout int
}

// Text renders the natural-language instruction the coordinator's agent
// interprets.
func (t TransferInstruction) Text() string {
	return fmt.Sprintf("Transfer %s %s from %s to %s for address %s",
		t.Amount, t.Symbol, t.SourceName, t.TargetName, t.Recipient)
}

type Submission struct {
	TaskID string
	Status shared.TaskStatus
}

// SubmitTransfer wraps POST /instruction.
func (c *Client) SubmitTransfer(ctx context.Context, in TransferInstruction) (Submission, error) {
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultInstructionTimeout
	}
	body := instructionRequest{
		Instruction: in.Text(),
		ChainID:     in.SourceChainID,
		Timeout:     timeout,
	}

	var out instructionResponse
	if err := c.do(ctx, http.MethodPost, "/instruction", body, &out); err != nil {
		return Submission{}, shared.Mark(err, shared.ErrTaskSubmissionFailed, "submit instruction")
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return Submission{}, errors.Mark(errors.New("coordinator accepted instruction without a task id"), shared.ErrTaskSubmissionFailed)
	}
	return Submission{TaskID: out.TaskID, Status: shared.ParseTaskStatus(out.Status)}, nil
}

// TaskStatus wraps GET /task/{id}. Failures are transient from the poller's
// point of view.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (shared.TaskUpdate, error) {
	var out taskRecord
	if err := c.do(ctx, http.MethodGet, "/task/"+url.PathEscape(taskID), nil, &out); err != nil {
		return shared.TaskUpdate{}, shared.Mark(err, shared.ErrPollingTransient, "task "+taskID)
	}
	if out.TaskID == "" {
		out.TaskID = taskID
	}
	return out.update(), nil
}

type TaskRecord struct {
	shared.TaskUpdate
	ChainID     string `json:"chainId"`
	Instruction string `json:"instruction"`
}

// ListTasks wraps GET /tasks.
func (c *Client) ListTasks(ctx context.Context) ([]TaskRecord, error) {
	var out []taskRecord
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &out); err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	records := make([]TaskRecord, 0, len(out))
	for _, r := range out {
		records = append(records, TaskRecord{TaskUpdate: r.update(), ChainID: r.ChainID, Instruction: r.Instruction})
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Detail: errorDetail(bodyBytes)}
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

// StatusError is a non-2xx coordinator response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Detail)
}

// errorDetail pulls the "detail" field the coordinator sends with errors.
func errorDetail(body []byte) string {
	var e struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && e.Detail != nil {
		if s, ok := e.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(e.Detail)
		return string(b)
	}
	return strings.TrimSpace(string(body))
}
