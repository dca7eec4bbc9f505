package poller

import (
	"context"
	"sync"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/constants"
	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

type StatusFetcher interface {
	TaskStatus(ctx context.Context, taskID string) (shared.TaskUpdate, error)
}

// Recorder receives one outcome per query ("ok", "transient", "terminal")
// and one call per loop that ran out of time. May be nil.
type Recorder interface {
	PollQuery(outcome string)
	PollDeadline()
}

type Options struct {
	Interval time.Duration
	Deadline time.Duration
	// OnProgress sees every non-terminal report.
	OnProgress func(shared.TaskUpdate)
}

// Poller runs at most one status loop per task id.
type Poller struct {
	fetcher  StatusFetcher
	recorder Recorder

	mu    sync.Mutex
	loops map[string]*Handle
}

func New(fetcher StatusFetcher, recorder Recorder) *Poller {
	return &Poller{fetcher: fetcher, recorder: recorder, loops: make(map[string]*Handle)}
}

// Handle owns one poll loop: the repeating query and its deadline.
type Handle struct {
	taskID string
	cancel context.CancelFunc
	done   chan struct{}

	mu              sync.Mutex
	last            shared.TaskUpdate
	queries         int
	deadlineReached bool
}

func (h *Handle) TaskID() string { return h.taskID }

// Cancel stops the loop. It does not wait; use Done for that.
func (h *Handle) Cancel() { h.cancel() }

func (h *Handle) Done() <-chan struct{} { return h.done }

// Last is the most recent report, or the submitted placeholder.
func (h *Handle) Last() shared.TaskUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Handle) Queries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queries
}

// DeadlineReached reports that the loop gave up without a terminal status.
func (h *Handle) DeadlineReached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deadlineReached
}

// Track starts polling taskID every Interval until a terminal status, the
// Deadline, Cancel, or ctx ends. A loop already running for the same id is
// cancelled and drained first. onUpdate runs once, with the terminal report,
// after the loop has stopped querying.
func (p *Poller) Track(ctx context.Context, taskID string, onUpdate func(shared.TaskUpdate), opts Options) *Handle {
	if opts.Interval <= 0 {
		opts.Interval = constants.DefaultPollInterval
	}
	if opts.Deadline <= 0 {
		opts.Deadline = constants.DefaultPollDeadline
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		taskID: taskID,
		cancel: cancel,
		done:   make(chan struct{}),
		last:   shared.TaskUpdate{TaskID: taskID, Status: shared.TaskSubmitted},
	}

	p.mu.Lock()
	prev := p.loops[taskID]
	p.loops[taskID] = h
	p.mu.Unlock()

	if prev != nil {
		log.Info("replacing poll loop", "task_id", taskID)
		prev.Cancel()
		<-prev.Done()
	}

	go p.run(loopCtx, h, onUpdate, opts)
	return h
}

func (p *Poller) run(ctx context.Context, h *Handle, onUpdate func(shared.TaskUpdate), opts Options) {
	defer h.cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(opts.Deadline)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			p.finish(h)
			return

		case <-deadline.C:
			h.mu.Lock()
			h.deadlineReached = true
			last := h.last
			h.mu.Unlock()
			log.Warn("task still not terminal at poll deadline, polling stopped",
				"task_id", h.taskID, "status", string(last.Status), "deadline", opts.Deadline.String())
			if p.recorder != nil {
				p.recorder.PollDeadline()
			}
			p.finish(h)
			return

		case <-ticker.C:
			u, err := p.fetcher.TaskStatus(ctx, h.taskID)
			h.mu.Lock()
			h.queries++
			h.mu.Unlock()

			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Warn("task status query failed, will retry", "task_id", h.taskID, "error", err)
				p.record("transient")
				continue
			}

			h.mu.Lock()
			h.last = u
			h.mu.Unlock()

			if u.Status.Terminal() {
				p.record("terminal")
				p.finish(h)
				if onUpdate != nil {
					onUpdate(u)
				}
				return
			}
			p.record("ok")
			if opts.OnProgress != nil {
				opts.OnProgress(u)
			}
		}
	}
}

// finish unregisters h if it is still the current loop and marks it done.
func (p *Poller) finish(h *Handle) {
	p.mu.Lock()
	if p.loops[h.taskID] == h {
		delete(p.loops, h.taskID)
	}
	p.mu.Unlock()

	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (p *Poller) record(outcome string) {
	if p.recorder != nil {
		p.recorder.PollQuery(outcome)
	}
}

// Cancel stops the loop for taskID, if any, and waits for it to exit.
func (p *Poller) Cancel(taskID string) {
	p.mu.Lock()
	h := p.loops[taskID]
	p.mu.Unlock()
	if h != nil {
		h.Cancel()
		<-h.Done()
	}
}

func (p *Poller) CancelAll() {
	p.mu.Lock()
	handles := make([]*Handle, 0, len(p.loops))
	for _, h := range p.loops {
		handles = append(handles, h)
	}
	p.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	for _, h := range handles {
		<-h.Done()
	}
}

// Active is the number of running loops.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loops)
}
