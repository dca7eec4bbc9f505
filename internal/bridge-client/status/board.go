package status

import (
	"sync"
	"time"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/shared"
)

// Snapshot is the single user-visible status of the bridge.
type Snapshot struct {
	InvocationID string               `json:"invocationId,omitempty"`
	Operation    string               `json:"operation,omitempty"`
	State        string               `json:"state"`
	Message      string               `json:"message"`
	ErrorKind    string               `json:"errorKind,omitempty"`
	Error        string               `json:"error,omitempty"`
	TxHash       string               `json:"txHash,omitempty"`
	Task         *shared.TransferTask `json:"task,omitempty"`
	// PollDeadlineReached means polling gave up while the task was still
	// pending; the task status shown is the last one seen.
	PollDeadlineReached bool      `json:"pollDeadlineReached,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Board holds the current Snapshot and fans it out to subscribers. Slow
// subscribers lose intermediate snapshots, never the latest one.
type Board struct {
	mu   sync.Mutex
	cur  Snapshot
	subs map[int]chan Snapshot
	next int
	now  func() time.Time
}

func NewBoard() *Board {
	return &Board{
		cur:  Snapshot{State: "idle"},
		subs: make(map[int]chan Snapshot),
		now:  time.Now,
	}
}

func (b *Board) Get() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

func (b *Board) Set(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.UpdatedAt = b.now()
	b.cur = s
	b.broadcast(s)
}

// Update applies fn to the current snapshot atomically.
func (b *Board) Update(fn func(*Snapshot)) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.cur
	fn(&s)
	s.UpdatedAt = b.now()
	b.cur = s
	b.broadcast(s)
	return s
}

// Subscribe returns a channel primed with the current snapshot and a
// function that unsubscribes and closes it.
func (b *Board) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Snapshot, 8)
	ch <- b.cur
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// broadcast must be called with b.mu held.
func (b *Board) broadcast(s Snapshot) {
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}
