package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoardSetGet(t *testing.T) {
	b := NewBoard()
	require.Equal(t, "idle", b.Get().State)

	b.Set(Snapshot{State: "executing", Message: "burning"})
	got := b.Get()
	require.Equal(t, "executing", got.State)
	require.False(t, got.UpdatedAt.IsZero())

	after := b.Update(func(s *Snapshot) { s.Message = "burn confirmed" })
	require.Equal(t, "executing", after.State)
	require.Equal(t, "burn confirmed", b.Get().Message)
}

func TestSubscribeReceivesCurrentThenUpdates(t *testing.T) {
	b := NewBoard()
	ch, unsubscribe := b.Subscribe()

	require.Equal(t, "idle", (<-ch).State)
	b.Set(Snapshot{State: "completed"})
	require.Equal(t, "completed", (<-ch).State)

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	require.False(t, open)

	b.Set(Snapshot{State: "idle"})
}

func TestSlowSubscriberKeepsLatest(t *testing.T) {
	b := NewBoard()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for i := 0; i < 50; i++ {
		b.Set(Snapshot{State: "executing", Message: "step"})
	}
	b.Set(Snapshot{State: "completed"})

	var last Snapshot
	for len(ch) > 0 {
		last = <-ch
	}
	require.Equal(t, "completed", last.State)
}
