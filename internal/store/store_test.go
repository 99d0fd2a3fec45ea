package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaporchat/vapor/internal/model"
)

func newMessage(text string, at time.Time) model.Message {
	return model.Message{
		ID:        uuid.New(),
		Text:      text,
		Sender:    "SwiftOtter042",
		SenderID:  uuid.New(),
		CreatedAt: at,
	}
}

func TestVisibleWithinTTL(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now().UTC()

	s.Append("global", newMessage("hi", base))

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"immediately", base, 1},
		{"one second later", base.Add(time.Second), 1},
		{"exactly at TTL", base.Add(10 * time.Minute), 1},
		{"just past TTL", base.Add(10*time.Minute + time.Millisecond), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, s.Visible("global", tt.now), tt.want)
		})
	}
}

func TestVisibleRemainingTime(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now().UTC()

	s.Append("global", newMessage("hi", base))

	visible := s.Visible("global", base.Add(time.Second))
	require.Len(t, visible, 1)
	assert.Equal(t, int64(599000), visible[0].RemainingMs)
	assert.Equal(t, "hi", visible[0].Text)
}

func TestVisiblePreservesArrivalOrder(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now().UTC()

	// Identical timestamps must keep their arrival sequence.
	s.Append("global", newMessage("first", base))
	s.Append("global", newMessage("second", base))
	s.Append("global", newMessage("third", base.Add(time.Second)))

	visible := s.Visible("global", base.Add(2*time.Second))
	require.Len(t, visible, 3)
	assert.Equal(t, "first", visible[0].Text)
	assert.Equal(t, "second", visible[1].Text)
	assert.Equal(t, "third", visible[2].Text)
}

func TestSweepRemovesExpired(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now().UTC()

	s.Append("global", newMessage("old", base))
	s.Append("global", newMessage("fresh", base.Add(5*time.Minute)))
	s.Append("side", newMessage("also old", base))

	now := base.Add(10*time.Minute + time.Second)
	assert.Equal(t, 2, s.Sweep(now))
	assert.Equal(t, 1, s.Count())

	// A second sweep at the same instant removes nothing.
	assert.Equal(t, 0, s.Sweep(now))

	visible := s.Visible("global", now)
	require.Len(t, visible, 1)
	assert.Equal(t, "fresh", visible[0].Text)
	assert.Empty(t, s.Visible("side", now))
}

func TestAppendThenExpireRoundTrip(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now().UTC()

	s.Append("global", newMessage("hi", base))

	// t=601s: past the window, sweep drops it permanently.
	now := base.Add(601 * time.Second)
	assert.Empty(t, s.Visible("global", now))
	assert.Equal(t, 1, s.Sweep(now))
	assert.Empty(t, s.Visible("global", now))
	assert.Equal(t, 0, s.Count())
}

func TestDropRoom(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now().UTC()

	s.Append("doomed", newMessage("a", base))
	s.Append("doomed", newMessage("b", base))
	s.Append("global", newMessage("c", base))

	assert.Equal(t, 2, s.DropRoom("doomed"))
	assert.Empty(t, s.Visible("doomed", base))
	assert.Len(t, s.Visible("global", base), 1)
	assert.Equal(t, 1, s.Count())
}

func TestSweepConcurrentWithAppends(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now().UTC()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.Append("global", newMessage("live", base.Add(20*time.Minute)))
		}
	}()

	for i := 0; i < 50; i++ {
		s.Sweep(base.Add(time.Minute))
	}
	<-done

	// No in-flight append may be lost: everything written is still fresh.
	assert.Len(t, s.Visible("global", base.Add(20*time.Minute)), 200)
}
