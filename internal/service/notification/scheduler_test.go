package notification

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDismissScheduler_fires_once(t *testing.T) {
	s := NewDismissScheduler()
	fired := make(chan string, 2)

	s.Schedule("a", 10*time.Millisecond, func(id string) { fired <- id })
	require.Equal(t, 1, s.Pending())

	select {
	case id := <-fired:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Cancel("a"), "cancel after fire is a no-op")
}

func TestDismissScheduler_Cancel(t *testing.T) {
	s := NewDismissScheduler()
	var calls atomic.Int32

	s.Schedule("a", 20*time.Millisecond, func(string) { calls.Add(1) })
	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))
	assert.False(t, s.Cancel("never"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDismissScheduler_reschedule_replaces(t *testing.T) {
	s := NewDismissScheduler()
	var calls atomic.Int32

	s.Schedule("a", 10*time.Millisecond, func(string) { calls.Add(1) })
	s.Schedule("a", 40*time.Millisecond, func(string) { calls.Add(10) })
	assert.Equal(t, 1, s.Pending())

	assert.Eventually(t, func() bool { return calls.Load() == 10 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(10), calls.Load())
}

func TestDismissScheduler_ignores_zero_duration(t *testing.T) {
	s := NewDismissScheduler()
	s.Schedule("a", 0, func(string) {})
	s.Schedule("b", -time.Second, func(string) {})
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Has("a"))
}

func TestDismissScheduler_CancelAll(t *testing.T) {
	s := NewDismissScheduler()
	var calls atomic.Int32

	for _, id := range []string{"a", "b", "c"} {
		s.Schedule(id, 20*time.Millisecond, func(string) { calls.Add(1) })
	}

	assert.Equal(t, 3, s.CancelAll())
	assert.Equal(t, 0, s.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
