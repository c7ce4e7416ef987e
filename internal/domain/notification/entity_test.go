package notification

import (
	"strings"
	"testing"
	"time"

	xerrors "notification-relay/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDefaultDurationMs(t *testing.T) {
	tests := []struct {
		priority Priority
		typ      NotificationType
		want     int64
	}{
		{PriorityCritical, TypeError, 0},
		{PriorityCritical, TypeInfo, 0},
		{PriorityHigh, TypeError, 6000},
		{PriorityHigh, TypeSuccess, 6000},
		{PriorityNormal, TypeError, 5000},
		{PriorityNormal, TypeWarning, 4000},
		{PriorityNormal, TypeSuccess, 3000},
		{PriorityNormal, TypeInfo, 4000},
		{PriorityNormal, TypeCustom, 4000},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority)+"/"+string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultDurationMs(tt.priority, tt.typ))
		})
	}
}

func TestShowOptions_Build_defaults(t *testing.T) {
	now := time.Now()
	n, err := ShowOptions{Title: "hello"}.Build("id-1", now)
	require.NoError(t, err)

	assert.Equal(t, "id-1", n.ID)
	assert.Equal(t, TypeInfo, n.Type)
	assert.Equal(t, PriorityNormal, n.Priority)
	assert.Equal(t, PositionTopRight, n.Position)
	assert.Equal(t, int64(4000), n.DurationMs)
	assert.True(t, n.ShowAsToast)
	assert.True(t, n.ShowInCenter)
	assert.False(t, n.Persistent)
	assert.Equal(t, now, n.CreatedAt)
}

func TestShowOptions_Build_high_overrides_error_default(t *testing.T) {
	n, err := ShowOptions{Title: "Build failed", Type: TypeError, Priority: PriorityHigh}.Build("x", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(6000), n.DurationMs)
}

func TestShowOptions_Build_critical_forces_zero_duration(t *testing.T) {
	n, err := ShowOptions{Title: "down", Priority: PriorityCritical, DurationMs: ptr(int64(9000))}.Build("x", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n.DurationMs)
	assert.False(t, n.AutoDismiss())
}

func TestShowOptions_Build_explicit_duration(t *testing.T) {
	n, err := ShowOptions{Title: "t", DurationMs: ptr(int64(0))}.Build("x", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n.DurationMs)

	n, err = ShowOptions{Title: "t", DurationMs: ptr(int64(1500)), ShowAsToast: ptr(false)}.Build("x", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, n.Duration())
	assert.False(t, n.ShowAsToast)
}

func TestShowOptions_Build_rejects_invalid(t *testing.T) {
	cases := map[string]ShowOptions{
		"missing title":     {},
		"unknown priority":  {Title: "t", Priority: "urgent"},
		"unknown type":      {Title: "t", Type: "alert"},
		"unknown position":  {Title: "t", Position: "middle"},
		"negative duration": {Title: "t", DurationMs: ptr(int64(-1))},
	}

	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := opts.Build("x", time.Now())
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
		})
	}
}

func TestNormalize_coerces_unknown_values(t *testing.T) {
	now := time.Now()
	n := Normalize(Notification{ID: "srv-1", Title: "t", Type: "alert", Priority: "urgent"}, false, now)

	assert.Equal(t, TypeCustom, n.Type)
	assert.Equal(t, PriorityNormal, n.Priority)
	assert.Equal(t, PositionTopRight, n.Position)
	assert.Equal(t, int64(4000), n.DurationMs)
	assert.Equal(t, now, n.CreatedAt)
}

func TestNormalize_keeps_server_duration(t *testing.T) {
	n := Normalize(Notification{ID: "srv-1", Title: "t", DurationMs: 0}, true, time.Now())
	assert.Equal(t, int64(0), n.DurationMs)

	n = Normalize(Notification{ID: "srv-1", Title: "t", Priority: PriorityCritical, DurationMs: 3000}, true, time.Now())
	assert.Equal(t, int64(0), n.DurationMs)
}

func TestNewID_unique_within_millisecond(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID(now)
		require.True(t, strings.HasPrefix(id, "1700000000000_"))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestState_CountUnread_and_Find(t *testing.T) {
	s := State{
		Queue:   []Notification{{ID: "q"}},
		Active:  []Notification{{ID: "a", IsRead: false}, {ID: "b", IsRead: true}},
		History: []Notification{{ID: "h"}},
	}

	assert.Equal(t, 2, s.CountUnread())

	_, ok := s.Find("h")
	assert.True(t, ok)
	_, ok = s.Find("q")
	assert.False(t, ok)
	assert.True(t, s.Contains("q"))
	assert.False(t, s.Contains("missing"))
}
