package notification

import (
	"fmt"
	"sync/atomic"
	"time"
)

// DefaultDurationMs returns the auto-dismiss duration used when the caller
// does not specify one. Priority wins over type.
func DefaultDurationMs(p Priority, t NotificationType) int64 {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 6000
	}

	switch t {
	case TypeError:
		return 5000
	case TypeWarning:
		return 4000
	case TypeSuccess:
		return 3000
	default:
		return 4000
	}
}

var idCounter atomic.Uint64

// NewID returns "{epochMillis}_{counter}". The counter is process-wide so two
// IDs minted in the same millisecond still differ.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d_%d", now.UnixMilli(), idCounter.Add(1))
}
