// internal/service/notification/orchestrator.go
package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"notification-relay/internal/domain/notification"
	"notification-relay/internal/eventbus"
	xerrors "notification-relay/internal/pkg/errors"

	"go.uber.org/zap"
)

type Config struct {
	ActiveCapacity  int
	HistoryCapacity int
}

func DefaultConfig() Config {
	return Config{
		ActiveCapacity:  5,
		HistoryCapacity: 100,
	}
}

// Orchestrator owns the notification state. A single goroutine (Run) applies
// every mutation; public methods hand it work and wait for it to be applied.
// Draining the queue is a separate signal on the same goroutine that admits
// one notification per pass, so Show and Dismiss calls interleave between
// admissions.
type Orchestrator struct {
	cfg       Config
	logger    *zap.Logger
	scheduler *DismissScheduler
	now       func() time.Time

	ops       chan func()
	drain     chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// state is only touched by the Run goroutine.
	state    notification.State
	snapshot atomic.Pointer[notification.State]

	states *eventbus.Bus[notification.State]
	events *eventbus.Bus[Event]
}

func NewOrchestrator(cfg Config, logger *zap.Logger) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.ActiveCapacity <= 0 {
		cfg.ActiveCapacity = defaults.ActiveCapacity
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = defaults.HistoryCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "orchestrator")),
		scheduler: NewDismissScheduler(),
		now:       time.Now,
		ops:       make(chan func()),
		drain:     make(chan struct{}, 1),
		done:      make(chan struct{}),
		states:    eventbus.NewConflating[notification.State](),
		events:    eventbus.New[Event](),
	}
	o.snapshot.Store(&notification.State{})
	o.events.OnDrop(func(e Event) {
		o.logger.Warn("lifecycle event dropped: subscriber too slow", zap.String("event", string(e.Type)))
	})
	return o
}

// Run processes operations until ctx is done or Close is called.
func (o *Orchestrator) Run(ctx context.Context) {
	defer o.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case fn := <-o.ops:
			fn()
		case <-o.drain:
			o.drainOnce()
		}
	}
}

// Close stops the orchestrator and cancels every outstanding timer.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
		cancelled := o.scheduler.CancelAll()
		o.states.Close()
		o.events.Close()
		o.logger.Debug("orchestrator closed", zap.Int("cancelled_timers", cancelled))
	})
}

// State returns the latest published snapshot.
func (o *Orchestrator) State() notification.State {
	return *o.snapshot.Load()
}

// Subscribe streams state snapshots. Slow subscribers see only the latest.
func (o *Orchestrator) Subscribe(buffer int) (<-chan notification.State, func()) {
	return o.states.Subscribe(buffer)
}

// Events streams lifecycle events.
func (o *Orchestrator) Events(buffer int) (<-chan Event, func()) {
	return o.events.Subscribe(buffer)
}

// PendingTimers returns the number of outstanding auto-dismiss timers.
func (o *Orchestrator) PendingTimers() int {
	return o.scheduler.Pending()
}

// Show creates a notification and returns its id. Critical notifications are
// admitted immediately; others are queued and admitted by the drain loop.
func (o *Orchestrator) Show(opts notification.ShowOptions) (string, error) {
	now := o.now()
	n, err := opts.Build(notification.NewID(now), now)
	if err != nil {
		return "", err
	}

	if err := o.do(func() { o.submit(n) }); err != nil {
		return "", err
	}
	return n.ID, nil
}

// Ingest admits a notification that already carries an id, such as one pushed
// by the server. Duplicates of a known id are ignored and reported as false.
func (o *Orchestrator) Ingest(n notification.Notification) (bool, error) {
	if n.ID == "" {
		return false, xerrors.Invalid("notification id is required")
	}

	accepted := false
	err := o.do(func() {
		if o.state.Contains(n.ID) {
			o.logger.Debug("duplicate notification ignored", zap.String("notification_id", n.ID))
			return
		}
		accepted = true
		o.submit(n)
	})
	return accepted, err
}

// Dismiss removes id from active. With moveToHistory it is kept in history,
// otherwise it is discarded. Unknown ids report false.
func (o *Orchestrator) Dismiss(id string, moveToHistory bool) (bool, error) {
	reason := ReasonManual
	if !moveToHistory {
		reason = ReasonDiscarded
	}
	found := false
	err := o.do(func() { found = o.dismiss(id, moveToHistory, reason) })
	return found, err
}

// MarkAsRead marks id read in active or history.
func (o *Orchestrator) MarkAsRead(id string) (bool, error) {
	return o.markRead(id, OriginLocal)
}

// ApplyRemoteRead marks id read because the server said so. The resulting
// event carries OriginRemote so it is not echoed back.
func (o *Orchestrator) ApplyRemoteRead(id string) (bool, error) {
	return o.markRead(id, OriginRemote)
}

func (o *Orchestrator) markRead(id string, origin Origin) (bool, error) {
	found := false
	err := o.do(func() { found = o.applyRead(id, origin) })
	return found, err
}

func (o *Orchestrator) MarkAllAsRead() error {
	return o.do(func() { o.applyReadAll(OriginLocal) })
}

// ClearAll cancels every timer and resets the state. With keepPersistent the
// persistent active notifications survive.
func (o *Orchestrator) ClearAll(keepPersistent bool) error {
	return o.do(func() { o.clearAll(keepPersistent) })
}

func (o *Orchestrator) ClearHistory() error {
	return o.do(func() {
		s := o.state
		next := s
		next.History = nil
		next.UnreadCount = floor(s.UnreadCount - unreadIn(s.History))
		o.commit(next)
	})
}

// DismissToast clears the current toast while keeping it in active.
func (o *Orchestrator) DismissToast() (bool, error) {
	cleared := false
	err := o.do(func() {
		if o.state.CurrentToast == nil {
			return
		}
		next := o.state
		next.CurrentToast = nil
		o.commit(next)
		cleared = true
		o.requestDrain()
	})
	return cleared, err
}

// TriggerAction emits an action event for id.
func (o *Orchestrator) TriggerAction(id string) (bool, error) {
	found := false
	err := o.do(func() {
		n, ok := o.state.Find(id)
		if !ok {
			return
		}
		found = true
		o.emit(Event{Type: EventAction, Notification: &n, Origin: OriginLocal})
	})
	return found, err
}

// SyncUnreadCount replaces the unread count with the server's value.
func (o *Orchestrator) SyncUnreadCount(count int) error {
	return o.do(func() {
		next := o.state
		next.UnreadCount = floor(count)
		o.commit(next)
	})
}

// do runs fn on the Run goroutine and waits for it.
func (o *Orchestrator) do(fn func()) error {
	select {
	case <-o.done:
		return xerrors.ErrClosed
	default:
	}

	done := make(chan struct{})
	select {
	case o.ops <- func() {
		defer close(done)
		fn()
	}:
	case <-o.done:
		return xerrors.ErrClosed
	}
	<-done
	return nil
}

// post hands fn to the Run goroutine without waiting for it to run.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.ops <- fn:
	case <-o.done:
	}
}

func (o *Orchestrator) requestDrain() {
	select {
	case o.drain <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) submit(n notification.Notification) {
	if n.Priority == notification.PriorityCritical {
		o.admitCritical(n)
		return
	}

	next := o.state
	next.Queue = appendCopy(o.state.Queue, n)
	o.commit(next)
	o.requestDrain()
}

// admitCritical bypasses the queue. Active may exceed capacity until the
// oldest non-persistent entry is evicted.
func (o *Orchestrator) admitCritical(n notification.Notification) {
	o.admit(o.state, n)

	if len(o.state.Active) > o.cfg.ActiveCapacity {
		if victim, ok := oldestEvictable(o.state.Active, n.ID); ok {
			o.dismiss(victim.ID, true, ReasonEvicted)
		}
	}
}

// drainOnce performs a single admission from the queue head.
func (o *Orchestrator) drainOnce() {
	s := o.state
	if len(s.Queue) == 0 || s.CurrentToast != nil {
		return
	}

	if len(s.Active) >= o.cfg.ActiveCapacity {
		victim, ok := oldestEvictable(s.Active, "")
		if !ok {
			o.logger.Debug("active full of persistent notifications, queue backing up",
				zap.Int("queued", len(s.Queue)),
			)
			return
		}
		o.dismiss(victim.ID, true, ReasonEvicted)
		s = o.state
	}

	head := s.Queue[0]
	s.Queue = cloneList(s.Queue[1:])
	o.admit(s, head)
	o.requestDrain()
}

// admit adds n to active on top of base and commits.
func (o *Orchestrator) admit(base notification.State, n notification.Notification) {
	next := base
	next.Active = appendCopy(base.Active, n)
	if n.ShowAsToast {
		toast := n
		next.CurrentToast = &toast
	}
	if !n.IsRead {
		next.UnreadCount++
	}
	if n.AutoDismiss() {
		o.scheduler.Schedule(n.ID, n.Duration(), o.onTimeout)
	}
	o.commit(next)

	o.logger.Debug("notification admitted",
		zap.String("notification_id", n.ID),
		zap.String("priority", string(n.Priority)),
		zap.Int("active", len(next.Active)),
	)
	o.emit(Event{Type: EventAdmitted, Notification: &n})
}

// onTimeout runs on a timer goroutine.
func (o *Orchestrator) onTimeout(id string) {
	o.post(func() {
		o.dismiss(id, true, ReasonTimeout)
	})
}

func (o *Orchestrator) dismiss(id string, moveToHistory bool, reason DismissReason) bool {
	o.scheduler.Cancel(id)

	s := o.state
	active, n, ok := removeID(s.Active, id)
	if !ok {
		return false
	}

	next := s
	next.Active = active

	if moveToHistory {
		history := prependCopy(s.History, n)
		if len(history) > o.cfg.HistoryCapacity {
			next.UnreadCount -= unreadIn(history[o.cfg.HistoryCapacity:])
			history = history[:o.cfg.HistoryCapacity]
		}
		next.History = history
	} else if !n.IsRead {
		next.UnreadCount--
	}
	next.UnreadCount = floor(next.UnreadCount)

	if s.CurrentToast != nil && s.CurrentToast.ID == id {
		next.CurrentToast = nil
	}

	o.commit(next)
	o.logger.Debug("notification dismissed",
		zap.String("notification_id", id),
		zap.String("reason", string(reason)),
	)
	o.emit(Event{Type: EventDismissed, Notification: &n, Reason: reason})
	o.requestDrain()
	return true
}

func (o *Orchestrator) applyRead(id string, origin Origin) bool {
	s := o.state
	next := s

	var n notification.Notification
	if i := indexOf(s.Active, id); i >= 0 {
		n = s.Active[i]
		if n.IsRead {
			return true
		}
		n.IsRead = true
		next.Active = replaceAt(s.Active, i, n)
	} else if i := indexOf(s.History, id); i >= 0 {
		n = s.History[i]
		if n.IsRead {
			return true
		}
		n.IsRead = true
		next.History = replaceAt(s.History, i, n)
	} else {
		return false
	}

	next.UnreadCount = floor(s.UnreadCount - 1)
	if s.CurrentToast != nil && s.CurrentToast.ID == id {
		toast := n
		next.CurrentToast = &toast
	}

	o.commit(next)
	o.emit(Event{Type: EventRead, Notification: &n, Origin: origin})
	return true
}

func (o *Orchestrator) applyReadAll(origin Origin) {
	s := o.state
	next := s
	next.Active = markAllRead(s.Active)
	next.History = markAllRead(s.History)
	next.UnreadCount = 0
	if s.CurrentToast != nil {
		toast := *s.CurrentToast
		toast.IsRead = true
		next.CurrentToast = &toast
	}

	o.commit(next)
	o.emit(Event{Type: EventReadAll, Origin: origin})
}

func (o *Orchestrator) clearAll(keepPersistent bool) {
	cancelled := o.scheduler.CancelAll()

	var next notification.State
	if keepPersistent {
		for _, n := range o.state.Active {
			if n.Persistent {
				next.Active = append(next.Active, n)
			}
		}
		next.UnreadCount = next.CountUnread()
		if toast := o.state.CurrentToast; toast != nil && indexOf(next.Active, toast.ID) >= 0 {
			kept := *toast
			next.CurrentToast = &kept
		}
	}

	o.commit(next)
	o.logger.Debug("notifications cleared",
		zap.Bool("keep_persistent", keepPersistent),
		zap.Int("cancelled_timers", cancelled),
	)
	o.emit(Event{Type: EventCleared})
}

func (o *Orchestrator) commit(next notification.State) {
	o.state = next
	snap := next
	o.snapshot.Store(&snap)
	o.states.Publish(snap)
}

func (o *Orchestrator) emit(e Event) {
	if e.At.IsZero() {
		e.At = o.now()
	}
	o.events.Publish(e)
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
