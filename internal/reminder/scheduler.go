package reminder

import (
	"container/heap"
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/mylist/internal/model"
)

// Recorder receives scheduler metrics. *metrics.Metrics implements it.
type Recorder interface {
	ReminderFired()
	NotificationFailed()
	SetPendingReminders(n int)
}

// Options configures a Scheduler. Only Location is required.
type Options struct {
	Location   *time.Location
	Notifier   Notifier
	Permission Permission
	Inbox      *Inbox
	Metrics    Recorder
}

// Scheduler keeps the pending reminders of the active task list.
type Scheduler struct {
	mu    sync.Mutex
	queue reminderQueue
	seq   uint64
	// gen counts reschedules. A reminder popped by FireDue only fires if no
	// reschedule happened since it was queued.
	gen uint64

	loc        *time.Location
	notifier   Notifier
	permission Permission
	inbox      *Inbox
	metrics    Recorder
	logger     *slog.Logger

	// wake interrupts Run's sleep after a reschedule.
	wake chan struct{}
}

// New creates an empty Scheduler.
func New(opts Options, logger *slog.Logger) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	inbox := opts.Inbox
	if inbox == nil {
		inbox = NewInbox(DefaultInboxSize)
	}
	return &Scheduler{
		loc:        loc,
		notifier:   opts.Notifier,
		permission: opts.Permission,
		inbox:      inbox,
		metrics:    opts.Metrics,
		logger:     logger,
		wake:       make(chan struct{}, 1),
	}
}

// Inbox returns the alert inbox the scheduler fires into.
func (s *Scheduler) Inbox() *Inbox { return s.inbox }

// Reschedule cancels every pending reminder and schedules one per eligible
// task of owner whose fire time is still after now. It returns the new
// schedule in fire order.
func (s *Scheduler) Reschedule(owner model.Owner, tasks []model.Task, now time.Time) []Reminder {
	if s.permission != nil && !s.permission.Granted() {
		if s.permission.Request() {
			s.logger.Info("notification permission granted")
		}
	}

	s.mu.Lock()
	s.queue = nil
	s.gen++
	for _, t := range tasks {
		r, ok := Plan(owner, t, s.loc)
		if !ok || !r.FireAt.After(now) {
			continue
		}
		s.seq++
		heap.Push(&s.queue, &entry{reminder: r, seq: s.seq, gen: s.gen})
	}
	pending := s.pendingLocked()
	s.mu.Unlock()

	s.setPending(len(pending))
	s.logger.Debug("reminders rescheduled", slog.Int("pending", len(pending)))

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return pending
}

// FireDue fires, in order, every reminder whose fire time is at or before
// now, and returns how many fired. A reminder cancelled by a Reschedule
// while earlier ones were being delivered is dropped.
func (s *Scheduler) FireDue(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var due []*entry
	for s.queue.Len() > 0 && !s.queue[0].reminder.FireAt.After(now) {
		due = append(due, heap.Pop(&s.queue).(*entry))
	}
	left := s.queue.Len()
	s.mu.Unlock()

	if len(due) > 0 {
		s.setPending(left)
	}
	fired := 0
	for _, e := range due {
		if !s.current(e) {
			s.logger.Debug("reminder cancelled before firing", slog.String("taskID", e.reminder.TaskID))
			continue
		}
		s.fire(ctx, e.reminder, now)
		fired++
	}
	return fired
}

// current reports whether e belongs to the latest schedule.
func (s *Scheduler) current(e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.gen == s.gen
}

func (s *Scheduler) fire(ctx context.Context, r Reminder, now time.Time) {
	s.inbox.Push(r, now)
	if s.metrics != nil {
		s.metrics.ReminderFired()
	}
	s.logger.Info("reminder fired", slog.String("taskID", r.TaskID), slog.Time("dueAt", r.DueAt))

	if s.notifier == nil || s.permission == nil || !s.permission.Granted() {
		return
	}
	if err := s.notifier.Notify(ctx, newNotification(r)); err != nil {
		s.logger.Error("failed to deliver notification",
			slog.String("taskID", r.TaskID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.NotificationFailed()
		}
	}
}

// Run fires reminders in real time until ctx is cancelled. It sleeps until
// the earliest fire time and wakes early whenever Reschedule is called.
func (s *Scheduler) Run(ctx context.Context, clock Clock) error {
	for {
		var (
			timer  Timer
			expire <-chan time.Time
		)
		if next, ok := s.NextFireAt(); ok {
			d := next.Sub(clock.Now())
			if d < 0 {
				d = 0
			}
			timer = clock.NewTimer(d)
			expire = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-expire:
			s.FireDue(ctx, clock.Now())
		}
	}
}

// Pending returns the scheduled reminders in fire order.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// NextFireAt returns the earliest fire time, if anything is scheduled.
func (s *Scheduler) NextFireAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].reminder.FireAt, true
}

func (s *Scheduler) pendingLocked() []Reminder {
	entries := make([]*entry, len(s.queue))
	copy(entries, s.queue)
	sort.Slice(entries, func(i, j int) bool { return entries[i].less(entries[j]) })

	out := make([]Reminder, len(entries))
	for i, e := range entries {
		out[i] = e.reminder
	}
	return out
}

func (s *Scheduler) setPending(n int) {
	if s.metrics != nil {
		s.metrics.SetPendingReminders(n)
	}
}

// ---------------------------------------------------------------------------
// min-heap on (FireAt, seq)
// ---------------------------------------------------------------------------

type entry struct {
	reminder Reminder
	seq      uint64
	gen      uint64
}

func (e *entry) less(o *entry) bool {
	if !e.reminder.FireAt.Equal(o.reminder.FireAt) {
		return e.reminder.FireAt.Before(o.reminder.FireAt)
	}
	return e.seq < o.seq
}

type reminderQueue []*entry

func (q reminderQueue) Len() int           { return len(q) }
func (q reminderQueue) Less(i, j int) bool { return q[i].less(q[j]) }
func (q reminderQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *reminderQueue) Push(x any) { *q = append(*q, x.(*entry)) }

func (q *reminderQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
