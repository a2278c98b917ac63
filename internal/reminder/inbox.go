package reminder

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/mylist/internal/apperror"
)

// DefaultInboxSize is the number of alerts kept before the oldest is dropped.
const DefaultInboxSize = 50

// Alert is an in-app reminder banner. It stays until dismissed.
type Alert struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	TaskID    string    `json:"taskId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Inbox holds the most recent alerts, oldest first.
type Inbox struct {
	mu     sync.Mutex
	alerts []Alert
	limit  int
}

// NewInbox returns an Inbox keeping at most limit alerts.
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = DefaultInboxSize
	}
	return &Inbox{limit: limit}
}

// Push records an alert for r.
func (i *Inbox) Push(r Reminder, at time.Time) Alert {
	a := Alert{
		ID:        xid.New().String(),
		Message:   "⏰ Reminder: " + r.Title,
		TaskID:    r.TaskID,
		CreatedAt: at,
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.alerts = append(i.alerts, a)
	if over := len(i.alerts) - i.limit; over > 0 {
		i.alerts = slices.Delete(i.alerts, 0, over)
	}
	return a
}

// List returns a copy of the alerts, oldest first.
func (i *Inbox) List() []Alert {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Alert{}, i.alerts...)
}

// Dismiss removes an alert. Unknown ids return apperror.ErrNotFound.
func (i *Inbox) Dismiss(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	idx := slices.IndexFunc(i.alerts, func(a Alert) bool { return a.ID == id })
	if idx < 0 {
		return apperror.NotFound("alert", id)
	}
	i.alerts = slices.Delete(i.alerts, idx, idx+1)
	return nil
}
