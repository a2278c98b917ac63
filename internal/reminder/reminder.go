// Package reminder schedules task reminders.
//
// A reminder is derived from a task, never stored: whenever the active task
// list changes the whole schedule is rebuilt from it (Scheduler.Reschedule).
// Pending reminders sit in a min-heap ordered by fire time, and time only
// enters through a Clock, so tests step it forward by hand.
//
// When a reminder fires it always lands in the Inbox as a dismissible
// in-app alert. It is also handed to the Notifier, but only once the
// notification Permission has been granted.
package reminder

import (
	"time"

	"github.com/sakif/mylist/internal/model"
)

// Reminder is one scheduled notification.
type Reminder struct {
	Owner  model.Owner `json:"owner"`
	TaskID string      `json:"taskId"`
	Title  string      `json:"title"`
	DueAt  time.Time   `json:"dueAt"`
	FireAt time.Time   `json:"fireAt"`
}

// Plan computes the reminder for task. ok is false when the task is not
// eligible: reminder off, date or time missing or unparseable, offset
// outside 0..model.MaxReminderOffset, or already done. Date and time are
// read as wall-clock time in loc.
func Plan(owner model.Owner, task model.Task, loc *time.Location) (Reminder, bool) {
	if !task.ReminderEnabled || task.Done || task.Date == "" || task.Time == "" {
		return Reminder{}, false
	}
	if task.ReminderOffsetMinutes < 0 || task.ReminderOffsetMinutes > model.MaxReminderOffset {
		return Reminder{}, false
	}

	dueAt, err := time.ParseInLocation(model.DateLayout+" "+model.TimeLayout, task.Date+" "+task.Time, loc)
	if err != nil {
		return Reminder{}, false
	}

	return Reminder{
		Owner:  owner,
		TaskID: task.ID,
		Title:  task.Title,
		DueAt:  dueAt,
		FireAt: dueAt.Add(-time.Duration(task.ReminderOffsetMinutes) * time.Minute),
	}, true
}
