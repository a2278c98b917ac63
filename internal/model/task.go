// Package model defines the records the stores persist and the snapshots
// handed to the view layer.
package model

import (
	"math"
	"time"
)

// Layouts of the free-form date and time strings a task carries.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// DefaultReminderOffset is used when a reminder is enabled without an offset.
const DefaultReminderOffset = 5

// MaxReminderOffset is the largest accepted offset, one year in minutes.
// The stored task schemas carry the same limit.
const MaxReminderOffset = 365 * 24 * 60

// Owner identifies a task partition: a user's email, or the guest bucket
// when empty.
type Owner string

// Guest is the anonymous partition used while nobody is signed in.
const Guest Owner = ""

func (o Owner) IsGuest() bool { return o == Guest }

// Task is one entry of a partition.
//
// Invariant: CompletedAt is non-nil exactly when Done is true. Only
// TaskService.Toggle changes either field, and it always changes both.
type Task struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Date                  string     `json:"date"` // YYYY-MM-DD or empty
	Time                  string     `json:"time"` // HH:MM or empty
	ReminderEnabled       bool       `json:"reminderEnabled"`
	ReminderOffsetMinutes int        `json:"reminderOffsetMinutes"`
	Done                  bool       `json:"done"`
	CreatedAt             time.Time  `json:"createdAt"`
	CompletedAt           *time.Time `json:"completedAt"`
}

// TaskFields are the user-editable fields of a task, as submitted by the
// task form for both add and edit.
//
// ReminderOffsetMinutes is a pointer so "not given" can be told apart from 0.
type TaskFields struct {
	Title                 string `json:"title"`
	Description           string `json:"description"`
	Date                  string `json:"date"`
	Time                  string `json:"time"`
	ReminderEnabled       bool   `json:"reminderEnabled"`
	ReminderOffsetMinutes *int   `json:"reminderOffsetMinutes,omitempty"`
}

// ReminderOffset resolves the offset to store: the given value (or the
// default) when the reminder is on, 0 when it is off.
func (f TaskFields) ReminderOffset() int {
	if !f.ReminderEnabled {
		return 0
	}
	if f.ReminderOffsetMinutes == nil {
		return DefaultReminderOffset
	}
	return *f.ReminderOffsetMinutes
}

// Progress is the done/total counter of the active partition.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Percent returns done/total as a whole percentage, rounded half away from
// zero, and 0 for an empty list.
func Percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// CountDone returns how many tasks are marked done.
func CountDone(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if t.Done {
			n++
		}
	}
	return n
}
