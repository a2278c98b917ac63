// Package analytics turns a task list into completion counters and charts.
// Everything here is a pure function of its arguments.
package analytics

import (
	"strconv"
	"time"

	"github.com/sakif/mylist/internal/model"
)

// Summary is the counter row above the chart.
type Summary struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Pending int `json:"pending"`
	Rate    int `json:"rate"` // percent, same rounding as task progress
}

// Summarize counts tasks.
func Summarize(tasks []model.Task) Summary {
	done := model.CountDone(tasks)
	return Summary{
		Total:   len(tasks),
		Done:    done,
		Pending: len(tasks) - done,
		Rate:    model.Percent(done, len(tasks)),
	}
}

// WeeklyHistogram counts completed tasks by the weekday of their completion
// in loc, index 0 being Sunday. All history counts, not just this week.
func WeeklyHistogram(tasks []model.Task, loc *time.Location) [7]int {
	var counts [7]int
	for _, t := range tasks {
		if !t.Done || t.CompletedAt == nil {
			continue
		}
		counts[t.CompletedAt.In(loc).Weekday()]++
	}
	return counts
}

// MonthlyHistogram counts tasks completed in the given month, one slot per
// day: day 1 is index 0.
func MonthlyHistogram(tasks []model.Task, year int, month time.Month, loc *time.Location) []int {
	counts := make([]int, daysIn(year, month, loc))
	for _, t := range tasks {
		if !t.Done || t.CompletedAt == nil {
			continue
		}
		c := t.CompletedAt.In(loc)
		if c.Year() == year && c.Month() == month {
			counts[c.Day()-1]++
		}
	}
	return counts
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// Day 0 of the next month normalises to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Chart is a histogram ready to draw: one label per bar, and Max for
// scaling bar heights. Max is at least 1 so an empty chart still scales.
type Chart struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
	Max    int      `json:"max"`
}

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeeklyChart wraps WeeklyHistogram with weekday labels.
func WeeklyChart(tasks []model.Task, loc *time.Location) Chart {
	counts := WeeklyHistogram(tasks, loc)
	return newChart(weekdayLabels, counts[:])
}

// MonthlyChart wraps MonthlyHistogram with day-of-month labels.
func MonthlyChart(tasks []model.Task, year int, month time.Month, loc *time.Location) Chart {
	counts := MonthlyHistogram(tasks, year, month, loc)
	labels := make([]string, len(counts))
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return newChart(labels, counts)
}

func newChart(labels []string, counts []int) Chart {
	return Chart{
		Labels: append([]string(nil), labels...),
		Counts: counts,
		Max:    max(1, maxOf(counts)),
	}
}

func maxOf(xs []int) int {
	m := 0
	for _, x := range xs {
		m = max(m, x)
	}
	return m
}
