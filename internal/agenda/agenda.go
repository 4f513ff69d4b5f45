// Package agenda holds the read-only views over a task list used by the
// task screens: search, due-day, completion and priority filters.
package agenda

import (
	"strings"
	"time"

	"github.com/dukerupert/precrastine/internal/model"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterToday     Filter = "today"
	FilterTomorrow  Filter = "tomorrow"
	FilterCompleted Filter = "completed"
)

// ParseFilter accepts a named filter; the empty string means FilterAll.
func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterToday, FilterTomorrow, FilterCompleted:
		return f, true
	}
	return "", false
}

// Query combines every view. Zero fields do not filter.
type Query struct {
	Text      string
	Filter    Filter
	Priority  model.Priority
	Completed *bool
	Due       *time.Time
}

// Apply narrows tasks by q, relative to now. Order is preserved.
func Apply(tasks []model.Task, q Query, now time.Time) []model.Task {
	out := Search(tasks, q.Text)

	switch q.Filter {
	case FilterToday:
		out = ByCompletion(DueOn(out, now), false)
	case FilterTomorrow:
		out = ByCompletion(DueOn(out, now.AddDate(0, 0, 1)), false)
	case FilterCompleted:
		out = ByCompletion(out, true)
	}

	if q.Priority != "" {
		out = ByPriority(out, q.Priority)
	}
	if q.Completed != nil {
		out = ByCompletion(out, *q.Completed)
	}
	if q.Due != nil {
		out = DueOn(out, *q.Due)
	}
	return out
}

func where(tasks []model.Task, keep func(model.Task) bool) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Search keeps tasks whose title or description contains text, ignoring case.
// Blank text keeps everything.
func Search(tasks []model.Task, text string) []model.Task {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return where(tasks, func(model.Task) bool { return true })
	}
	return where(tasks, func(t model.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle)
	})
}

// DueOn keeps tasks due on the calendar day of day. Tasks without a due date never match.
func DueOn(tasks []model.Task, day time.Time) []model.Task {
	return where(tasks, func(t model.Task) bool {
		return t.DueDate != nil && SameDay(*t.DueDate, day)
	})
}

func ByCompletion(tasks []model.Task, completed bool) []model.Task {
	return where(tasks, func(t model.Task) bool { return t.Completed == completed })
}

func ByPriority(tasks []model.Task, p model.Priority) []model.Task {
	return where(tasks, func(t model.Task) bool { return t.Priority == p })
}

// Group splits tasks into pending and completed, keeping order within each.
func Group(tasks []model.Task) (pending, completed []model.Task) {
	return ByCompletion(tasks, false), ByCompletion(tasks, true)
}

// SameDay reports whether due falls on the calendar day of day. Due dates are
// calendar dates stored at UTC midnight, so due is read in UTC and day in its
// own location.
func SameDay(due, day time.Time) bool {
	dy, dm, dd := due.UTC().Date()
	y, m, d := day.Date()
	return dy == y && dm == m && dd == d
}
