package model

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const DefaultCategory = "pessoal"

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UserID      string     `json:"userId"`
}

// TaskFields are the caller-supplied fields of a new task.
type TaskFields struct {
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	Category    string
	DueDate     *time.Time
}

// TaskUpdate is a partial update. Nil fields are left as is; ClearDueDate
// removes the due date and wins over DueDate.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Completed    *bool
	Priority     *Priority
	Category     *string
	DueDate      *time.Time
	ClearDueDate bool
}

// Apply merges the set fields of u into t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.DueDate != nil {
		due := *u.DueDate
		t.DueDate = &due
	}
	if u.ClearDueDate {
		t.DueDate = nil
	}
}
