package overview

import (
	"math"
	"time"

	"github.com/dukerupert/precrastine/internal/agenda"
	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/wheel"
)

// Stats is the dashboard summary of one identity's data.
type Stats struct {
	TotalTasks        int     `json:"totalTasks"`
	CompletedTasks    int     `json:"completedTasks"`
	PendingTasks      int     `json:"pendingTasks"`
	CompletionRate    int     `json:"completionRate"`
	TodayTasks        int     `json:"todayTasks"`
	TomorrowTasks     int     `json:"tomorrowTasks"`
	HighPriorityTasks int     `json:"highPriorityTasks"`
	AverageLifeScore  float64 `json:"averageLifeScore"`
}

// Compute derives Stats relative to now. Today and tomorrow count every task due
// that day, completed or not; the high priority count is pending tasks only.
func Compute(tasks []model.Task, areas []model.LifeArea, now time.Time) Stats {
	pending, completed := agenda.Group(tasks)

	s := Stats{
		TotalTasks:        len(tasks),
		CompletedTasks:    len(completed),
		PendingTasks:      len(pending),
		TodayTasks:        len(agenda.DueOn(tasks, now)),
		TomorrowTasks:     len(agenda.DueOn(tasks, now.AddDate(0, 0, 1))),
		HighPriorityTasks: len(agenda.ByPriority(pending, model.PriorityHigh)),
		AverageLifeScore:  wheel.Average(areas),
	}
	if s.TotalTasks > 0 {
		s.CompletionRate = int(math.Round(float64(s.CompletedTasks) / float64(s.TotalTasks) * 100))
	}
	return s
}
