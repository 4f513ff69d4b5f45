// Package seed creates the demo identity with sample data.
package seed

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/session"
	"github.com/dukerupert/precrastine/internal/store"
)

const (
	DemoEmail    = "demo@precrastine.com"
	DemoPassword = "demo123"
	DemoName     = "Usuário Demo"
)

func demoTasks(now time.Time) []model.TaskFields {
	y, m, d := now.AddDate(0, 0, 1).Date()
	tomorrow := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return []model.TaskFields{
		{
			Title:       "Estudar Go",
			Description: "Revisar concorrência e a biblioteca padrão",
			Priority:    model.PriorityHigh,
			Category:    "estudos",
		},
		{
			Title:       "Exercitar-se",
			Description: "Caminhada de 30 minutos no parque",
			Priority:    model.PriorityMedium,
			Category:    "saude",
		},
		{
			Title:       "Reunião de equipe",
			Description: "Discussão sobre o projeto Precrastine-se",
			Priority:    model.PriorityHigh,
			Category:    "trabalho",
			DueDate:     &tomorrow,
		},
	}
}

// Demo registers the demo identity with its wheel and sample tasks. It
// reports false when the identity already exists. Whoever was signed in
// before is signed back in afterwards.
func Demo(ctl *session.Controller, tasks *store.TaskStore, areas *store.LifeAreaStore, now time.Time) (bool, error) {
	prev := ctl.Current()

	ok, err := ctl.Register(DemoEmail, DemoPassword, DemoName)
	if err != nil || !ok {
		return false, err
	}
	restore := func() error {
		if err := ctl.Restore(prev); err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		return nil
	}

	if _, err := areas.List(); err != nil {
		return false, errors.Join(fmt.Errorf("seed demo life areas: %w", err), restore())
	}
	for _, f := range demoTasks(now) {
		if _, err := tasks.Add(f); err != nil {
			return false, errors.Join(fmt.Errorf("seed demo task %q: %w", f.Title, err), restore())
		}
	}
	return true, restore()
}
