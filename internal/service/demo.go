package service

import (
	"github.com/julianstephens/habitkeep/internal/models"
)

// DemoHabitNames seed the list a new session starts with.
var DemoHabitNames = []string{"Order pizza", "Running", "Table Tennis", "Clean", "Call mom"}

// DemoHabitList builds the demo habits with a record for each of the last
// days days, roughly one in four of them done.
func (s *Service) DemoHabitList(days int) (*models.HabitList, error) {
	window := models.LastDays(s.Today(), days)

	habits := make([]*models.Habit, 0, len(DemoHabitNames))
	for _, name := range DemoHabitNames {
		records := make([]models.Record, len(window))
		for i, day := range window {
			records[i] = models.Record{Day: day, Done: s.rng.IntN(4) == 0}
		}
		h, err := models.RestoreHabit(models.GenerateID(name), name, false, models.StatusActive, records)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return models.NewHabitList(habits, nil)
}
