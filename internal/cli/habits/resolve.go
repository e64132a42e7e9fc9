package habits

import (
	"fmt"
	"strings"

	"github.com/julianstephens/habitkeep/internal/models"
	"github.com/julianstephens/habitkeep/internal/service"
)

// resolve finds a habit by exact id, then by case-insensitive name. A name
// shared by several habits must be given as an id.
func resolve(list *models.HabitList, ref string) (*models.Habit, error) {
	ref = strings.TrimSpace(ref)
	if h, ok := list.Get(ref); ok {
		return h, nil
	}

	var matches []*models.Habit
	for _, h := range list.Habits() {
		if strings.EqualFold(h.Name(), ref) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", service.ErrHabitNotFound, ref)
	case 1:
		return matches[0], nil
	}

	ids := make([]string, len(matches))
	for i, h := range matches {
		ids[i] = h.ID()
	}
	return nil, fmt.Errorf("%w: %d habits are named %q, use an id (%s)",
		service.ErrInvalidRequest, len(matches), ref, strings.Join(ids, ", "))
}
