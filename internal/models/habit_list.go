package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// HabitList is a set of habits unique by id plus the user's display order.
type HabitList struct {
	habits []*Habit // insertion order
	order  []string
}

// NewHabitList builds a list from existing habits. Duplicate ids are
// rejected; order entries that name no habit are dropped.
func NewHabitList(habits []*Habit, order []string) (*HabitList, error) {
	l := &HabitList{habits: make([]*Habit, 0, len(habits))}
	seen := make(map[string]struct{}, len(habits))
	for _, h := range habits {
		if h == nil {
			continue
		}
		if _, dup := seen[h.id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, h.id)
		}
		seen[h.id] = struct{}{}
		l.habits = append(l.habits, h)
	}
	l.SetOrder(order)
	return l, nil
}

// Len returns the number of habits in any status.
func (l *HabitList) Len() int {
	return len(l.habits)
}

// Add creates a habit named name and appends it to the list and the order.
// Names may repeat; ids never do.
func (l *HabitList) Add(name string) (*Habit, error) {
	h, err := NewHabit(name)
	if err != nil {
		return nil, err
	}
	for l.index(h.id) >= 0 {
		h.id = GenerateID(h.name)
	}
	l.habits = append(l.habits, h)
	l.order = append(l.order, h.id)
	return h, nil
}

// Insert adds an existing habit, keeping its id.
func (l *HabitList) Insert(h *Habit) error {
	if l.index(h.id) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, h.id)
	}
	l.habits = append(l.habits, h)
	l.order = append(l.order, h.id)
	return nil
}

// Remove deletes habit from the list and the order. Removing a habit that
// is not in the list does nothing.
func (l *HabitList) Remove(h *Habit) {
	if h == nil {
		return
	}
	l.RemoveByID(h.id)
}

func (l *HabitList) RemoveByID(id string) {
	i := l.index(id)
	if i < 0 {
		return
	}
	l.habits = slices.Delete(l.habits, i, i+1)
	l.order = slices.DeleteFunc(l.order, func(o string) bool { return o == id })
}

// Get looks up a habit by id.
func (l *HabitList) Get(id string) (*Habit, bool) {
	i := l.index(id)
	if i < 0 {
		return nil, false
	}
	return l.habits[i], true
}

func (l *HabitList) index(id string) int {
	return slices.IndexFunc(l.habits, func(h *Habit) bool { return h.id == id })
}

// Order returns a copy of the display order.
func (l *HabitList) Order() []string {
	return slices.Clone(l.order)
}

// SetOrder replaces the display order. Ids with no habit and repeats are dropped.
func (l *HabitList) SetOrder(ids []string) {
	order := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || l.index(id) < 0 {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	l.order = order
}

// Move places habit id at newIndex of the sorted view and rewrites the order
// to match that view.
func (l *HabitList) Move(id string, newIndex int) error {
	view := l.Habits()
	from := slices.IndexFunc(view, func(h *Habit) bool { return h.id == id })
	if from < 0 {
		return fmt.Errorf("habit not found: %s", id)
	}
	if newIndex < 0 || newIndex >= len(view) {
		return fmt.Errorf("index %d out of range [0, %d)", newIndex, len(view))
	}
	h := view[from]
	view = slices.Delete(view, from, from+1)
	view = slices.Insert(view, newIndex, h)

	order := make([]string, len(view))
	for i, v := range view {
		order[i] = v.id
	}
	l.order = order
	return nil
}

// Habits returns every habit in display order: habits named in the order
// come first by position; the rest follow, starred first, then by status,
// then in insertion order.
func (l *HabitList) Habits() []*Habit {
	pos := make(map[string]int, len(l.order))
	for i, id := range l.order {
		pos[id] = i
	}

	out := slices.Clone(l.habits)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		pa, aOrdered := pos[a.id]
		pb, bOrdered := pos[b.id]
		switch {
		case aOrdered && bOrdered:
			return pa < pb
		case aOrdered != bOrdered:
			return aOrdered
		case a.star != b.star:
			return a.star
		default:
			return a.status.rank() < b.status.rank()
		}
	})
	return out
}

// ManagementView is Habits with active habits ahead of archived ones and
// archived ahead of soft-deleted ones.
func (l *HabitList) ManagementView() []*Habit {
	out := l.Habits()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].status.rank() < out[j].status.rank()
	})
	return out
}

// ActiveHabits is Habits filtered to active status.
func (l *HabitList) ActiveHabits() []*Habit {
	return slices.DeleteFunc(l.Habits(), func(h *Habit) bool {
		return h.status != StatusActive
	})
}

// IDs returns the ids of all habits in insertion order.
func (l *HabitList) IDs() []string {
	ids := make([]string, len(l.habits))
	for i, h := range l.habits {
		ids[i] = h.id
	}
	return ids
}

// Clone returns a deep copy.
func (l *HabitList) Clone() *HabitList {
	c := &HabitList{
		habits: make([]*Habit, len(l.habits)),
		order:  slices.Clone(l.order),
	}
	for i, h := range l.habits {
		c.habits[i] = h.Clone()
	}
	return c
}

// Document is the persisted and exchanged shape of a habit list.
type Document struct {
	Habits []*Habit `json:"habits"`
	Order  []string `json:"order"`
}

// Document returns the list in its persisted shape, habits in insertion order.
func (l *HabitList) Document() Document {
	habits := l.habits
	if habits == nil {
		habits = []*Habit{}
	}
	order := l.order
	if order == nil {
		order = []string{}
	}
	return Document{Habits: habits, Order: order}
}

// FromDocument validates a decoded document into a list.
func FromDocument(doc Document) (*HabitList, error) {
	return NewHabitList(doc.Habits, doc.Order)
}

func (l *HabitList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Document())
}

func (l *HabitList) UnmarshalJSON(b []byte) error {
	var raw struct {
		Habits *[]*Habit `json:"habits"`
		Order  []string  `json:"order"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Habits == nil {
		return ErrMissingHabits
	}
	parsed, err := FromDocument(Document{Habits: *raw.Habits, Order: raw.Order})
	if err != nil {
		return err
	}
	*l = *parsed
	return nil
}
