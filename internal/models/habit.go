package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Habit is a tracked activity. Identity is the id alone: the name may change
// and repeat across habits.
type Habit struct {
	id      string
	name    string
	star    bool
	status  Status
	records []Record // sorted by day, at most one per day
}

// NewHabit validates name and returns an active, unstarred habit with a fresh id.
func NewHabit(name string) (*Habit, error) {
	valid, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	return &Habit{
		id:     GenerateID(valid),
		name:   valid,
		status: StatusActive,
	}, nil
}

// RestoreHabit rebuilds a habit from persisted fields. Records are
// deduplicated by day; a day that is done in any duplicate stays done.
func RestoreHabit(id, name string, star bool, status Status, records []Record) (*Habit, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("habit %q has no id", name)
	}
	valid, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = StatusActive
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	h := &Habit{id: id, name: valid, star: star, status: status}
	for _, r := range records {
		if !r.Day.IsValid() {
			return nil, fmt.Errorf("habit %s: %w %q", id, ErrInvalidDay, r.Day)
		}
		h.tickUnion(r.Day, r.Done)
	}
	return h, nil
}

func (h *Habit) ID() string     { return h.id }
func (h *Habit) Name() string   { return h.name }
func (h *Habit) Star() bool     { return h.star }
func (h *Habit) Status() Status { return h.status }

// Records returns a copy of the records, sorted by day.
func (h *Habit) Records() []Record {
	return slices.Clone(h.records)
}

// Tick sets the done state for day, inserting a record the first time the
// day is touched.
func (h *Habit) Tick(day Day, done bool) {
	i, found := h.find(day)
	if found {
		h.records[i].Done = done
		return
	}
	h.records = slices.Insert(h.records, i, Record{Day: day, Done: done})
}

// tickUnion is Tick where an existing done=true is never cleared.
func (h *Habit) tickUnion(day Day, done bool) {
	if i, found := h.find(day); found {
		h.records[i].Done = h.records[i].Done || done
		return
	}
	h.Tick(day, done)
}

func (h *Habit) find(day Day) (int, bool) {
	return slices.BinarySearchFunc(h.records, day, func(r Record, d Day) int {
		return strings.Compare(string(r.Day), string(d))
	})
}

// IsDone reports whether day has a done record.
func (h *Habit) IsDone(day Day) bool {
	i, found := h.find(day)
	return found && h.records[i].Done
}

// TickedDays returns the sorted days marked done.
func (h *Habit) TickedDays() []Day {
	days := make([]Day, 0, len(h.records))
	for _, r := range h.records {
		if r.Done {
			days = append(days, r.Day)
		}
	}
	return days
}

func (h *Habit) Rename(name string) error {
	valid, err := ValidateName(name)
	if err != nil {
		return err
	}
	h.name = valid
	return nil
}

func (h *Habit) SetStar(star bool) {
	h.star = star
}

func (h *Habit) SetStatus(status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	h.status = status
	return nil
}

// Merge reconciles two versions of the same habit. The result is done on
// every day either side is done, and carries the receiver's name, star and
// status. Neither input is modified.
func (h *Habit) Merge(other *Habit) (*Habit, error) {
	if other == nil || h.id != other.id {
		return nil, ErrIDMismatch
	}

	days := append(h.TickedDays(), other.TickedDays()...)
	slices.Sort(days)
	days = slices.Compact(days)

	records := make([]Record, len(days))
	for i, d := range days {
		records[i] = Record{Day: d, Done: true}
	}

	return &Habit{
		id:      h.id,
		name:    h.name,
		star:    h.star,
		status:  h.status,
		records: records,
	}, nil
}

// Clone returns a deep copy.
func (h *Habit) Clone() *Habit {
	c := *h
	c.records = slices.Clone(h.records)
	return &c
}

// Equal compares identity only.
func (h *Habit) Equal(other *Habit) bool {
	return other != nil && h.id == other.id
}

func (h *Habit) String() string {
	if h.status != StatusActive {
		return fmt.Sprintf("%s<%s>(%s)", h.name, h.id, h.status.Label())
	}
	return fmt.Sprintf("%s<%s>", h.name, h.id)
}

type habitJSON struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Star    bool     `json:"star"`
	Status  Status   `json:"status,omitempty"`
	Records []Record `json:"records"`
}

func (h *Habit) MarshalJSON() ([]byte, error) {
	records := h.records
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(habitJSON{
		ID:      h.id,
		Name:    h.name,
		Star:    h.star,
		Status:  h.status,
		Records: records,
	})
}

// UnmarshalJSON accepts entries without an id (hand-written imports) and
// assigns one.
func (h *Habit) UnmarshalJSON(b []byte) error {
	var raw habitJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = GenerateID(raw.Name)
	}
	restored, err := RestoreHabit(id, raw.Name, raw.Star, raw.Status, raw.Records)
	if err != nil {
		return err
	}
	*h = *restored
	return nil
}
