package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/habitkeep/internal/models"
)

var errNilList = errors.New("cannot encode nil habit list")

// Encode serializes a list in its persisted shape.
func Encode(list *models.HabitList) ([]byte, error) {
	if list == nil {
		return nil, errNilList
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize habit list: %w", err)
	}
	return data, nil
}

// Decode parses a persisted payload. Anything that does not parse into a
// valid list is reported as ErrCorruptData, including JSON that lacks a
// habits array: an empty list is only ever written as "habits": [].
func Decode(data []byte) (*models.HabitList, error) {
	var shape struct {
		Habits json.RawMessage `json:"habits"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	if len(shape.Habits) == 0 || string(shape.Habits) == "null" {
		return nil, fmt.Errorf("%w: payload has no habits array", ErrCorruptData)
	}

	var list models.HabitList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	return &list, nil
}
