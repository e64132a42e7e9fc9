package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the archival state of a habit. Any status may move to any other.
type Status string

const (
	StatusActive      Status = "active"
	StatusArchived    Status = "archived"
	StatusSoftDeleted Status = "soft_deleted"
)

// ParseStatus accepts the canonical values case-insensitively, plus the
// "inactive" and "deleted" spellings found in older exports.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return StatusActive, nil
	case "archived", "inactive":
		return StatusArchived, nil
	case "soft_deleted", "softdelete", "deleted":
		return StatusSoftDeleted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusSoftDeleted:
		return true
	}
	return false
}

// rank orders statuses for the management view.
func (s Status) rank() int {
	switch s {
	case StatusActive:
		return 0
	case StatusArchived:
		return 1
	default:
		return 2
	}
}

// Label is the upper-case form used in log output.
func (s Status) Label() string {
	return strings.ToUpper(string(s))
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: status must be a string", ErrInvalidStatus)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
