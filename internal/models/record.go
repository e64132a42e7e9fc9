package models

// Record is one day's completion state for a habit
type Record struct {
	Day  Day  `json:"day"`
	Done bool `json:"done"`
}
