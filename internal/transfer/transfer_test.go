package transfer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/models"
)

func TestParseImport(t *testing.T) {
	payload := `{
		"habits": [
			{"id": "a1", "name": "Running", "star": true, "records": [{"day": "2024-01-01", "done": true}]},
			{"name": "Read"}
		],
		"order": ["a1"]
	}`

	list, err := ParseImport(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())

	run, ok := list.Get("a1")
	require.True(t, ok)
	assert.True(t, run.Star())
	assert.Equal(t, []models.Day{"2024-01-01"}, run.TickedDays())

	views := list.Habits()
	require.Len(t, views, 2)
	assert.Equal(t, "Read", views[1].Name())
	assert.Len(t, views[1].ID(), constants.HabitIDLength, "missing ids are generated")
}

func TestParseImportDuplicateDaysTrueWins(t *testing.T) {
	payload := `{"habits": [{"id": "a1", "name": "Running", "records": [
		{"day": "2024-01-01", "done": false},
		{"day": "2024-01-01", "done": true}
	]}]}`

	list, err := ParseImportBytes([]byte(payload))
	require.NoError(t, err)
	h, _ := list.Get("a1")
	assert.Equal(t, []models.Day{"2024-01-01"}, h.TickedDays())
	assert.Len(t, h.Records(), 1)
}

func TestParseImportInvalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		cause   error
		message string
	}{
		{name: "empty", payload: "  ", message: "empty payload"},
		{name: "not json", payload: "{habits", message: "invalid import"},
		{name: "no habits", payload: `{"habits": []}`, message: "no habits found"},
		{name: "missing habits key", payload: `{}`, message: "no habits found"},
		{name: "blank name", payload: `{"habits": [{"name": "  "}]}`, cause: models.ErrInvalidName},
		{name: "duplicate ids", payload: `{"habits": [{"id": "x", "name": "A"}, {"id": "x", "name": "B"}]}`, cause: models.ErrDuplicateID},
		{name: "bad day", payload: `{"habits": [{"name": "A", "records": [{"day": "2024-13-40", "done": true}]}]}`, message: "invalid import"},
		{name: "bad status", payload: `{"habits": [{"name": "A", "status": "paused"}]}`, cause: models.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ParseImportBytes([]byte(tt.payload))
			require.Error(t, err)
			assert.Nil(t, list)
			assert.ErrorIs(t, err, ErrInvalidImport)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestParseImportTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte(" "), constants.MaxImportBytes+1)

	_, err := ParseImport(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestExportRoundTrip(t *testing.T) {
	list, err := models.NewHabitList(nil, nil)
	require.NoError(t, err)
	h, err := list.Add("Running")
	require.NoError(t, err)
	h.Tick(models.MustParseDay("2024-02-29"), true)
	h.SetStar(true)

	now := time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, list, "me@example.com", now))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "me@example.com", doc["user_email"])
	assert.Equal(t, "2024-03-01 09:30:05", doc["exported_at"])
	assert.Equal(t, []any{h.ID()}, doc["order"])

	back, err := ParseImport(&buf)
	require.NoError(t, err)
	got, ok := back.Get(h.ID())
	require.True(t, ok)
	assert.True(t, got.Star())
	assert.Equal(t, []models.Day{"2024-02-29"}, got.TickedDays())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "habits_1709285405.json", FileName(time.Unix(1709285405, 0)))
}
