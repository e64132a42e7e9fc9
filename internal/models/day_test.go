package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Day("2024-02-29"), d)

	for _, bad := range []string{"", "2023-02-29", "2024/01/01", "2024-1-1", "yesterday"} {
		_, err := ParseDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestDayHelpers(t *testing.T) {
	d := MustParseDay("2024-03-01")

	assert.Equal(t, "2024/03", d.MonthLabel())
	assert.Equal(t, Day("2024-02-29"), d.AddDays(-1))
	assert.True(t, d.AddDays(-1).Before(d))
	assert.Equal(t, Day("2024-03-01"), DayOf(time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)))
	assert.Equal(t, []Day{"2024-02-28", "2024-02-29", "2024-03-01"}, LastDays(d, 3))
	assert.Empty(t, LastDays(d, 0))
	assert.Empty(t, LastDays(d, -1))
}

func TestDayUnmarshalValidates(t *testing.T) {
	var d Day
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-31"`), &d))
	assert.Equal(t, Day("2024-01-31"), d)

	assert.Error(t, json.Unmarshal([]byte(`"2024-01-32"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20240101`), &d))
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"":             StatusActive,
		"ACTIVE":       StatusActive,
		"archived":     StatusArchived,
		"inactive":     StatusArchived,
		"soft_deleted": StatusSoftDeleted,
		"SOFT_DELETED": StatusSoftDeleted,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseOrderPolicy(t *testing.T) {
	p, err := ParseOrderPolicy("")
	require.NoError(t, err)
	assert.Equal(t, OrderUnion, p)

	p, err = ParseOrderPolicy("Receiver")
	require.NoError(t, err)
	assert.Equal(t, OrderReceiver, p)
	assert.Equal(t, "receiver", p.String())

	_, err = ParseOrderPolicy("random")
	assert.Error(t, err)
}
