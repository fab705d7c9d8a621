package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/timetable-api/internal/models"
)

var defaultGridBlocks = []string{
	"08:00-09:30",
	"09:45-11:15",
	"11:30-13:00",
	"13:45-15:15",
	"15:30-17:00",
	"17:15-18:45",
}

func TestParseSlotGrid(t *testing.T) {
	grid, err := ParseSlotGrid(defaultGridBlocks)
	require.NoError(t, err)
	require.Len(t, grid, 6)
	assert.Equal(t, "08:00-09:30", grid[0].String())
	assert.Equal(t, "17:15-18:45", grid[5].String())
}

func TestParseSlotGridRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		blocks []string
	}{
		{name: "empty", blocks: nil},
		{name: "missing separator", blocks: []string{"08:00"}},
		{name: "bad clock", blocks: []string{"08:00-25:00"}},
		{name: "out of order", blocks: []string{"09:45-11:15", "08:00-09:30"}},
		{name: "overlapping blocks", blocks: []string{"08:00-09:30", "09:00-10:30"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSlotGrid(tc.blocks)
			assert.Error(t, err)
		})
	}
}

func TestAvailabilityEmptySchedule(t *testing.T) {
	grid, err := ParseSlotGrid(defaultGridBlocks)
	require.NoError(t, err)

	statuses := grid.Availability(nil)
	require.Len(t, statuses, 6)
	for i, status := range statuses {
		assert.True(t, status.Available, "block %d should be available", i)
		assert.Equal(t, grid[i], status.Interval)
	}
}

func TestAvailabilityMarksOverlappingBlocks(t *testing.T) {
	grid, err := ParseSlotGrid(defaultGridBlocks)
	require.NoError(t, err)

	// One lesson 09:45-11:15 and one spilling across two blocks 13:00-15:00.
	entries := []models.ScheduleEntry{
		makeEntry("e1", 1, 585, 675),
		makeEntry("e2", 1, 780, 900),
	}

	statuses := grid.Availability(entries)
	require.Len(t, statuses, 6)
	assert.True(t, statuses[0].Available)
	assert.False(t, statuses[1].Available)
	assert.True(t, statuses[2].Available)
	assert.False(t, statuses[3].Available)
	assert.True(t, statuses[4].Available)
	assert.True(t, statuses[5].Available)
}

func TestAvailabilityBackToBackEntryLeavesBlockFree(t *testing.T) {
	grid, err := ParseSlotGrid([]string{"08:00-09:30", "09:30-11:00"})
	require.NoError(t, err)

	// Entry ends exactly when the second block begins.
	entries := []models.ScheduleEntry{makeEntry("e1", 1, 480, 570)}

	statuses := grid.Availability(entries)
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Available)
	assert.True(t, statuses[1].Available)
}
