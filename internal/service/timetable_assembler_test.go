package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/timetable-api/internal/models"
)

func TestWeeklyViewPartitionsAllActiveEntries(t *testing.T) {
	entries := []models.ScheduleEntry{
		makeEntry("mon-late", 1, 600, 690),
		makeEntry("mon-early", 1, 480, 570),
		makeEntry("wed", 3, 480, 570),
		makeEntry("sun", 7, 540, 630),
	}
	inactive := makeEntry("off", 1, 700, 790)
	inactive.IsActive = false
	entries = append(entries, inactive)

	view := WeeklyView(entries)

	total := 0
	for _, bucket := range view {
		total += len(bucket)
	}
	assert.Equal(t, 4, total)

	require.Len(t, view[1], 2)
	assert.Equal(t, "mon-early", view[1][0].ID)
	assert.Equal(t, "mon-late", view[1][1].ID)
	require.Len(t, view[3], 1)
	require.Len(t, view[7], 1)
	assert.NotContains(t, view, 2)
}

func TestWeeklyViewBreaksStartTiesByID(t *testing.T) {
	entries := []models.ScheduleEntry{
		makeEntry("bbb", 2, 480, 570),
		makeEntry("aaa", 2, 480, 570),
	}
	// Same-start entries belong to disjoint resources in practice; ordering
	// still has to be deterministic.
	entries[0].GroupID = "group-x"

	view := WeeklyView(entries)
	require.Len(t, view[2], 2)
	assert.Equal(t, "aaa", view[2][0].ID)
	assert.Equal(t, "bbb", view[2][1].ID)
}

func TestWeeklyViewEmptyInput(t *testing.T) {
	assert.Empty(t, WeeklyView(nil))
}

func TestWorkloadSumsMinutes(t *testing.T) {
	entries := []models.ScheduleEntry{
		makeEntry("m1", 1, 480, 570),
		makeEntry("m2", 1, 600, 690),
		makeEntry("f1", 5, 480, 600),
	}
	inactive := makeEntry("off", 5, 700, 790)
	inactive.IsActive = false
	entries = append(entries, inactive)

	summary := Workload(entries)

	assert.Equal(t, 180, summary.PerDayMinutes[1])
	assert.Equal(t, 120, summary.PerDayMinutes[5])
	assert.Equal(t, 300, summary.TotalWeeklyMinutes)

	// The weekly total always equals the per-day sum.
	perDayTotal := 0
	for _, minutes := range summary.PerDayMinutes {
		perDayTotal += minutes
	}
	assert.Equal(t, summary.TotalWeeklyMinutes, perDayTotal)
}

func TestWorkloadEmptyInput(t *testing.T) {
	summary := Workload(nil)
	assert.Empty(t, summary.PerDayMinutes)
	assert.Zero(t, summary.TotalWeeklyMinutes)
}
