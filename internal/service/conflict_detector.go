package service

import (
	"fmt"

	"github.com/campus-ops/timetable-api/internal/models"
)

// FindConflicts compares a candidate entry against existing entries and
// returns one Conflict per overlapping entry per shared resource dimension.
// The full list is accumulated so callers can present every collision at
// once. excludeID skips the candidate's own row when validating an update.
//
// The scan is a naive pairwise sweep; per-day working sets are tens of
// entries at most, so pre-indexing by day and resource is not worth it here.
func FindConflicts(candidate models.ScheduleEntry, existing []models.ScheduleEntry, excludeID string) []models.Conflict {
	var conflicts []models.Conflict
	for _, entry := range existing {
		if excludeID != "" && entry.ID == excludeID {
			continue
		}
		if !entry.IsActive || entry.DayOfWeek != candidate.DayOfWeek {
			continue
		}
		if !comparableOccurrences(candidate, entry) {
			continue
		}
		if !candidate.Interval().Overlaps(entry.Interval()) {
			continue
		}

		if entry.ClassroomID == candidate.ClassroomID {
			conflicts = append(conflicts, newConflict(models.ResourceClassroom, entry, entry.ClassroomID,
				fmt.Sprintf("classroom %s is already booked %s", entry.ClassroomID, entry.Interval())))
		}
		if entry.TeacherID == candidate.TeacherID {
			conflicts = append(conflicts, newConflict(models.ResourceTeacher, entry, entry.TeacherID,
				fmt.Sprintf("teacher %s already has a lesson %s", entry.TeacherID, entry.Interval())))
		}
		if entry.GroupID == candidate.GroupID {
			conflicts = append(conflicts, newConflict(models.ResourceGroup, entry, entry.GroupID,
				fmt.Sprintf("group %s already has a lesson %s", entry.GroupID, entry.Interval())))
		}
	}
	return conflicts
}

// FindDuplicateSlot enforces the uniqueness guard on
// (group, day_of_week, start): identical-slot duplicates are rejected before
// any overlap reasoning runs. Inactive entries count too, mirroring the
// backing unique index which covers every non-deleted row.
func FindDuplicateSlot(candidate models.ScheduleEntry, existing []models.ScheduleEntry, excludeID string) *models.ScheduleEntry {
	for i, entry := range existing {
		if excludeID != "" && entry.ID == excludeID {
			continue
		}
		if entry.GroupID == candidate.GroupID &&
			entry.DayOfWeek == candidate.DayOfWeek &&
			entry.StartMinute == candidate.StartMinute {
			return &existing[i]
		}
	}
	return nil
}

// comparableOccurrences decides whether two same-weekday entries can ever
// occupy the same real-world slot. A date-pinned entry is a concrete instance
// of its weekday, so it collides with recurring entries; two pinned entries
// only collide on the same date.
func comparableOccurrences(a, b models.ScheduleEntry) bool {
	if a.Recurring() || b.Recurring() {
		return true
	}
	return a.SpecificDate.Equal(*b.SpecificDate)
}

func newConflict(kind models.ResourceKind, entry models.ScheduleEntry, resourceID, message string) models.Conflict {
	return models.Conflict{
		Kind:       kind,
		EntryID:    entry.ID,
		ResourceID: resourceID,
		DayOfWeek:  entry.DayOfWeek,
		Interval:   entry.Interval(),
		Message:    message,
	}
}
