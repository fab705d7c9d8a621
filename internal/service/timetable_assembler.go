package service

import (
	"sort"

	"github.com/campus-ops/timetable-api/internal/models"
)

// WeeklyView partitions active entries into per-day buckets ordered by start
// time, ties broken by id for determinism. The assembler trusts its input:
// conflict freedom is the creator's responsibility, not re-checked here.
func WeeklyView(entries []models.ScheduleEntry) models.WeeklyTimetable {
	view := models.WeeklyTimetable{}
	for _, entry := range entries {
		if !entry.IsActive {
			continue
		}
		view[entry.DayOfWeek] = append(view[entry.DayOfWeek], entry)
	}
	for day := range view {
		bucket := view[day]
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].StartMinute != bucket[j].StartMinute {
				return bucket[i].StartMinute < bucket[j].StartMinute
			}
			return bucket[i].ID < bucket[j].ID
		})
	}
	return view
}

// Workload reduces active entries to scheduled minutes per day and per week.
func Workload(entries []models.ScheduleEntry) models.WorkloadSummary {
	summary := models.WorkloadSummary{PerDayMinutes: map[int]int{}}
	for _, entry := range entries {
		if !entry.IsActive {
			continue
		}
		minutes := entry.Interval().Minutes()
		summary.PerDayMinutes[entry.DayOfWeek] += minutes
		summary.TotalWeeklyMinutes += minutes
	}
	return summary
}
