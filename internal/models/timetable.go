package models

// WeeklyTimetable maps day-of-week (1=Monday .. 7=Sunday) to the day's
// entries ordered by start time. Derived per request, never stored.
type WeeklyTimetable map[int][]ScheduleEntry

// SlotStatus marks one grid block as free or occupied.
type SlotStatus struct {
	Interval  TimeInterval `json:"interval"`
	Available bool         `json:"available"`
}

// WorkloadSummary aggregates scheduled minutes per day and per week.
type WorkloadSummary struct {
	PerDayMinutes      map[int]int `json:"per_day_minutes"`
	TotalWeeklyMinutes int         `json:"total_weekly_minutes"`
}
