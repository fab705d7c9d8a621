package models

import "time"

// ScheduleEntry is a recurring (or date-pinned) lesson assignment for a
// (group, subject, teacher, classroom) tuple.
type ScheduleEntry struct {
	ID          string      `db:"id" json:"id"`
	GroupID     string      `db:"group_id" json:"group_id"`
	SubjectID   string      `db:"subject_id" json:"subject_id"`
	TeacherID   string      `db:"teacher_id" json:"teacher_id"`
	ClassroomID string      `db:"classroom_id" json:"classroom_id"`
	DayOfWeek   int         `db:"day_of_week" json:"day_of_week"`
	StartMinute MinuteOfDay `db:"start_minute" json:"start_time"`
	EndMinute   MinuteOfDay `db:"end_minute" json:"end_time"`
	// SpecificDate pins the entry to one calendar date instead of a weekly recurrence.
	SpecificDate *time.Time `db:"specific_date" json:"specific_date,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	Notes        string     `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

// Interval returns the entry's time-of-day range.
func (e ScheduleEntry) Interval() TimeInterval {
	return TimeInterval{Start: e.StartMinute, End: e.EndMinute}
}

// Recurring reports whether the entry repeats every week.
func (e ScheduleEntry) Recurring() bool {
	return e.SpecificDate == nil
}

// EntryFilter describes query parameters for listing schedule entries.
// Zero values mean "no filter" for the corresponding column.
type EntryFilter struct {
	GroupID     string
	TeacherID   string
	ClassroomID string
	SubjectID   string
	DayOfWeek   int
	// Date restricts to entries valid on a concrete calendar date:
	// recurring entries plus entries pinned to that date.
	Date      *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination carries list metadata in API responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
