package models

import (
	"fmt"
	"strings"
)

// ResourceKind names one contended scheduling dimension.
type ResourceKind string

const (
	ResourceClassroom ResourceKind = "CLASSROOM"
	ResourceTeacher   ResourceKind = "TEACHER"
	ResourceGroup     ResourceKind = "GROUP"
)

// Conflict reports one existing entry colliding with a candidate on one
// resource dimension. An overlapping pair can produce several Conflicts,
// one per shared dimension.
type Conflict struct {
	Kind       ResourceKind `json:"kind"`
	EntryID    string       `json:"entry_id"`
	ResourceID string       `json:"resource_id"`
	DayOfWeek  int          `json:"day_of_week"`
	Interval   TimeInterval `json:"interval"`
	Message    string       `json:"message"`
}

// ConflictError carries the full diagnostic list for a rejected create/update.
type ConflictError struct {
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil || len(e.Conflicts) == 0 {
		return "schedule conflict"
	}
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.Message)
	}
	return fmt.Sprintf("schedule conflict: %s", strings.Join(parts, "; "))
}
