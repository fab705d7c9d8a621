package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ResourceRepository answers existence and availability questions about the
// externally owned aggregates a schedule entry references. The timetable core
// never reads anything else from these tables.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new resource repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// GroupExists reports whether the student group exists.
func (r *ResourceRepository) GroupExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM groups WHERE id = $1 LIMIT 1", id)
}

// TeacherExists reports whether the teacher exists and is active.
func (r *ResourceRepository) TeacherExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM teachers WHERE id = $1 AND active = TRUE LIMIT 1", id)
}

// SubjectExists reports whether the subject exists.
func (r *ResourceRepository) SubjectExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM subjects WHERE id = $1 LIMIT 1", id)
}

// ClassroomExists reports whether the classroom exists.
func (r *ResourceRepository) ClassroomExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM classrooms WHERE id = $1 LIMIT 1", id)
}

// ClassroomAvailable reports whether the classroom is open for scheduling.
// A classroom flagged unavailable rejects new entries even without a time conflict.
func (r *ResourceRepository) ClassroomAvailable(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM classrooms WHERE id = $1 AND is_available = TRUE LIMIT 1", id)
}

func (r *ResourceRepository) exists(ctx context.Context, query, id string) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("resource lookup: %w", err)
	}
	return true, nil
}
