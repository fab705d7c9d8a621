package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campus-ops/timetable-api/internal/models"
	appErrors "github.com/campus-ops/timetable-api/pkg/errors"
)

const entryColumns = "id, group_id, subject_id, teacher_id, classroom_id, day_of_week, start_minute, end_minute, specific_date, is_active, notes, created_at, updated_at, deleted_at"

// EntryRepository provides persistence for schedule entries.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// List returns non-deleted entries with optional filtering and pagination.
func (r *EntryRepository) List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduleEntry, int, error) {
	base := "FROM schedule_entries WHERE deleted_at IS NULL"
	var conditions []string
	var args []interface{}

	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.DayOfWeek != 0 {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"day_of_week":  true,
		"start_minute": true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "day_of_week"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_minute ASC LIMIT %d OFFSET %d", entryColumns, base, sortBy, order, size, offset)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule entries: %w", err)
	}

	return entries, total, nil
}

// FindByID loads a non-deleted entry by id.
func (r *EntryRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE id = $1 AND deleted_at IS NULL", entryColumns)
	var entry models.ScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindActiveByDay returns active entries for a day of week, optionally
// narrowed by resource and calendar date. With a date filter it keeps
// recurring entries plus entries pinned to exactly that date.
func (r *EntryRepository) FindActiveByDay(ctx context.Context, dayOfWeek int, filter models.EntryFilter) ([]models.ScheduleEntry, error) {
	query, args := activeByDayQuery(dayOfWeek, filter)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("find active entries by day: %w", err)
	}
	return entries, nil
}

// FindActive returns all active entries matching the resource filter across
// the whole week, ordered by day and start time. Weekly views and workload
// summaries are assembled from this set.
func (r *EntryRepository) FindActive(ctx context.Context, filter models.EntryFilter) ([]models.ScheduleEntry, error) {
	conditions := []string{"deleted_at IS NULL", "is_active = TRUE"}
	var args []interface{}

	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}

	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE %s ORDER BY day_of_week ASC, start_minute ASC", entryColumns, strings.Join(conditions, " AND "))
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("find active entries: %w", err)
	}
	return entries, nil
}

func activeByDayQuery(dayOfWeek int, filter models.EntryFilter) (string, []interface{}) {
	conditions := []string{"deleted_at IS NULL", "is_active = TRUE", "day_of_week = $1"}
	args := []interface{}{dayOfWeek}

	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("(specific_date IS NULL OR specific_date = $%d)", len(args)+1))
		args = append(args, *filter.Date)
	}

	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE %s ORDER BY start_minute ASC", entryColumns, strings.Join(conditions, " AND "))
	return query, args
}

// CreateGuarded inserts an entry inside a transaction that serializes against
// concurrent writers touching the same (day, resource) combinations. It takes
// per-resource advisory locks, re-loads the same-day entries, runs the
// caller's conflict check and only then inserts.
func (r *EntryRepository) CreateGuarded(ctx context.Context, entry *models.ScheduleEntry, check func(existing []models.ScheduleEntry) error) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	return r.withDayLocks(ctx, entry, check, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO schedule_entries (id, group_id, subject_id, teacher_id, classroom_id, day_of_week, start_minute, end_minute, specific_date, is_active, notes, created_at, updated_at) VALUES (:id, :group_id, :subject_id, :teacher_id, :classroom_id, :day_of_week, :start_minute, :end_minute, :specific_date, :is_active, :notes, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
			return translateInsertError(err)
		}
		return nil
	})
}

// UpdateGuarded rewrites an entry under the same locking discipline as
// CreateGuarded. The conflict check is expected to exclude the entry's own id.
func (r *EntryRepository) UpdateGuarded(ctx context.Context, entry *models.ScheduleEntry, check func(existing []models.ScheduleEntry) error) error {
	entry.UpdatedAt = time.Now().UTC()

	return r.withDayLocks(ctx, entry, check, func(tx *sqlx.Tx) error {
		const query = `UPDATE schedule_entries SET group_id = :group_id, subject_id = :subject_id, teacher_id = :teacher_id, classroom_id = :classroom_id, day_of_week = :day_of_week, start_minute = :start_minute, end_minute = :end_minute, specific_date = :specific_date, is_active = :is_active, notes = :notes, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
		result, err := tx.NamedExecContext(ctx, query, entry)
		if err != nil {
			return translateInsertError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update schedule entry: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// ActivateGuarded re-enables an entry under the same locking discipline as
// the guarded writes, so the conflict re-check and the flag flip are atomic
// against concurrent writers on the same resources.
func (r *EntryRepository) ActivateGuarded(ctx context.Context, entry *models.ScheduleEntry, check func(existing []models.ScheduleEntry) error) error {
	return r.withDayLocks(ctx, entry, check, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE schedule_entries SET is_active = TRUE, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL", entry.ID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("reactivate schedule entry: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("reactivate schedule entry: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (r *EntryRepository) withDayLocks(ctx context.Context, entry *models.ScheduleEntry, check func(existing []models.ScheduleEntry) error, mutate func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin guarded write: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, key := range dayLockKeys(entry) {
		if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
	}

	if check != nil {
		query, args := sameDayQuery(entry.DayOfWeek)
		var existing []models.ScheduleEntry
		if err = tx.SelectContext(ctx, &existing, query, args...); err != nil {
			return fmt.Errorf("reload same-day entries: %w", err)
		}
		if err = check(existing); err != nil {
			return err
		}
	}

	if err = mutate(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit guarded write: %w", err)
	}
	return nil
}

// sameDayQuery loads every non-deleted entry for a day, inactive rows
// included. The unique index on (group_id, day_of_week, start_minute) covers
// inactive rows, so the in-transaction guard has to see them too or a
// deterministic duplicate would surface as a unique violation at insert time.
func sameDayQuery(dayOfWeek int) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE deleted_at IS NULL AND day_of_week = $1 ORDER BY start_minute ASC", entryColumns)
	return query, []interface{}{dayOfWeek}
}

// dayLockKeys derives one advisory-lock key per contended resource dimension.
// Keys are sorted so concurrent writers acquire them in the same order.
func dayLockKeys(entry *models.ScheduleEntry) []int64 {
	keys := []int64{
		lockKey("classroom", entry.ClassroomID, entry.DayOfWeek),
		lockKey("teacher", entry.TeacherID, entry.DayOfWeek),
		lockKey("group", entry.GroupID, entry.DayOfWeek),
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func lockKey(kind, id string, dayOfWeek int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%s:%d", kind, id, dayOfWeek)
	return int64(h.Sum64())
}

// translateInsertError maps a unique-index violation on
// (group_id, day_of_week, start_minute) to the retryable concurrency error.
// The index is a last-resort backstop behind the advisory-lock guard, so
// hitting it means a concurrent writer won the race after our check passed.
func translateInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return appErrors.Wrap(err, appErrors.ErrConcurrency.Code, appErrors.ErrConcurrency.Status, "entry slot was claimed concurrently")
	}
	return fmt.Errorf("write schedule entry: %w", err)
}

// SetActive toggles the is_active flag without touching history.
func (r *EntryRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, "UPDATE schedule_entries SET is_active = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL", id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("toggle schedule entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("toggle schedule entry: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks an entry as deleted, removing it from all conflict and
// availability computations while keeping history.
func (r *EntryRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, "UPDATE schedule_entries SET deleted_at = $2, is_active = FALSE, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL", id, now)
	if err != nil {
		return fmt.Errorf("soft delete schedule entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete schedule entry: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HardDelete removes an entry row permanently.
func (r *EntryRepository) HardDelete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schedule_entries WHERE id = $1", id); err != nil {
		return fmt.Errorf("hard delete schedule entry: %w", err)
	}
	return nil
}
