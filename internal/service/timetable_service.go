package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-ops/timetable-api/internal/models"
	appErrors "github.com/campus-ops/timetable-api/pkg/errors"
)

type entryRepository interface {
	List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduleEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	FindActiveByDay(ctx context.Context, dayOfWeek int, filter models.EntryFilter) ([]models.ScheduleEntry, error)
	FindActive(ctx context.Context, filter models.EntryFilter) ([]models.ScheduleEntry, error)
	CreateGuarded(ctx context.Context, entry *models.ScheduleEntry, check func(existing []models.ScheduleEntry) error) error
	UpdateGuarded(ctx context.Context, entry *models.ScheduleEntry, check func(existing []models.ScheduleEntry) error) error
	ActivateGuarded(ctx context.Context, entry *models.ScheduleEntry, check func(existing []models.ScheduleEntry) error) error
	SetActive(ctx context.Context, id string, active bool) error
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// resourceDirectory answers existence questions about the aggregates owned by
// external collaborators. The timetable core only needs existence and the
// classroom availability flag.
type resourceDirectory interface {
	GroupExists(ctx context.Context, id string) (bool, error)
	TeacherExists(ctx context.Context, id string) (bool, error)
	SubjectExists(ctx context.Context, id string) (bool, error)
	ClassroomExists(ctx context.Context, id string) (bool, error)
	ClassroomAvailable(ctx context.Context, id string) (bool, error)
}

// CreateEntryRequest describes payload for creating a schedule entry.
type CreateEntryRequest struct {
	GroupID      string `json:"group_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	ClassroomID  string `json:"classroom_id" validate:"required"`
	DayOfWeek    int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	SpecificDate string `json:"specific_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes        string `json:"notes,omitempty"`
}

// UpdateEntryRequest rewrites an existing schedule entry.
type UpdateEntryRequest struct {
	GroupID      string `json:"group_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	ClassroomID  string `json:"classroom_id" validate:"required"`
	DayOfWeek    int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	SpecificDate string `json:"specific_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes        string `json:"notes,omitempty"`
}

// CheckConflictsRequest probes a candidate slot without persisting anything.
type CheckConflictsRequest struct {
	GroupID      string `json:"group_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	ClassroomID  string `json:"classroom_id" validate:"required"`
	DayOfWeek    int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	SpecificDate string `json:"specific_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// ExcludeID skips an entry's own row when probing an update.
	ExcludeID string `json:"exclude_id,omitempty"`
}

// TimetableService coordinates entry lifecycle, conflict detection and the
// derived weekly views.
type TimetableService struct {
	repo      entryRepository
	resources resourceDirectory
	cache     *CacheService
	metrics   *MetricsService
	grid      SlotGrid
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(repo entryRepository, resources resourceDirectory, cache *CacheService, metrics *MetricsService, grid SlotGrid, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:      repo,
		resources: resources,
		cache:     cache,
		metrics:   metrics,
		grid:      grid,
		validator: validate,
		logger:    logger,
	}
}

// List returns entries with pagination metadata.
func (s *TimetableService) List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// Get loads a single entry.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entry")
	}
	return entry, nil
}

// Create validates, conflict-checks and atomically persists a new entry.
func (s *TimetableService) Create(ctx context.Context, req CreateEntryRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry payload")
	}

	entry, err := s.buildEntry(req.GroupID, req.SubjectID, req.TeacherID, req.ClassroomID, req.DayOfWeek, req.StartTime, req.EndTime, req.SpecificDate, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.ensureResources(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.repo.CreateGuarded(ctx, &entry, func(existing []models.ScheduleEntry) error {
		return s.rejectOnConflict(entry, existing, "")
	}); err != nil {
		return nil, s.wrapWriteError(err, "failed to create schedule entry")
	}

	s.invalidateViews(ctx, entry)
	s.logger.Info("schedule entry created",
		zap.String("entry_id", entry.ID),
		zap.Int("day_of_week", entry.DayOfWeek),
		zap.String("interval", entry.Interval().String()),
	)
	return &entry, nil
}

// Update rewrites an existing entry, re-running the conflict check while
// excluding the entry's own id.
func (s *TimetableService) Update(ctx context.Context, id string, req UpdateEntryRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entry, err := s.buildEntry(req.GroupID, req.SubjectID, req.TeacherID, req.ClassroomID, req.DayOfWeek, req.StartTime, req.EndTime, req.SpecificDate, req.Notes)
	if err != nil {
		return nil, err
	}
	entry.ID = existing.ID
	entry.IsActive = existing.IsActive
	entry.CreatedAt = existing.CreatedAt
	if err := s.ensureResources(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGuarded(ctx, &entry, func(current []models.ScheduleEntry) error {
		return s.rejectOnConflict(entry, current, entry.ID)
	}); err != nil {
		return nil, s.wrapWriteError(err, "failed to update schedule entry")
	}

	// The old slot's views are stale too when resources changed.
	s.invalidateViews(ctx, *existing, entry)
	return &entry, nil
}

// Delete removes an entry. Soft deletion keeps history while excluding the
// entry from all conflict and availability computations.
func (s *TimetableService) Delete(ctx context.Context, id string, hard bool) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if hard {
		err = s.repo.HardDelete(ctx, id)
	} else {
		err = s.repo.SoftDelete(ctx, id)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule entry")
	}

	s.invalidateViews(ctx, *existing)
	return nil
}

// SetActive toggles an entry. Reactivation re-runs conflict detection under
// the guarded-write locks so a toggle racing another writer cannot silently
// reintroduce a double-booking.
func (s *TimetableService) SetActive(ctx context.Context, id string, active bool) (*models.ScheduleEntry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if active && !entry.IsActive {
		if err := s.repo.ActivateGuarded(ctx, entry, func(existing []models.ScheduleEntry) error {
			return s.rejectOnConflict(*entry, existing, entry.ID)
		}); err != nil {
			return nil, s.wrapWriteError(err, "failed to reactivate schedule entry")
		}
	} else if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle schedule entry")
	}

	entry.IsActive = active
	s.invalidateViews(ctx, *entry)
	return entry, nil
}

// CheckConflicts runs the detector for a candidate slot without persisting.
// A non-empty result is a normal answer, not an error.
func (s *TimetableService) CheckConflicts(ctx context.Context, req CheckConflictsRequest) ([]models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}

	candidate, err := s.buildEntry(req.GroupID, req.SubjectID, req.TeacherID, req.ClassroomID, req.DayOfWeek, req.StartTime, req.EndTime, req.SpecificDate, "")
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveByDay(ctx, candidate.DayOfWeek, models.EntryFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}

	conflicts := FindConflicts(candidate, existing, req.ExcludeID)
	s.metrics.RecordConflictCheck(conflicts)
	return conflicts, nil
}

// AvailableSlots maps the configured daily grid against a classroom's
// existing entries for a day of week, optionally narrowed to one date.
func (s *TimetableService) AvailableSlots(ctx context.Context, classroomID string, dayOfWeek int, date *time.Time) ([]models.SlotStatus, error) {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 1 and 7")
	}
	if err := s.ensureExists(ctx, s.resources.ClassroomExists, classroomID, "classroom"); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("timetable:slots:%s:%d:%s", classroomID, dayOfWeek, dateKey(date))
	var cached []models.SlotStatus
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	existing, err := s.repo.FindActiveByDay(ctx, dayOfWeek, models.EntryFilter{ClassroomID: classroomID, Date: date})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom entries")
	}

	statuses := s.grid.Availability(existing)
	s.cache.Set(ctx, cacheKey, statuses)
	return statuses, nil
}

// GroupTimetable assembles the weekly view for a student group.
func (s *TimetableService) GroupTimetable(ctx context.Context, groupID string) (models.WeeklyTimetable, error) {
	if err := s.ensureExists(ctx, s.resources.GroupExists, groupID, "group"); err != nil {
		return nil, err
	}
	return s.weeklyView(ctx, fmt.Sprintf("timetable:group:%s", groupID), models.EntryFilter{GroupID: groupID})
}

// TeacherTimetable assembles the weekly view for a teacher.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID string) (models.WeeklyTimetable, error) {
	if err := s.ensureExists(ctx, s.resources.TeacherExists, teacherID, "teacher"); err != nil {
		return nil, err
	}
	return s.weeklyView(ctx, fmt.Sprintf("timetable:teacher:%s", teacherID), models.EntryFilter{TeacherID: teacherID})
}

// TeacherWorkload sums a teacher's scheduled minutes per day and week. With a
// weekStart date, pinned entries outside [weekStart, weekStart+7d) are
// excluded; recurring entries always count.
func (s *TimetableService) TeacherWorkload(ctx context.Context, teacherID string, weekStart *time.Time) (*models.WorkloadSummary, error) {
	if err := s.ensureExists(ctx, s.resources.TeacherExists, teacherID, "teacher"); err != nil {
		return nil, err
	}

	entries, err := s.repo.FindActive(ctx, models.EntryFilter{TeacherID: teacherID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher entries")
	}

	if weekStart != nil {
		entries = entriesInWeek(entries, *weekStart)
	}
	summary := Workload(entries)
	return &summary, nil
}

func (s *TimetableService) weeklyView(ctx context.Context, cacheKey string, filter models.EntryFilter) (models.WeeklyTimetable, error) {
	var cached models.WeeklyTimetable
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	entries, err := s.repo.FindActive(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}

	view := WeeklyView(entries)
	s.cache.Set(ctx, cacheKey, view)
	return view, nil
}

// rejectOnConflict applies the duplicate-slot guard and the overlap detector,
// translating any hit into a conflict error carrying the full list.
func (s *TimetableService) rejectOnConflict(candidate models.ScheduleEntry, existing []models.ScheduleEntry, excludeID string) error {
	if dup := FindDuplicateSlot(candidate, existing, excludeID); dup != nil {
		conflicts := []models.Conflict{{
			Kind:       models.ResourceGroup,
			EntryID:    dup.ID,
			ResourceID: dup.GroupID,
			DayOfWeek:  dup.DayOfWeek,
			Interval:   dup.Interval(),
			Message:    fmt.Sprintf("group %s already has an entry starting at %s on this day", dup.GroupID, dup.StartMinute),
		}}
		s.metrics.RecordConflictCheck(conflicts)
		return s.conflictError(conflicts)
	}

	conflicts := FindConflicts(candidate, existing, excludeID)
	s.metrics.RecordConflictCheck(conflicts)
	if len(conflicts) > 0 {
		return s.conflictError(conflicts)
	}
	return nil
}

func (s *TimetableService) conflictError(conflicts []models.Conflict) error {
	domainErr := &models.ConflictError{Conflicts: conflicts}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Error())
}

func (s *TimetableService) wrapWriteError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// buildEntry parses and validates the time fields, producing a DRAFT entry
// ready for conflict checking.
func (s *TimetableService) buildEntry(groupID, subjectID, teacherID, classroomID string, dayOfWeek int, startTime, endTime, specificDate, notes string) (models.ScheduleEntry, error) {
	interval, err := models.ParseTimeInterval(startTime, endTime)
	if err != nil {
		return models.ScheduleEntry{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	entry := models.ScheduleEntry{
		GroupID:     groupID,
		SubjectID:   subjectID,
		TeacherID:   teacherID,
		ClassroomID: classroomID,
		DayOfWeek:   dayOfWeek,
		StartMinute: interval.Start,
		EndMinute:   interval.End,
		IsActive:    true,
		Notes:       notes,
	}

	if specificDate != "" {
		date, err := time.Parse("2006-01-02", specificDate)
		if err != nil {
			return models.ScheduleEntry{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid specific_date, expected YYYY-MM-DD")
		}
		if isoWeekday(date) != dayOfWeek {
			return models.ScheduleEntry{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("specific_date %s falls on weekday %d, not %d", specificDate, isoWeekday(date), dayOfWeek))
		}
		entry.SpecificDate = &date
	}

	return entry, nil
}

func (s *TimetableService) ensureResources(ctx context.Context, entry models.ScheduleEntry) error {
	if err := s.ensureExists(ctx, s.resources.GroupExists, entry.GroupID, "group"); err != nil {
		return err
	}
	if err := s.ensureExists(ctx, s.resources.SubjectExists, entry.SubjectID, "subject"); err != nil {
		return err
	}
	if err := s.ensureExists(ctx, s.resources.TeacherExists, entry.TeacherID, "teacher"); err != nil {
		return err
	}
	if err := s.ensureExists(ctx, s.resources.ClassroomExists, entry.ClassroomID, "classroom"); err != nil {
		return err
	}

	available, err := s.resources.ClassroomAvailable(ctx, entry.ClassroomID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom availability")
	}
	if !available {
		return appErrors.Clone(appErrors.ErrUnavailable, fmt.Sprintf("classroom %s is not available for scheduling", entry.ClassroomID))
	}
	return nil
}

func (s *TimetableService) ensureExists(ctx context.Context, lookup func(context.Context, string) (bool, error), id, kind string) error {
	exists, err := lookup(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to look up %s", kind))
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", kind, id))
	}
	return nil
}

func (s *TimetableService) invalidateViews(ctx context.Context, entries ...models.ScheduleEntry) {
	patterns := make([]string, 0, len(entries)*3)
	for _, entry := range entries {
		patterns = append(patterns,
			fmt.Sprintf("timetable:group:%s*", entry.GroupID),
			fmt.Sprintf("timetable:teacher:%s*", entry.TeacherID),
			fmt.Sprintf("timetable:slots:%s:*", entry.ClassroomID),
		)
	}
	s.cache.Invalidate(ctx, patterns...)
}

// entriesInWeek keeps recurring entries and entries pinned inside the seven
// days starting at weekStart.
func entriesInWeek(entries []models.ScheduleEntry, weekStart time.Time) []models.ScheduleEntry {
	start := weekStart.Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 7)
	filtered := make([]models.ScheduleEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Recurring() {
			filtered = append(filtered, entry)
			continue
		}
		if !entry.SpecificDate.Before(start) && entry.SpecificDate.Before(end) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// isoWeekday maps time.Weekday to the 1=Monday .. 7=Sunday convention.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func dateKey(date *time.Time) string {
	if date == nil {
		return "weekly"
	}
	return date.Format("2006-01-02")
}
