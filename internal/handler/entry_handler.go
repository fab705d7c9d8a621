package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-ops/timetable-api/internal/models"
	"github.com/campus-ops/timetable-api/internal/service"
	appErrors "github.com/campus-ops/timetable-api/pkg/errors"
	"github.com/campus-ops/timetable-api/pkg/response"
)

type entryService interface {
	List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduleEntry, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ScheduleEntry, error)
	Create(ctx context.Context, req service.CreateEntryRequest) (*models.ScheduleEntry, error)
	Update(ctx context.Context, id string, req service.UpdateEntryRequest) (*models.ScheduleEntry, error)
	Delete(ctx context.Context, id string, hard bool) error
	SetActive(ctx context.Context, id string, active bool) (*models.ScheduleEntry, error)
	CheckConflicts(ctx context.Context, req service.CheckConflictsRequest) ([]models.Conflict, error)
}

// EntryHandler manages schedule entry endpoints.
type EntryHandler struct {
	service entryService
}

// NewEntryHandler constructs handler.
func NewEntryHandler(svc entryService) *EntryHandler {
	return &EntryHandler{service: svc}
}

// List godoc
// @Summary List schedule entries
// @Tags Entries
// @Produce json
// @Param groupId query string false "Filter by group"
// @Param teacherId query string false "Filter by teacher"
// @Param classroomId query string false "Filter by classroom"
// @Param subjectId query string false "Filter by subject"
// @Param dayOfWeek query int false "Filter by day of week (1=Monday)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	var filter models.EntryFilter
	filter.GroupID = c.Query("groupId")
	filter.TeacherID = c.Query("teacherId")
	filter.ClassroomID = c.Query("classroomId")
	filter.SubjectID = c.Query("subjectId")
	if day, err := strconv.Atoi(c.DefaultQuery("dayOfWeek", "0")); err == nil {
		filter.DayOfWeek = day
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get a schedule entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /entries/{id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create schedule entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body service.CreateEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Router /entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	var req service.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update schedule entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.UpdateEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Router /entries/{id} [put]
func (h *EntryHandler) Update(c *gin.Context) {
	var req service.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete schedule entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Param hard query bool false "Hard delete instead of soft delete"
// @Success 204
// @Router /entries/{id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	hard := c.Query("hard") == "true"
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), hard); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activate godoc
// @Summary Activate schedule entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /entries/{id}/activate [post]
func (h *EntryHandler) Activate(c *gin.Context) {
	entry, err := h.service.SetActive(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Deactivate godoc
// @Summary Deactivate schedule entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /entries/{id}/deactivate [post]
func (h *EntryHandler) Deactivate(c *gin.Context) {
	entry, err := h.service.SetActive(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Check godoc
// @Summary Check a candidate slot for conflicts
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body service.CheckConflictsRequest true "Candidate payload"
// @Success 200 {object} response.Envelope
// @Router /entries/check [post]
func (h *EntryHandler) Check(c *gin.Context) {
	var req service.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	conflicts, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	response.JSON(c, http.StatusOK, gin.H{"conflicts": conflicts, "has_conflicts": len(conflicts) > 0}, nil)
}
