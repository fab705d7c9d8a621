package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-ops/timetable-api/internal/models"
	"github.com/campus-ops/timetable-api/internal/service"
	appErrors "github.com/campus-ops/timetable-api/pkg/errors"
	"github.com/campus-ops/timetable-api/pkg/response"
)

type timetableViewService interface {
	AvailableSlots(ctx context.Context, classroomID string, dayOfWeek int, date *time.Time) ([]models.SlotStatus, error)
	GroupTimetable(ctx context.Context, groupID string) (models.WeeklyTimetable, error)
	TeacherTimetable(ctx context.Context, teacherID string) (models.WeeklyTimetable, error)
	TeacherWorkload(ctx context.Context, teacherID string, weekStart *time.Time) (*models.WorkloadSummary, error)
}

type timetableExporter interface {
	RenderWeekly(view models.WeeklyTimetable, title, format string) (*service.ExportedFile, error)
}

// TimetableHandler serves the derived read views: slot availability, weekly
// timetables, workload summaries and exports.
type TimetableHandler struct {
	views    timetableViewService
	exporter timetableExporter
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(views timetableViewService, exporter timetableExporter) *TimetableHandler {
	return &TimetableHandler{views: views, exporter: exporter}
}

// AvailableSlots godoc
// @Summary List slot availability for a classroom
// @Tags Timetables
// @Produce json
// @Param id path string true "Classroom ID"
// @Param dayOfWeek query int true "Day of week (1=Monday)"
// @Param date query string false "Specific date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/slots [get]
func (h *TimetableHandler) AvailableSlots(c *gin.Context) {
	dayOfWeek, err := strconv.Atoi(c.Query("dayOfWeek"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek query parameter is required"))
		return
	}

	date, err := parseDateParam(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	slots, err := h.views.AvailableSlots(c.Request.Context(), c.Param("id"), dayOfWeek, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// GroupTimetable godoc
// @Summary Weekly timetable for a student group
// @Tags Timetables
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/timetable [get]
func (h *TimetableHandler) GroupTimetable(c *gin.Context) {
	view, err := h.views.GroupTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// TeacherTimetable godoc
// @Summary Weekly timetable for a teacher
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	view, err := h.views.TeacherTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// TeacherWorkload godoc
// @Summary Scheduled minutes per day for a teacher
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Param weekStart query string false "Week start date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/workload [get]
func (h *TimetableHandler) TeacherWorkload(c *gin.Context) {
	weekStart, err := parseDateParam(c.Query("weekStart"))
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.views.TeacherWorkload(c.Request.Context(), c.Param("id"), weekStart)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ExportGroupTimetable godoc
// @Summary Download a group timetable as CSV or PDF
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Group ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} binary
// @Router /groups/{id}/timetable/export [get]
func (h *TimetableHandler) ExportGroupTimetable(c *gin.Context) {
	groupID := c.Param("id")
	view, err := h.views.GroupTimetable(c.Request.Context(), groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.sendExport(c, view, fmt.Sprintf("group-%s-timetable", groupID))
}

// ExportTeacherTimetable godoc
// @Summary Download a teacher timetable as CSV or PDF
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} binary
// @Router /teachers/{id}/timetable/export [get]
func (h *TimetableHandler) ExportTeacherTimetable(c *gin.Context) {
	teacherID := c.Param("id")
	view, err := h.views.TeacherTimetable(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.sendExport(c, view, fmt.Sprintf("teacher-%s-timetable", teacherID))
}

func (h *TimetableHandler) sendExport(c *gin.Context, view models.WeeklyTimetable, title string) {
	file, err := h.exporter.RenderWeekly(view, title, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return &date, nil
}
