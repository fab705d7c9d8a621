package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/timetable-api/internal/models"
	"github.com/campus-ops/timetable-api/internal/service"
	appErrors "github.com/campus-ops/timetable-api/pkg/errors"
)

type timetableViewsMock struct {
	slotsResp    []models.SlotStatus
	slotsErr     error
	slotsDay     int
	slotsDate    *time.Time
	groupView    models.WeeklyTimetable
	groupErr     error
	teacherView  models.WeeklyTimetable
	workloadResp *models.WorkloadSummary
	weekStart    *time.Time
}

func (m *timetableViewsMock) AvailableSlots(ctx context.Context, classroomID string, dayOfWeek int, date *time.Time) ([]models.SlotStatus, error) {
	m.slotsDay = dayOfWeek
	m.slotsDate = date
	if m.slotsErr != nil {
		return nil, m.slotsErr
	}
	return m.slotsResp, nil
}

func (m *timetableViewsMock) GroupTimetable(ctx context.Context, groupID string) (models.WeeklyTimetable, error) {
	if m.groupErr != nil {
		return nil, m.groupErr
	}
	return m.groupView, nil
}

func (m *timetableViewsMock) TeacherTimetable(ctx context.Context, teacherID string) (models.WeeklyTimetable, error) {
	return m.teacherView, nil
}

func (m *timetableViewsMock) TeacherWorkload(ctx context.Context, teacherID string, weekStart *time.Time) (*models.WorkloadSummary, error) {
	m.weekStart = weekStart
	return m.workloadResp, nil
}

type exporterMock struct {
	format string
	file   *service.ExportedFile
	err    error
}

func (m *exporterMock) RenderWeekly(view models.WeeklyTimetable, title, format string) (*service.ExportedFile, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return m.file, nil
}

func TestTimetableHandlerAvailableSlots(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &timetableViewsMock{slotsResp: []models.SlotStatus{
		{Interval: models.TimeInterval{Start: 480, End: 570}, Available: true},
		{Interval: models.TimeInterval{Start: 585, End: 675}, Available: false},
	}}
	handler := NewTimetableHandler(mock, &exporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/classrooms/room-101/slots?dayOfWeek=1&date=2025-09-01", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "room-101"}}

	handler.AvailableSlots(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mock.slotsDay)
	require.NotNil(t, mock.slotsDate)
	assert.Equal(t, "2025-09-01", mock.slotsDate.Format("2006-01-02"))

	var envelope struct {
		Data []models.SlotStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.True(t, envelope.Data[0].Available)
	assert.False(t, envelope.Data[1].Available)
}

func TestTimetableHandlerAvailableSlotsMissingDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableViewsMock{}, &exporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/classrooms/room-101/slots", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "room-101"}}

	handler.AvailableSlots(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerAvailableSlotsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableViewsMock{}, &exporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/classrooms/room-101/slots?dayOfWeek=1&date=01-09-2025", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "room-101"}}

	handler.AvailableSlots(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGroupTimetable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &timetableViewsMock{groupView: models.WeeklyTimetable{
		1: {{ID: "e1", StartMinute: 480, EndMinute: 570}},
	}}
	handler := NewTimetableHandler(mock, &exporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/groups/group-a/timetable", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "group-a"}}

	handler.GroupTimetable(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string][]models.ScheduleEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data["1"], 1)
	assert.Equal(t, "e1", envelope.Data["1"][0].ID)
}

func TestTimetableHandlerGroupTimetableUnknownGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &timetableViewsMock{groupErr: appErrors.Clone(appErrors.ErrNotFound, "group ghost not found")}
	handler := NewTimetableHandler(mock, &exporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/groups/ghost/timetable", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.GroupTimetable(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerTeacherWorkload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &timetableViewsMock{workloadResp: &models.WorkloadSummary{
		PerDayMinutes:      map[int]int{1: 180, 5: 120},
		TotalWeeklyMinutes: 300,
	}}
	handler := NewTimetableHandler(mock, &exporterMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/teachers/teacher-1/workload?weekStart=2025-09-01", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "teacher-1"}}

	handler.TeacherWorkload(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.weekStart)

	var envelope struct {
		Data models.WorkloadSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 300, envelope.Data.TotalWeeklyMinutes)
	assert.Equal(t, 180, envelope.Data.PerDayMinutes[1])
}

func TestTimetableHandlerExportGroupTimetable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{file: &service.ExportedFile{
		Content:     []byte("Day,Start,End\n"),
		ContentType: "text/csv",
		Filename:    "group-group-a-timetable.csv",
	}}
	handler := NewTimetableHandler(&timetableViewsMock{groupView: models.WeeklyTimetable{}}, exporter)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/groups/group-a/timetable/export?format=csv", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "group-a"}}

	handler.ExportGroupTimetable(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "group-group-a-timetable.csv")
	assert.Equal(t, "Day,Start,End\n", w.Body.String())
}

func TestTimetableHandlerExportUnsupportedFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{err: appErrors.Clone(appErrors.ErrValidation, `unsupported export format "xlsx"`)}
	handler := NewTimetableHandler(&timetableViewsMock{teacherView: models.WeeklyTimetable{}}, exporter)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/teachers/teacher-1/timetable/export?format=xlsx", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "teacher-1"}}

	handler.ExportTeacherTimetable(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xlsx", exporter.format)
}
