package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/timetable-api/internal/models"
	"github.com/campus-ops/timetable-api/internal/service"
	appErrors "github.com/campus-ops/timetable-api/pkg/errors"
)

type entryServiceMock struct {
	listResp     []models.ScheduleEntry
	getResp      *models.ScheduleEntry
	getErr       error
	createResp   *models.ScheduleEntry
	createErr    error
	updateResp   *models.ScheduleEntry
	updateErr    error
	deleteErr    error
	deleteHard   bool
	setActiveArg bool
	checkResp    []models.Conflict
}

func (m *entryServiceMock) List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, nil
}

func (m *entryServiceMock) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.getResp, nil
}

func (m *entryServiceMock) Create(ctx context.Context, req service.CreateEntryRequest) (*models.ScheduleEntry, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *entryServiceMock) Update(ctx context.Context, id string, req service.UpdateEntryRequest) (*models.ScheduleEntry, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.updateResp, nil
}

func (m *entryServiceMock) Delete(ctx context.Context, id string, hard bool) error {
	m.deleteHard = hard
	return m.deleteErr
}

func (m *entryServiceMock) SetActive(ctx context.Context, id string, active bool) (*models.ScheduleEntry, error) {
	m.setActiveArg = active
	entry := models.ScheduleEntry{ID: id, IsActive: active}
	return &entry, nil
}

func (m *entryServiceMock) CheckConflicts(ctx context.Context, req service.CheckConflictsRequest) ([]models.Conflict, error) {
	return m.checkResp, nil
}

func validEntryPayload() []byte {
	body, _ := json.Marshal(service.CreateEntryRequest{
		GroupID:     "group-a",
		SubjectID:   "subj-math",
		TeacherID:   "teacher-1",
		ClassroomID: "room-101",
		DayOfWeek:   1,
		StartTime:   "08:00",
		EndTime:     "09:30",
	})
	return body
}

func TestEntryHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &entryServiceMock{createResp: &models.ScheduleEntry{ID: "e1", GroupID: "group-a", StartMinute: 480, EndMinute: 570, IsActive: true}}
	handler := NewEntryHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/entries", bytes.NewReader(validEntryPayload()))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.ScheduleEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "e1", envelope.Data.ID)
	assert.Equal(t, models.MinuteOfDay(480), envelope.Data.StartMinute)
}

func TestEntryHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEntryHandler(&entryServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/entries", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntryHandlerCreateConflictCarriesList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conflicts := []models.Conflict{{
		Kind:       models.ResourceClassroom,
		EntryID:    "other",
		ResourceID: "room-101",
		DayOfWeek:  1,
		Message:    "classroom room-101 is already booked 08:00-09:30",
	}}
	domainErr := &models.ConflictError{Conflicts: conflicts}
	mock := &entryServiceMock{createErr: appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Error())}
	handler := NewEntryHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/entries", bytes.NewReader(validEntryPayload()))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
		Meta  struct {
			Conflicts []models.Conflict `json:"conflicts"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrConflict.Code, envelope.Error.Code)
	require.Len(t, envelope.Meta.Conflicts, 1)
	assert.Equal(t, models.ResourceClassroom, envelope.Meta.Conflicts[0].Kind)
}

func TestEntryHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &entryServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")}
	handler := NewEntryHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/entries/ghost", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntryHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &entryServiceMock{listResp: []models.ScheduleEntry{{ID: "e1"}, {ID: "e2"}}}
	handler := NewEntryHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/entries?groupId=group-a&dayOfWeek=1", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.ScheduleEntry `json:"data"`
		Pagination *models.Pagination     `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.TotalCount)
}

func TestEntryHandlerDeleteHardFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &entryServiceMock{}
	handler := NewEntryHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/entries/e1?hard=true", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "e1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, mock.deleteHard)
}

func TestEntryHandlerActivate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &entryServiceMock{}
	handler := NewEntryHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/entries/e1/activate", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "e1"}}

	handler.Activate(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.setActiveArg)
}

func TestEntryHandlerCheckReturnsOKWithConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &entryServiceMock{checkResp: []models.Conflict{{Kind: models.ResourceTeacher, EntryID: "other"}}}
	handler := NewEntryHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/entries/check", bytes.NewReader(validEntryPayload()))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Check(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Conflicts    []models.Conflict `json:"conflicts"`
			HasConflicts bool              `json:"has_conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.HasConflicts)
	require.Len(t, envelope.Data.Conflicts, 1)
}

func TestEntryHandlerCheckNoConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEntryHandler(&entryServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/entries/check", bytes.NewReader(validEntryPayload()))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Check(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Conflicts    []models.Conflict `json:"conflicts"`
			HasConflicts bool              `json:"has_conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.HasConflicts)
	assert.NotNil(t, envelope.Data.Conflicts)
	assert.Empty(t, envelope.Data.Conflicts)
}
