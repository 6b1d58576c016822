package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/model"
	"github.com/tutorlane/server/internal/repository"
	"github.com/tutorlane/server/internal/service"
	"github.com/tutorlane/server/internal/session"
	"github.com/tutorlane/server/internal/store/storetest"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*storetest.Memory, http.Handler) {
	t.Helper()
	mem := storetest.NewMemory()
	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(mem)
	bookingRepo := repository.NewBookingRepository(mem)
	availabilityRepo := repository.NewAvailabilityRepository(mem)

	availability := service.NewAvailabilityService(availabilityRepo, userRepo, nil, logger)
	bookings := service.NewBookingService(mem, userRepo, bookingRepo, nil, logger)
	feedback := service.NewFeedbackService(bookingRepo, logger)
	profile := service.NewProfileService(userRepo, logger)
	sessions := session.NewRegistry(availability, bookings, profile)

	a := New(availability, bookings, feedback, sessions, nil, nil, logger)
	return mem, a.Router(testSecret, "*")
}

func signToken(t *testing.T, uid string, role model.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uid,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func seedAPITeacher(mem *storetest.Memory, events ...model.AvailabilityEvent) {
	mem.Seed("users", "t1", &model.User{
		ID:   "t1",
		Role: model.RoleTeacher,
		TeacherDetails: &model.TeacherDetails{
			Nickname: "Ms. Chen",
			Pricing:  5000,
		},
		Events: events,
	})
}

func seedAPIStudent(mem *storetest.Memory) {
	mem.Seed("users", "s1", &model.User{
		ID:   "s1",
		Role: model.RoleStudent,
		StudentDetails: &model.StudentDetails{
			Nickname: "Alex",
		},
	})
}

func apiEvent(day, start, end int) model.AvailabilityEvent {
	return model.AvailabilityEvent{
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: day},
		StartTime: start,
		EndTime:   end,
		Status:    model.EventStatusAvailable,
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMergeAvailabilityEndpoint(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem)
	token := signToken(t, "t1", model.RoleTeacher)

	rec := doJSON(t, handler, http.MethodPut, "/api/v1/teachers/t1/availability", token, mergeAvailabilityRequest{
		Events: []model.AvailabilityEvent{apiEvent(10, 540, 600)},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Events []model.AvailabilityEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 1)
}

func TestMergeAvailabilityForeignTeacherForbidden(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem)
	token := signToken(t, "t1", model.RoleTeacher)

	rec := doJSON(t, handler, http.MethodPut, "/api/v1/teachers/t2/availability", token, mergeAvailabilityRequest{
		Events: []model.AvailabilityEvent{apiEvent(10, 540, 600)},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMergeAvailabilityRejectsEmptyBody(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem)
	token := signToken(t, "t1", model.RoleTeacher)

	rec := doJSON(t, handler, http.MethodPut, "/api/v1/teachers/t1/availability", token, mergeAvailabilityRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateBookingEndpoint(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem, apiEvent(10, 540, 600))
	seedAPIStudent(mem)
	token := signToken(t, "s1", model.RoleStudent)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/bookings", token, createBookingRequest{
		TeacherID: "t1",
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 540,
		EndTime:   600,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Message  string          `json:"message"`
		Bookings []model.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, "s1", resp.Bookings[0].StudentID)

	// The projection saw the committed booking.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/bookings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Bookings []model.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Bookings, 1)
}

func TestCreateBookingOverlapConflict(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem, apiEvent(10, 540, 600))
	seedAPIStudent(mem)
	token := signToken(t, "s1", model.RoleStudent)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/bookings", token, createBookingRequest{
		TeacherID: "t1",
		Date:      model.DateStamp{Year: 2024, Month: 6, Day: 10},
		StartTime: 570,
		EndTime:   630,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Kind      string `json:"kind"`
		Retryable bool   `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "overlap", resp.Kind)
	assert.False(t, resp.Retryable)
}

func TestGetProfileEndpoint(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem)
	token := signToken(t, "t1", model.RoleTeacher)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State string     `json:"state"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(session.StatePopulated), resp.State)
	assert.Equal(t, "t1", resp.User.ID)
}

func TestUpdateProfileEndpoint(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem)
	token := signToken(t, "t1", model.RoleTeacher)

	nickname := "Dr. Chen"
	pricing := 6000
	rec := doJSON(t, handler, http.MethodPatch, "/api/v1/profile", token, updateProfileRequest{
		Nickname: &nickname,
		Pricing:  &pricing,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		User model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User.TeacherDetails)
	assert.Equal(t, "Dr. Chen", resp.User.TeacherDetails.Nickname)
	assert.Equal(t, 6000, resp.User.TeacherDetails.Pricing)
}

func TestFeedbackEndpointValidation(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPIStudent(mem)
	token := signToken(t, "s1", model.RoleStudent)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/bookings/b1/feedback", token, feedbackRequest{
		Rating: 9,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTeardownSessionEndpoint(t *testing.T) {
	mem, handler := newTestServer(t)
	seedAPITeacher(mem)
	token := signToken(t, "t1", model.RoleTeacher)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/session", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
