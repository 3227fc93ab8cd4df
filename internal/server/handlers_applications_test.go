package server

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appPath(id uuid.UUID) string      { return "/v1/applications/" + id.String() }
func adminAppPath(id uuid.UUID) string { return "/v1/admin/applications/" + id.String() }

// Admin creates (student, exam) -> pending; a second create conflicts; approve;
// the agent reports running then completed; a new application is then allowed.
func TestApplicationLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	adminID, adminToken := env.admin(t)
	studentID, studentToken := env.student(t, "Student 42")
	exam := env.store.AddExam("exam-7", true)
	create := map[string]any{"user_id": studentID, "exam_id": exam.ID, "admin_notes": "priority"}

	w := env.do(t, http.MethodPost, "/v1/admin/applications", adminToken, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode[types.Application](t, w)
	assert.Equal(t, types.StatusPending, app.Status)
	require.NotNil(t, app.AdminNotes)
	assert.Equal(t, "priority", *app.AdminNotes)

	requireError(t, env.do(t, http.MethodPost, "/v1/admin/applications", adminToken, create), http.StatusConflict, "conflict")

	w = env.do(t, http.MethodPost, adminAppPath(app.ID)+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decode[types.Application](t, w)
	assert.Equal(t, types.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, adminID, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	requireError(t, env.do(t, http.MethodPost, adminAppPath(app.ID)+"/approve", adminToken, nil), http.StatusConflict, "conflict")

	w = env.do(t, http.MethodPatch, appPath(app.ID), studentToken, map[string]string{"status": "running", "session_id": "abc123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	running := decode[types.Application](t, w)
	assert.Equal(t, types.StatusRunning, running.Status)
	require.NotNil(t, running.SessionID)
	assert.Equal(t, "abc123", *running.SessionID)

	w = env.do(t, http.MethodPatch, appPath(app.ID), studentToken, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.StatusCompleted, decode[types.Application](t, w).Status)

	w = env.do(t, http.MethodPost, "/v1/admin/applications", adminToken, create)
	assert.Equal(t, http.StatusCreated, w.Code, "terminal applications do not block a new one")

	w = env.do(t, http.MethodGet, adminAppPath(app.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[types.ApplicationDetail](t, w)
	assert.Equal(t, "Student 42", detail.UserName)
	assert.Equal(t, "exam-7", detail.ExamSlug)
}

func TestSelfServiceApplications(t *testing.T) {
	env := newTestEnv(t)
	_, studentToken := env.student(t, "Student")
	open := env.store.AddExam("open", true)
	closed := env.store.AddExam("closed", false)

	w := env.do(t, http.MethodPost, "/v1/applications", studentToken, map[string]any{"exam_id": open.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode[types.Application](t, w)
	assert.Equal(t, types.StatusApproved, app.Status, "self-service applications are auto-approved")
	require.NotNil(t, app.AdminNotes)
	assert.Equal(t, orchestration.AutoApprovalNote, *app.AdminNotes)

	requireError(t, env.do(t, http.MethodPost, "/v1/applications", studentToken, map[string]any{"exam_id": open.ID}), http.StatusConflict, "conflict")
	requireError(t, env.do(t, http.MethodPost, "/v1/applications", studentToken, map[string]any{"exam_id": closed.ID}), http.StatusNotFound, "not_found")
	requireError(t, env.do(t, http.MethodPost, "/v1/applications", studentToken, map[string]any{"exam_id": uuid.New()}), http.StatusNotFound, "not_found")
	requireError(t, env.do(t, http.MethodPost, "/v1/applications", studentToken, `{}`), http.StatusBadRequest, "validation")

	list := decode[map[string]any](t, env.do(t, http.MethodGet, "/v1/applications", studentToken, nil))
	assert.EqualValues(t, 1, list["total"])
	list = decode[map[string]any](t, env.do(t, http.MethodGet, "/v1/applications?status=completed", studentToken, nil))
	assert.EqualValues(t, 0, list["total"])

	w = env.do(t, http.MethodGet, appPath(app.ID), studentToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSelfServiceOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.student(t, "Alice")
	_, bobToken := env.student(t, "Bob")
	exam := env.store.AddExam("exam", true)

	w := env.do(t, http.MethodPost, "/v1/applications", aliceToken, map[string]any{"exam_id": exam.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	app := decode[types.Application](t, w)

	body := requireError(t, env.do(t, http.MethodGet, appPath(app.ID), bobToken, nil), http.StatusNotFound, "not_found")
	assert.NotContains(t, body["message"], "belong")
	requireError(t, env.do(t, http.MethodPatch, appPath(app.ID), bobToken, map[string]string{"status": "running"}), http.StatusNotFound, "not_found")

	list := decode[map[string]any](t, env.do(t, http.MethodGet, "/v1/applications", bobToken, nil))
	assert.EqualValues(t, 0, list["total"])

	// Owners cannot write admin notes.
	requireError(t, env.do(t, http.MethodPatch, appPath(app.ID), aliceToken, `{"admin_notes": "approved by me"}`), http.StatusBadRequest, "validation")
}

func TestUpdateApplicationErrors(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.admin(t)
	studentID, _ := env.student(t, "Student")
	exam := env.store.AddExam("exam", true)

	w := env.do(t, http.MethodPost, "/v1/admin/applications", adminToken, map[string]any{"user_id": studentID, "exam_id": exam.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	app := decode[types.Application](t, w)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantKind   string
	}{
		{"unknown status", map[string]string{"status": "paused"}, http.StatusBadRequest, "validation"},
		{"skip approval", map[string]string{"status": "approved"}, http.StatusConflict, "conflict"},
		{"pending to completed", map[string]string{"status": "completed"}, http.StatusConflict, "conflict"},
		{"unknown field", `{"state": "failed"}`, http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireError(t, env.do(t, http.MethodPatch, adminAppPath(app.ID), adminToken, tt.body), tt.wantStatus, tt.wantKind)
		})
	}

	w = env.do(t, http.MethodPatch, adminAppPath(app.ID), adminToken, map[string]string{"admin_notes": "call candidate"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.StatusPending, decode[types.Application](t, w).Status)

	requireError(t, env.do(t, http.MethodPatch, adminAppPath(uuid.New()), adminToken, map[string]string{"status": "failed"}), http.StatusNotFound, "not_found")
	requireError(t, env.do(t, http.MethodPost, adminAppPath(uuid.New())+"/approve", adminToken, nil), http.StatusNotFound, "not_found")
	requireError(t, env.do(t, http.MethodPost, "/v1/admin/applications", adminToken, map[string]any{"user_id": uuid.New(), "exam_id": exam.ID}), http.StatusNotFound, "not_found")

	w = env.do(t, http.MethodDelete, adminAppPath(app.ID), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	requireError(t, env.do(t, http.MethodDelete, adminAppPath(app.ID), adminToken, nil), http.StatusNotFound, "not_found")
}

func TestAdminListApplications(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.admin(t)
	exam := env.store.AddExam("exam", true)
	for i := 0; i < 3; i++ {
		_, token := env.student(t, fmt.Sprintf("Student %d", i))
		w := env.do(t, http.MethodPost, "/v1/applications", token, map[string]any{"exam_id": exam.ID})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/v1/admin/applications?limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.ApplicationPage](t, w)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Len(t, page.Applications, 2)

	page = decode[types.ApplicationPage](t, env.do(t, http.MethodGet, "/v1/admin/applications?limit=2&offset=2", adminToken, nil))
	assert.Len(t, page.Applications, 1)

	page = decode[types.ApplicationPage](t, env.do(t, http.MethodGet, "/v1/admin/applications?limit=5000", adminToken, nil))
	assert.Equal(t, orchestration.MaxListLimit, page.Limit)

	page = decode[types.ApplicationPage](t, env.do(t, http.MethodGet, "/v1/admin/applications?status=pending", adminToken, nil))
	assert.Equal(t, 0, page.Total)

	requireError(t, env.do(t, http.MethodGet, "/v1/admin/applications?limit=ten", adminToken, nil), http.StatusBadRequest, "validation")
	requireError(t, env.do(t, http.MethodGet, "/v1/admin/applications?offset=-1", adminToken, nil), http.StatusBadRequest, "validation")
	requireError(t, env.do(t, http.MethodGet, "/v1/admin/applications?status=bogus", adminToken, nil), http.StatusBadRequest, "validation")
}

func TestConcurrentSelfServiceCreate(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.student(t, "Racer")
	exam := env.store.AddExam("race", true)

	const attempts = 8
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = env.do(t, http.MethodPost, "/v1/applications", token, map[string]any{"exam_id": exam.ID}).Code
		}()
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, env.store.ApplicationCount())
}
