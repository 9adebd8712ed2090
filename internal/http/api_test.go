package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectboard/internal/auth"
	"projectboard/internal/domain"
	"projectboard/internal/notify"
	"projectboard/internal/repository"
	"projectboard/internal/repository/sqlite"
	"projectboard/internal/service"
)

const testSecret = "test-secret"

type apiFixture struct {
	router   *gin.Engine
	users    service.UserService
	projects repository.ProjectRepository
	notes    repository.NoteRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixtureWith(t, nil)
}

// wrap, when set, decorates the project repository before it reaches the
// service. Used to inject persistence failures.
func newAPIFixtureWith(t *testing.T, wrap func(repository.ProjectRepository) repository.ProjectRepository) *apiFixture {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	projectRepo := sqlite.NewProjectRepository(db)
	noteRepo := sqlite.NewNoteRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, projectRepo.Init(ctx))
	require.NoError(t, noteRepo.Init(ctx))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var projects repository.ProjectRepository = projectRepo
	if wrap != nil {
		projects = wrap(projectRepo)
	}

	users := service.NewUserService(userRepo, notify.NewLogNotifier(logger))
	projectSvc := service.NewProjectService(projects, noteRepo)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(users, projectSvc, testSecret, time.Hour)
	handler.RegisterRoutes(router, logger)

	return &apiFixture{
		router:   router,
		users:    users,
		projects: projectRepo,
		notes:    noteRepo,
	}
}

func (f *apiFixture) registerUser(t *testing.T, email string) int64 {
	t.Helper()

	user, err := f.users.Register(context.Background(), service.RegisterInput{
		FirstName:            "First",
		LastName:             "User",
		Email:                email,
		Password:             "password",
		PasswordConfirmation: "password",
	})
	require.NoError(t, err)
	return user.ID
}

func (f *apiFixture) createProject(t *testing.T, ownerID int64, name string) int64 {
	t.Helper()

	id, err := f.projects.Create(context.Background(), &domain.Project{
		OwnerID: ownerID,
		Name:    name,
		DueOn:   time.Now().AddDate(0, 0, 7).UTC(),
	})
	require.NoError(t, err)
	return id
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		token, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListProjectsAsGuestRedirectsToSignIn(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/projects", nil, 0)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/users/sign_in", rec.Header().Get("Location"))
}

func TestListProjectsAsOwner(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")
	f.createProject(t, ownerID, "Project1")

	rec := f.do(t, http.MethodGet, "/projects", nil, ownerID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Project1", resp[0].Name)
	assert.False(t, resp[0].Completed)
}

func TestGetProjectAsNonOwnerRedirectsToRoot(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")
	otherID := f.registerUser(t, "other@example.com")
	projectID := f.createProject(t, ownerID, "Project1")

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", projectID), nil, otherID)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestGetMissingProjectUsesSameRedirectAsForbidden(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")

	// a non-owner probing ids cannot tell existing from missing
	rec := f.do(t, http.MethodGet, "/projects/9999", nil, ownerID)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestCreateProject(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")

	rec := f.do(t, http.MethodPost, "/projects", gin.H{
		"name":        "Project1",
		"description": "A test project",
		"due_on":      time.Now().AddDate(0, 0, 7).Format(dueOnLayout),
	}, ownerID)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/projects/")

	listed := f.do(t, http.MethodGet, "/projects", nil, ownerID)
	var resp []ProjectResponse
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Project1", resp[0].Name)
}

func TestCreateProjectValidationErrors(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")
	f.createProject(t, ownerID, "Taken")

	t.Run("blank name", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/projects", gin.H{"name": ""}, ownerID)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp struct {
			Errors map[string][]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Errors["name"], "can't be blank")
	})

	t.Run("duplicate name", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/projects", gin.H{"name": "Taken"}, ownerID)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp struct {
			Errors map[string][]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Errors["name"], "has already been taken")
	})
}

func TestCreateProjectAsGuestRedirectsToSignIn(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/projects", gin.H{"name": "Project1"}, 0)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/users/sign_in", rec.Header().Get("Location"))
}

func TestUpdateProjectValidationKeepsStoredName(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")
	projectID := f.createProject(t, ownerID, "Project1")

	rec := f.do(t, http.MethodPatch, fmt.Sprintf("/projects/%d", projectID), gin.H{"name": ""}, ownerID)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	got := f.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", projectID), nil, ownerID)
	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &resp))
	assert.Equal(t, "Project1", resp.Name)
}

func TestDeleteProjectRedirectsToList(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")
	projectID := f.createProject(t, ownerID, "Project1")

	rec := f.do(t, http.MethodDelete, fmt.Sprintf("/projects/%d", projectID), nil, ownerID)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/projects", rec.Header().Get("Location"))

	got := f.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", projectID), nil, ownerID)
	assert.Equal(t, http.StatusFound, got.Code)
}

func TestCompleteProject(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")
	projectID := f.createProject(t, ownerID, "Project1")

	rec := f.do(t, http.MethodPatch, fmt.Sprintf("/projects/%d/complete", projectID), nil, ownerID)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, fmt.Sprintf("/projects/%d", projectID), rec.Header().Get("Location"))
	assert.Empty(t, flashValue(t, rec, "flash_alert"))

	got := f.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", projectID), nil, ownerID)
	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &resp))
	assert.True(t, resp.Completed)
	assert.NotNil(t, resp.CompletedAt)
}

type brokenCompleteRepo struct {
	repository.ProjectRepository
}

func (b *brokenCompleteRepo) Complete(ctx context.Context, id int64, completedAt time.Time) error {
	return errors.New("storage fault")
}

func TestCompleteProjectFailureRedirectsWithWarning(t *testing.T) {
	f := newAPIFixtureWith(t, func(r repository.ProjectRepository) repository.ProjectRepository {
		return &brokenCompleteRepo{ProjectRepository: r}
	})
	ownerID := f.registerUser(t, "owner@example.com")
	projectID := f.createProject(t, ownerID, "Project1")

	rec := f.do(t, http.MethodPatch, fmt.Sprintf("/projects/%d/complete", projectID), nil, ownerID)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, fmt.Sprintf("/projects/%d", projectID), rec.Header().Get("Location"))
	assert.Equal(t, "Unable to complete project.", flashValue(t, rec, "flash_alert"))

	// marker stays absent
	got := f.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", projectID), nil, ownerID)
	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &resp))
	assert.False(t, resp.Completed)
}

func TestAddNotes(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")
	projectID := f.createProject(t, ownerID, "Project1")

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/projects/%d/notes", projectID), gin.H{
		"messages": []string{"first", "second"},
	}, ownerID)
	require.Equal(t, http.StatusCreated, rec.Code)

	var notes []NoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Message)

	got := f.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", projectID), nil, ownerID)
	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &resp))
	assert.Len(t, resp.Notes, 2)
}

func TestSignUpSignsInAndRedirects(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/users", gin.H{
		"first_name":            "First",
		"last_name":             "User",
		"email":                 "test@example.com",
		"password":              "password",
		"password_confirmation": "password",
	}, 0)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "Welcome! You have signed up successfully.", flashValue(t, rec, "flash_notice"))

	var session string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookie {
			session = cookie.Value
		}
	}
	require.NotEmpty(t, session)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: session})
	got := httptest.NewRecorder()
	f.router.ServeHTTP(got, req)
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestSignUpValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/users", gin.H{
		"first_name": "First",
		"last_name":  "User",
	}, 0)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors["email"], "can't be blank")
	assert.Contains(t, resp.Errors["password"], "can't be blank")
}

func TestSignInWrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.registerUser(t, "test@example.com")

	rec := f.do(t, http.MethodPost, "/users/sign_in", gin.H{
		"email":    "test@example.com",
		"password": "wrong",
	}, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignInWithBearerHeader(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := f.registerUser(t, "owner@example.com")

	token, err := auth.GenerateToken(ownerID, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func flashValue(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			value, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return value
		}
	}
	return ""
}
