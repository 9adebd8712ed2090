package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"projectboard/internal/auth"
	"projectboard/internal/domain"
	"projectboard/internal/service"
)

// Redirect targets used by the surrounding web surface. Forbidden and
// not-found share rootPath so a non-owner never learns whether a project
// exists.
const (
	rootPath   = "/"
	signInPath = "/users/sign_in"
)

const dueOnLayout = "2006-01-02"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	projects  service.ProjectService
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewHandler(users service.UserService, projects service.ProjectService, jwtSecret string, tokenTTL time.Duration) *Handler {
	return &Handler{
		users:     users,
		projects:  projects,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, logger *logrus.Logger) {
	router.Use(corsMiddleware())
	router.Use(requestLogger(logger))
	router.Use(h.identify())

	router.POST("/users", h.signUp)
	router.POST("/users/sign_in", h.signIn)
	router.DELETE("/users/sign_out", h.signOut)

	projects := router.Group("/projects")
	{
		projects.GET("", h.listProjects)
		projects.POST("", h.createProject)
		projects.GET("/:id", h.getProject)
		projects.PATCH("/:id", h.updateProject)
		projects.DELETE("/:id", h.deleteProject)
		projects.PATCH("/:id/complete", h.completeProject)
		projects.POST("/:id/notes", h.addNotes)
	}

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

type signUpRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DueOn       string `json:"due_on"`
}

type addNotesRequest struct {
	Messages []string `json:"messages" binding:"required"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	setFlash(c, "flash_notice", "Welcome! You have signed up successfully.")
	c.Redirect(http.StatusFound, rootPath)
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, rootPath)
}

func (h *Handler) signOut(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, rootPath)
}

func (h *Handler) listProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context(), actorID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}

	now := time.Now()
	resp := make([]ProjectResponse, len(projects))
	for i := range projects {
		resp[i] = projectToResponse(projects[i], now)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := projectInput(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.Create(c.Request.Context(), actorID(c), input)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, projectPath(project.ID))
}

func (h *Handler) getProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	project, err := h.projects.Get(c.Request.Context(), actorID(c), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, projectToResponse(*project, time.Now()))
}

func (h *Handler) updateProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := projectInput(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.Update(c.Request.Context(), actorID(c), id, input)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, projectPath(project.ID))
}

func (h *Handler) deleteProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), actorID(c), id); err != nil {
		h.renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/projects")
}

func (h *Handler) completeProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	project, err := h.projects.Complete(c.Request.Context(), actorID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrCompletionFailed) {
			// non-fatal: back to the project page with a warning
			setFlash(c, "flash_alert", domain.CompletionFailedMessage)
			c.Redirect(http.StatusFound, projectPath(id))
			return
		}
		h.renderError(c, err)
		return
	}

	c.Redirect(http.StatusFound, projectPath(project.ID))
}

func (h *Handler) addNotes(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req addNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notes, err := h.projects.AddNotes(c.Request.Context(), actorID(c), id, req.Messages)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := make([]NoteResponse, len(notes))
	for i := range notes {
		resp[i] = noteToResponse(notes[i])
	}
	c.JSON(http.StatusCreated, resp)
}

// renderError translates the domain error taxonomy into the response the
// web surface expects. Unauthenticated and forbidden are redirects, never
// raw errors; validation failures re-render inline.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		c.Redirect(http.StatusFound, signInPath)
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotFound):
		c.Redirect(http.StatusFound, rootPath)
	default:
		if verr, ok := domain.AsValidationError(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.Fields})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) startSession(c *gin.Context, userID int64) error {
	token, err := auth.GenerateToken(userID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		return err
	}
	c.SetCookie(sessionCookie, token, int(h.tokenTTL.Seconds()), "/", "", false, true)
	return nil
}

func setFlash(c *gin.Context, name, message string) {
	c.SetCookie(name, message, 60, "/", "", false, false)
}

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return 0, false
	}
	return id, true
}

func projectPath(id int64) string {
	return "/projects/" + strconv.FormatInt(id, 10)
}

func projectInput(req projectRequest) (service.ProjectInput, error) {
	input := service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.DueOn != "" {
		dueOn, err := time.Parse(dueOnLayout, req.DueOn)
		if err != nil {
			return service.ProjectInput{}, errors.New("invalid due_on, expected YYYY-MM-DD")
		}
		input.DueOn = dueOn
	}
	return input, nil
}

type ProjectResponse struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	DueOn       string         `json:"due_on"`
	Completed   bool           `json:"completed"`
	CompletedAt *string        `json:"completed_at,omitempty"`
	Late        bool           `json:"late"`
	Notes       []NoteResponse `json:"notes"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type NoteResponse struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

func projectToResponse(project domain.Project, now time.Time) ProjectResponse {
	resp := ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		DueOn:       project.DueOn.Format(dueOnLayout),
		Completed:   project.Completed(),
		Late:        project.IsLate(now),
		Notes:       make([]NoteResponse, len(project.Notes)),
		CreatedAt:   project.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   project.UpdatedAt.Format(time.RFC3339),
	}
	if project.CompletedAt != nil {
		v := project.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	for i := range project.Notes {
		resp.Notes[i] = noteToResponse(project.Notes[i])
	}
	return resp
}

func noteToResponse(note domain.Note) NoteResponse {
	return NoteResponse{
		ID:        note.ID,
		ProjectID: note.ProjectID,
		Message:   note.Message,
		CreatedAt: note.CreatedAt.Format(time.RFC3339),
	}
}
