package api

import (
	"net/http"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type taskRoutes struct {
	ts service.TaskServiceI
}

func NewTaskRoutes(handler *gin.RouterGroup, ts service.TaskServiceI, sessions *auth.SessionAuth, authz *middleware.Authorization) {
	r := &taskRoutes{ts: ts}
	h := handler.Group("/tasks")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("", authz.RequireRole(), r.List)
		h.POST("", authz.RequireRole(model.RoleAdmin, model.RoleCoadmin), r.Create)
		h.GET("/by/:username", authz.RequireRole(model.RoleAdmin), r.ListByCreator)
	}
}

func (r *taskRoutes) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	views, err := r.ts.ListTasksFor(c.Request.Context(), user)
	if err != nil {
		respondError(c, "failed to list tasks", err, zap.String("username", user.Username))
		return
	}

	out := make([]taskResponse, len(views))
	for i, v := range views {
		out[i] = toTaskResponse(&v.Task)
		out[i].SubmissionStatus = v.SubmissionStatus
	}

	c.JSON(http.StatusOK, out)
}

type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Payout      int64  `json:"payout" binding:"required"`
}

func (r *taskRoutes) Create(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := r.ts.CreateTask(c.Request.Context(), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Payout:      req.Payout,
		Creator:     user.Username,
	})
	if err != nil {
		respondError(c, "failed to create task", err,
			zap.String("creator", user.Username),
			zap.String("title", req.Title))
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(task))
}

func (r *taskRoutes) ListByCreator(c *gin.Context) {
	username := c.Param("username")

	tasks, err := r.ts.TasksByCreator(c.Request.Context(), username)
	if err != nil {
		respondError(c, "failed to list tasks by creator", err, zap.String("creator", username))
		return
	}

	out := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskResponse(t)
	}

	c.JSON(http.StatusOK, out)
}
