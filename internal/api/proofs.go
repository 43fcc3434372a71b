package api

import (
	"io"
	"net/http"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const maxProofSize = 10 << 20

type proofRoutes struct {
	ps service.ProofServiceI
}

func NewProofRoutes(handler *gin.RouterGroup, ps service.ProofServiceI, sessions *auth.SessionAuth, authz *middleware.Authorization) {
	r := &proofRoutes{ps: ps}
	h := handler.Group("/proofs")
	h.Use(sessions.SessionMiddleware())
	{
		h.POST("", authz.RequireRole(model.RoleMember), r.Submit)
		h.GET("/mine", authz.RequireRole(model.RoleMember), r.ListMine)
		h.GET("/pending", authz.RequireRole(model.RoleCoadmin), r.ListPending)
		h.POST("/:key/decision", authz.RequireRole(model.RoleCoadmin), r.Decide)
		h.GET("/review", authz.RequireRole(model.RoleAdmin), r.ListReview)
		h.POST("/:key/confirm", authz.RequireRole(model.RoleAdmin), r.Confirm)
		h.GET("/:key/file", authz.RequireRole(), r.File)
	}
}

func (r *proofRoutes) Submit(c *gin.Context) {
	log := logger.Logger()
	user, _ := middleware.CurrentUser(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProofSize+1<<20)

	title := c.PostForm("task_title")
	header, err := c.FormFile("file")
	if err != nil || title == "" {
		log.Info("invalid proof upload", zap.String("username", user.Username), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_title and file are required"})
		return
	}
	if header.Size > maxProofSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		log.Error("failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Error("failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	key, err := r.ps.SubmitProof(c.Request.Context(), user.Username, title, model.Artifact{
		Name: header.Filename,
		Data: data,
	})
	if err != nil {
		respondError(c, "failed to submit proof", err,
			zap.String("username", user.Username),
			zap.String("task", title))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (r *proofRoutes) ListMine(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	submissions, err := r.ps.SubmissionsFor(c.Request.Context(), user.Username)
	if err != nil {
		respondError(c, "failed to list submissions", err, zap.String("username", user.Username))
		return
	}

	c.JSON(http.StatusOK, toProofResponses(submissions))
}

func (r *proofRoutes) ListPending(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	submissions, err := r.ps.PendingForCoadmin(c.Request.Context(), user.Username)
	if err != nil {
		respondError(c, "failed to list pending proofs", err, zap.String("coadmin", user.Username))
		return
	}

	c.JSON(http.StatusOK, toProofResponses(submissions))
}

type DecisionRequest struct {
	Decision model.Decision `json:"decision" binding:"required"`
}

func (r *proofRoutes) Decide(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	key := c.Param("key")

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := r.ps.CoadminDecide(c.Request.Context(), key, user.Username, req.Decision); err != nil {
		respondError(c, "failed to record decision", err,
			zap.String("coadmin", user.Username),
			zap.String("key", key))
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "decision": req.Decision})
}

func (r *proofRoutes) ListReview(c *gin.Context) {
	submissions, err := r.ps.AwaitingAdminReview(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list proofs awaiting review", err)
		return
	}

	c.JSON(http.StatusOK, toProofResponses(submissions))
}

func (r *proofRoutes) Confirm(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	key := c.Param("key")

	if err := r.ps.AdminConfirm(c.Request.Context(), key, user.Username); err != nil {
		respondError(c, "failed to confirm proof", err, zap.String("key", key))
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "status": model.ProofApprovedByAdmin})
}

func (r *proofRoutes) File(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	key := c.Param("key")

	_, data, err := r.ps.Artifact(c.Request.Context(), key, user.Username)
	if err != nil {
		respondError(c, "failed to read proof file", err,
			zap.String("viewer", user.Username),
			zap.String("key", key))
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
