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

type withdrawalRoutes struct {
	ws service.WithdrawalServiceI
}

func NewWithdrawalRoutes(handler *gin.RouterGroup, ws service.WithdrawalServiceI, sessions *auth.SessionAuth, authz *middleware.Authorization) {
	r := &withdrawalRoutes{ws: ws}
	h := handler.Group("/withdrawals")
	h.Use(sessions.SessionMiddleware())
	{
		h.POST("", authz.RequireRole(), r.Request)
		h.GET("/mine", authz.RequireRole(), r.ListMine)
		h.GET("/pending", authz.RequireRole(model.RoleAdmin), r.ListPending)
		h.GET("/processed", authz.RequireRole(model.RoleAdmin), r.ListProcessed)
		h.POST("/:id/settle", authz.RequireRole(model.RoleAdmin), r.Settle)
	}
}

type WithdrawalRequest struct {
	Destination string `json:"destination" binding:"required"`
}

func (r *withdrawalRoutes) Request(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	request, err := r.ws.RequestWithdrawal(c.Request.Context(), user.Username, req.Destination)
	if err != nil {
		respondError(c, "failed to request withdrawal", err, zap.String("username", user.Username))
		return
	}

	c.JSON(http.StatusCreated, toWithdrawalResponse(request))
}

func (r *withdrawalRoutes) ListMine(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	requests, err := r.ws.ForUser(c.Request.Context(), user.Username)
	if err != nil {
		respondError(c, "failed to list withdrawals", err, zap.String("username", user.Username))
		return
	}

	c.JSON(http.StatusOK, toWithdrawalResponses(requests))
}

func (r *withdrawalRoutes) ListPending(c *gin.Context) {
	requests, err := r.ws.Pending(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list pending withdrawals", err)
		return
	}

	c.JSON(http.StatusOK, toWithdrawalResponses(requests))
}

func (r *withdrawalRoutes) ListProcessed(c *gin.Context) {
	requests, err := r.ws.Processed(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list processed withdrawals", err)
		return
	}

	c.JSON(http.StatusOK, toWithdrawalResponses(requests))
}

type SettleRequest struct {
	Outcome model.SettleOutcome `json:"outcome" binding:"required"`
}

func (r *withdrawalRoutes) Settle(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id := c.Param("id")

	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := r.ws.Settle(c.Request.Context(), id, user.Username, req.Outcome); err != nil {
		respondError(c, "failed to settle withdrawal", err,
			zap.String("request_id", id),
			zap.String("outcome", string(req.Outcome)))
		return
	}

	c.JSON(http.StatusOK, gin.H{"request_id": id, "outcome": req.Outcome})
}
