package api

import (
	"net/http"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type userRoutes struct {
	us service.UserServiceI
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, sessions *auth.SessionAuth, authz *middleware.Authorization) {
	r := &userRoutes{us: us}
	h := handler.Group("/users")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("/me", authz.RequireRole(), r.GetMe)
		h.GET("/me/wallet", authz.RequireRole(), r.GetWallet)
		h.GET("/me/dashboard", authz.RequireRole(), r.GetDashboard)
		h.GET("/me/members", authz.RequireRole(model.RoleCoadmin, model.RoleAdmin), r.GetMyMembers)
		h.POST("/me/members", authz.RequireRole(model.RoleCoadmin), r.AddMember)
		h.GET("/coadmins", authz.RequireRole(model.RoleAdmin), r.GetCoadmins)
		h.GET("/:username/members", authz.RequireRole(model.RoleAdmin), r.GetMembersOf)
		h.GET("/:username/coadmin", authz.RequireRole(), r.GetNearestCoadmin)
	}
}

func (r *userRoutes) GetMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (r *userRoutes) GetWallet(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	wallet, err := r.us.Wallet(c.Request.Context(), user.Username)
	if err != nil {
		respondError(c, "failed to get wallet", err, zap.String("username", user.Username))
		return
	}

	c.JSON(http.StatusOK, toWalletResponse(*wallet))
}

func (r *userRoutes) GetDashboard(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	d, err := r.us.Dashboard(c.Request.Context(), user.Username)
	if err != nil {
		respondError(c, "failed to get dashboard", err, zap.String("username", user.Username))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":         d.Username,
		"ref_id":           d.RefID,
		"role":             d.Role,
		"direct_referrals": d.DirectReferrals,
		"team_size":        d.TeamSize,
		"wallet":           toWalletResponse(d.Wallet),
	})
}

func (r *userRoutes) GetMyMembers(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	r.writeMembers(c, user.Username)
}

func (r *userRoutes) GetMembersOf(c *gin.Context) {
	r.writeMembers(c, c.Param("username"))
}

func (r *userRoutes) writeMembers(c *gin.Context, username string) {
	members, err := r.us.DirectMembers(c.Request.Context(), username)
	if err != nil {
		respondError(c, "failed to get members", err, zap.String("username", username))
		return
	}

	c.JSON(http.StatusOK, toUserResponses(members))
}

type AddMemberRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
}

func (r *userRoutes) AddMember(c *gin.Context) {
	log := logger.Logger()
	user, _ := middleware.CurrentUser(c)

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := r.us.AddMember(c.Request.Context(), user.Username, req.Name, req.Username)
	if err != nil {
		respondError(c, "failed to add member", err,
			zap.String("coadmin", user.Username),
			zap.String("username", req.Username))
		return
	}

	log.Info("member added", zap.String("coadmin", user.Username), zap.String("username", result.Username))

	c.JSON(http.StatusCreated, gin.H{
		"username": result.Username,
		"ref_id":   result.RefID,
		"role":     result.Role,
		"secret":   result.Secret,
	})
}

func (r *userRoutes) GetCoadmins(c *gin.Context) {
	coadmins, err := r.us.Coadmins(c.Request.Context())
	if err != nil {
		respondError(c, "failed to get coadmins", err)
		return
	}

	c.JSON(http.StatusOK, toUserResponses(coadmins))
}

func (r *userRoutes) GetNearestCoadmin(c *gin.Context) {
	username := c.Param("username")

	coadmin, err := r.us.NearestCoadmin(c.Request.Context(), username)
	if err != nil {
		respondError(c, "failed to resolve coadmin", err, zap.String("username", username))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": username,
		"coadmin":  coadmin,
	})
}
