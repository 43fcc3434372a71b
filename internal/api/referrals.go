package api

import (
	"net/http"
	"strconv"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type referralRoutes struct {
	us service.UserServiceI
}

func NewReferralRoutes(handler *gin.RouterGroup, us service.UserServiceI, sessions *auth.SessionAuth, authz *middleware.Authorization) {
	r := &referralRoutes{us: us}
	h := handler.Group("/referrals")
	h.Use(sessions.SessionMiddleware())
	{
		h.GET("/tree", authz.RequireRole(model.RoleAdmin), r.GetTree)
		h.GET("/:ref_id/team", authz.RequireRole(), r.GetTeamSize)
	}
}

// GetTeamSize reports the team below ref_id. Non-admins may only read their own team.
func (r *referralRoutes) GetTeamSize(c *gin.Context) {
	log := logger.Logger()
	user, _ := middleware.CurrentUser(c)
	refID := c.Param("ref_id")

	if user.Role != model.RoleAdmin && refID != user.RefID {
		log.Info("team size of another user requested",
			zap.String("username", user.Username),
			zap.String("ref_id", refID))
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
		return
	}

	depth := service.MaxReferralDepth
	if v := c.Query("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 || d > service.MaxReferralDepth {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid depth"})
			return
		}
		depth = d
	}

	size, err := r.us.TeamSize(c.Request.Context(), refID, depth)
	if err != nil {
		respondError(c, "failed to get team size", err, zap.String("ref_id", refID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ref_id":    refID,
		"depth":     depth,
		"team_size": size,
	})
}

func (r *referralRoutes) GetTree(c *gin.Context) {
	root := c.Query("root")

	tree, err := r.us.Tree(c.Request.Context(), root)
	if err != nil {
		respondError(c, "failed to export tree", err, zap.String("root", root))
		return
	}

	c.JSON(http.StatusOK, tree)
}
