package api

import (
	"net/http"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type authRoutes struct {
	us       service.UserServiceI
	sessions *auth.SessionAuth
}

func NewAuthRoutes(
	handler *gin.RouterGroup,
	us service.UserServiceI,
	sessions *auth.SessionAuth,
	limiter *middleware.RateLimiter,
	loginLimit int,
	loginWindow time.Duration,
) {
	r := &authRoutes{us: us, sessions: sessions}
	h := handler.Group("/auth")
	{
		h.POST("/register", sessions.OptionalSessionMiddleware(), r.Register)
		h.POST("/login", limiter.Limit(loginLimit, loginWindow), r.Login)
	}
}

type RegisterRequest struct {
	Name       string     `json:"name" binding:"required"`
	Username   string     `json:"username" binding:"required"`
	Secret     string     `json:"secret" binding:"required"`
	ReferralID string     `json:"referral_id" binding:"required"`
	Role       model.Role `json:"role"`
}

type RegisterResponse struct {
	Username string     `json:"username"`
	RefID    string     `json:"ref_id"`
	Role     model.Role `json:"role"`
}

func (r *authRoutes) Register(c *gin.Context) {
	log := logger.Logger()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	in := service.RegisterInput{
		Name:         req.Name,
		Username:     req.Username,
		Secret:       req.Secret,
		ReferralID:   req.ReferralID,
		ExplicitRole: req.Role,
	}

	if claims, ok := auth.SessionFrom(c); ok && req.Role != "" {
		caller, err := r.us.GetUser(c.Request.Context(), claims.Username)
		if err != nil {
			log.Info("session caller not found", zap.String("username", claims.Username), zap.Error(err))
		} else {
			in.Caller = caller
		}
	}

	result, err := r.us.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, "failed to register user", err,
			zap.String("username", req.Username),
			zap.String("referral_id", req.ReferralID))
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Username: result.Username,
		RefID:    result.RefID,
		Role:     result.Role,
	})
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

type LoginResponse struct {
	Token    string     `json:"token"`
	Username string     `json:"username"`
	RefID    string     `json:"ref_id"`
	Role     model.Role `json:"role"`
}

func (r *authRoutes) Login(c *gin.Context) {
	log := logger.Logger()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := r.us.Login(c.Request.Context(), req.Username, req.Secret)
	if err != nil {
		respondError(c, "login failed", err, zap.String("username", req.Username))
		return
	}

	token, err := r.sessions.Issue(user.Username, string(user.Role))
	if err != nil {
		log.Error("failed to issue session token", zap.String("username", user.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		Username: user.Username,
		RefID:    user.RefID,
		Role:     user.Role,
	})
}
