package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Users       service.UserServiceI
	Tasks       service.TaskServiceI
	Proofs      service.ProofServiceI
	Withdrawals service.WithdrawalServiceI

	Sessions    *auth.SessionAuth
	Authz       *middleware.Authorization
	Limiter     *middleware.RateLimiter
	LoginLimit  int
	LoginWindow time.Duration
}

// Register mounts every route group on handler.
func Register(handler *gin.RouterGroup, d Deps) {
	NewAuthRoutes(handler, d.Users, d.Sessions, d.Limiter, d.LoginLimit, d.LoginWindow)
	NewUserRoutes(handler, d.Users, d.Sessions, d.Authz)
	NewReferralRoutes(handler, d.Users, d.Sessions, d.Authz)
	NewTaskRoutes(handler, d.Tasks, d.Sessions, d.Authz)
	NewProofRoutes(handler, d.Proofs, d.Sessions, d.Authz)
	NewWithdrawalRoutes(handler, d.Withdrawals, d.Sessions, d.Authz)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidReferral),
		errors.Is(err, service.ErrRootRegistrationForbidden),
		errors.Is(err, service.ErrInvalidExplicitRole),
		errors.Is(err, service.ErrNoBalance):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuthFailure):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateUser),
		errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes it with the status its kind maps to. Unexpected errors
// are reported to the client without detail.
func respondError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	log := logger.Logger()
	status := statusFor(err)
	fields = append(fields, zap.Error(err))

	if status == http.StatusInternalServerError {
		log.Error(msg, fields...)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	log.Info(msg, fields...)
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindError(c *gin.Context, err error) {
	logger.Logger().Info("failed to bind request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
