package middleware

import (
	"errors"
	"net/http"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const UserKey = "user"

type Authorization struct {
	userService service.UserServiceI
}

func NewAuthorization(userService service.UserServiceI) *Authorization {
	return &Authorization{
		userService: userService,
	}
}

// RequireRole loads the session user and aborts unless it holds one of roles. With no
// roles any existing user passes. The loaded user is available through CurrentUser.
func (a *Authorization) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		claims, ok := auth.SessionFrom(c)
		if !ok {
			log.Error("session not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := a.userService.GetUser(c.Request.Context(), claims.Username)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				log.Info("session for unknown user", zap.String("username", claims.Username))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			log.Error("failed to get user data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		if len(roles) > 0 && !hasRole(user.Role, roles) {
			log.Info("unauthorized access attempt",
				zap.String("username", user.Username),
				zap.String("role", string(user.Role)),
				zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

func hasRole(role model.Role, roles []model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
