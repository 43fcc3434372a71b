package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionKey   = "session"
	bearerPrefix = "Bearer "
	defaultTTL   = 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type SessionAuth struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionAuth(secret string, ttl time.Duration) *SessionAuth {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SessionAuth{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *SessionAuth) Issue(username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *SessionAuth) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// bearerToken reads the Authorization header. Websocket clients that cannot set headers
// may pass the token as the "token" query parameter instead.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix), true
	}
	if header == "" && c.Request.Method == http.MethodGet {
		if token := c.Query("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

func (s *SessionAuth) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		token, ok := bearerToken(c)
		if !ok {
			log.Info("missing or malformed authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		claims, err := s.Parse(token)
		if err != nil {
			log.Info("invalid session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set(SessionKey, claims)
		c.Next()
	}
}

// OptionalSessionMiddleware attaches the session when a valid bearer token is present
// and lets anonymous requests through.
func (s *SessionAuth) OptionalSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := s.Parse(token); err == nil {
				c.Set(SessionKey, claims)
			}
		}
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
