package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

// Roles carried in access tokens.
const (
	RoleAdmin = "admin"
	RoleTutor = "tutor"
)

const sessionKey = "session"

// Claims are the access token claims issued by the identity service.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Session is the authenticated caller of a single request.
type Session struct {
	UserID    uuid.UUID
	Role      string
	Email     string
	ExpiresAt time.Time
	ClientIP  string
}

// IsAdmin reports whether the caller holds the admin role.
func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// AuthMiddleware validates the bearer token and stores a Session on the request.
// Expired tokens are answered with SESSION_EXPIRED so clients re-authenticate once.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			common.AppErrorResponse(c, common.NewUnauthorizedError("missing bearer token"))
			c.Abort()
			return
		}

		session, err := ParseToken(token, secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				common.AppErrorResponse(c, common.NewSessionExpiredError())
			} else {
				common.AppErrorResponse(c, common.NewUnauthorizedError("invalid token"))
			}
			c.Abort()
			return
		}
		session.ClientIP = c.ClientIP()

		c.Set(sessionKey, session)
		c.Next()
	}
}

// ParseToken verifies an HS256 token and builds the Session it describes.
func ParseToken(token, secret string) (*Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}

	return &Session{
		UserID:    userID,
		Role:      claims.Role,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueToken signs an access token. Used by tooling and tests.
func IssueToken(secret string, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireRole rejects callers whose session role is not listed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			common.AppErrorResponse(c, common.NewUnauthorizedError("not authenticated"))
			c.Abort()
			return
		}
		for _, role := range roles {
			if session.Role == role {
				c.Next()
				return
			}
		}
		common.AppErrorResponse(c, common.NewForbiddenError("insufficient permissions"))
		c.Abort()
	}
}

// RequireAdmin is RequireRole(RoleAdmin).
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}

// GetSession returns the request's Session.
func GetSession(c *gin.Context) (*Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := v.(*Session)
	return session, ok
}

// GetUserID returns the authenticated user's id.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	session, ok := GetSession(c)
	if !ok {
		return uuid.Nil, errors.New("user not authenticated")
	}
	return session.UserID, nil
}
