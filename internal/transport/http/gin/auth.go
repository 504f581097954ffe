package httpgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
)

const (
	ctxUserID = "user_id"
	ctxPerms  = "perms"
)

// Claims is the bearer-token payload: the subject plus a permission bitmask.
type Claims struct {
	UserID string `json:"user_id"`
	Perms  int    `json:"perms"`
	jwt.RegisteredClaims
}

// AuthRequired validates the Authorization bearer token and stores the
// caller's id and permission flags in the request context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.ParseWithClaims(
			strings.TrimSpace(raw),
			&Claims{},
			func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			},
			jwt.WithValidMethods([]string{"HS256"}),
		)
		if err != nil || !token.Valid {
			unauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			unauthorized(c, "invalid token")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			unauthorized(c, "invalid token subject")
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxPerms, domain.PermissionFlag(claims.Perms))

		c.Next()
	}
}

// RequirePermission aborts with 403 unless the caller holds at least one of
// the given flags. Must run after AuthRequired.
func RequirePermission(flags domain.PermissionFlag) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, ok := c.Get(ctxPerms)
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}

		if perms.(domain.PermissionFlag)&flags == 0 {
			c.AbortWithStatusJSON(
				http.StatusForbidden,
				ErrorResponse{Error: "insufficient permissions"},
			)
			return
		}

		c.Next()
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}

	id, ok := v.(uuid.UUID)
	return id, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
}
