package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/fleetverify-backend/internal/errors"
	"github.com/ikkim/fleetverify-backend/pkg/util"
)

// Context keys for admin information
const (
	AdminIDKey   = "admin_id"
	AdminNameKey = "admin_name"
	AdminRoleKey = "admin_role"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate validates the admin JWT (required). The token may come from the
// Authorization header or, for websocket upgrades, the token query parameter.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Authorization header must be a Bearer token")
				c.Abort()
				return
			}
			token = parts[1]
		} else {
			token = c.Query("token")
			if token == "" {
				log.Warn("Missing authorization header", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				apperrors.Unauthorized(c, "Authorization header is required")
				c.Abort()
				return
			}
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if errors.Is(err, util.ErrExpiredToken) {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Token has expired")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid or expired token")
			}
			c.Abort()
			return
		}

		c.Set(AdminIDKey, claims.AdminID)
		c.Set(AdminNameKey, claims.Name)
		c.Set(AdminRoleKey, claims.Role)

		log.Debug("Admin authenticated", map[string]interface{}{
			"admin_id": claims.AdminID,
			"role":     claims.Role,
		})

		c.Next()
	}
}

// RequireRole checks if the admin has one of roles
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, ok := GetAdminRole(c)
		if !ok {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzAdminOnly, "Admin access required")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		adminID, _ := GetAdminID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"admin_id":       adminID,
			"role":           role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		apperrors.Forbidden(c, "Insufficient permissions")
		c.Abort()
	}
}

func GetAdminID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(AdminIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func GetAdminName(c *gin.Context) (string, bool) {
	v, exists := c.Get(AdminNameKey)
	if !exists {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

func GetAdminRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(AdminRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
