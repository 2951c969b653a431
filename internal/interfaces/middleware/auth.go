package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
	"github.com/ynput/ayon-backend-sub000/pkg/constants"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// TokenValidator decodes bearer tokens into claims
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

func abortWith(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		constants.ResponseError: http.StatusText(status),
		constants.FieldMessage:  message,
		constants.FieldCode:     code,
		constants.FieldData:     nil,
	})
	c.Abort()
}

// RequireAuth is a middleware that validates JWT tokens
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "No authorization token provided")
			return
		}

		// format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}

		c.Set(constants.ContextKeyUser, claims.User)
		c.Request = c.Request.WithContext(logger.WithUser(c.Request.Context(), claims.User.Name))
		c.Next()
	}
}

// RequireAdmin rejects users that are not administrators
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(constants.ContextKeyUser)
		if !exists {
			abortWith(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
			return
		}
		user, _ := v.(auth.UserSession)
		if !user.IsAdmin {
			abortWith(c, http.StatusForbidden, "FORBIDDEN", "Only administrators can access this resource")
			return
		}
		c.Next()
	}
}
