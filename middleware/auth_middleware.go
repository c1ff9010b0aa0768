package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/princinho/dashbackend/services"
)

// Context keys set by AuthMiddleware.
const (
	CtxUserID = "userID"
	CtxRole   = "role"
	CtxToken  = "token"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" for a missing or malformed header.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return authenticate(auth, false)
}

// AdminMiddleware rejects requests whose token was not issued to an admin.
func AdminMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return authenticate(auth, true)
}

func authenticate(auth *services.AuthService, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		check := auth.Authenticate
		if admin {
			check = auth.AuthorizeAdmin
		}
		sess, err := check(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			if services.CodeOf(err) == services.ErrorForbidden {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Set(CtxUserID, sess.UserID)
		c.Set(CtxRole, string(sess.Role))
		c.Set(CtxToken, sess.Token)
		c.Next()
	}
}
