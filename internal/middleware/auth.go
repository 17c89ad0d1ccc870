package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthGuard validates the bearer token and additionally requires one of the
// given roles when any are listed.
func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := parseIdentity(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "unauthorized",
			})
			return
		}

		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if ident.Role == r {
					match = true
					break
				}
			}
			if !match {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"status":  "error",
					"message": "forbidden",
				})
				return
			}
		}

		c.Set("userId", ident.UserID)
		c.Set("email", ident.Email)
		c.Set("role", ident.Role)
		c.Next()
	}
}

func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, "admin")
}
