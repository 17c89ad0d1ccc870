package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type identity struct {
	UserID primitive.ObjectID
	Email  string
	Role   string
}

func parseIdentity(header, secret string) (identity, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return identity{}, errors.New("missing token")
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return identity{}, errors.New("invalid token format")
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errors.New("invalid token claims")
	}

	userIDValue, ok := claims["userId"].(string)
	if !ok || strings.TrimSpace(userIDValue) == "" {
		return identity{}, errors.New("userId claim missing")
	}

	userID, err := primitive.ObjectIDFromHex(userIDValue)
	if err != nil {
		return identity{}, errors.New("invalid userId claim")
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return identity{UserID: userID, Email: email, Role: role}, nil
}

// UserAuth validates user JWT tokens and injects userId, email and role into
// the context.
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := parseIdentity(c.GetHeader("Authorization"), secret)
		if err != nil {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "unauthorized",
			})
			return
		}

		c.Set("userId", ident.UserID)
		c.Set("email", ident.Email)
		c.Set("role", ident.Role)
		c.Next()
	}
}
