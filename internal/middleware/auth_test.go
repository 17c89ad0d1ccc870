package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func runMiddleware(handler gin.HandlerFunc, authorization string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		c.Request.Header.Set("Authorization", authorization)
	}
	handler(c)
	return c, w
}

func TestUserAuthInjectsIdentity(t *testing.T) {
	userID := primitive.NewObjectID()
	signed := signToken(t, jwt.MapClaims{
		"userId": userID.Hex(),
		"email":  "alice@example.com",
		"role":   "user",
		"exp":    time.Now().Add(time.Minute).Unix(),
	})

	c, w := runMiddleware(UserAuth(testSecret), "Bearer "+signed)

	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got status %d", w.Code)
	}
	got, ok := c.Get("userId")
	if !ok || got.(primitive.ObjectID) != userID {
		t.Fatalf("expected userId %s in context, got %v", userID.Hex(), got)
	}
	if role, _ := c.Get("role"); role != "user" {
		t.Fatalf("expected role user, got %v", role)
	}
}

func TestUserAuthRejectsMissingToken(t *testing.T) {
	_, w := runMiddleware(UserAuth(testSecret), "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestUserAuthRejectsExpiredToken(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"exp":    time.Now().Add(-time.Minute).Unix(),
	})

	_, w := runMiddleware(UserAuth(testSecret), "Bearer "+signed)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAdminAuthRejectsUserRole(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"role":   "user",
		"exp":    time.Now().Add(time.Minute).Unix(),
	})

	_, w := runMiddleware(AdminAuth(testSecret), "Bearer "+signed)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAdminAuthAcceptsAdminRole(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"role":   "admin",
		"exp":    time.Now().Add(time.Minute).Unix(),
	})

	_, w := runMiddleware(AdminAuth(testSecret), "Bearer "+signed)
	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", w.Code)
	}
}
