package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

var testSecret = []byte("test-secret")

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("user-1", "ops@rabbitloader.com", "admin", testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id: %q", claims.UserID)
	}
	if claims.Role != "admin" {
		t.Fatalf("unexpected role: %q", claims.Role)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("user-1", "ops@rabbitloader.com", "admin", testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWT(token, []byte("other-secret")); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddleware(testSecret))
	router.Use(OperatorOnlyMiddleware())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(KeyUserID)})
	})

	// No header
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}

	// Valid operator token
	token, err := GenerateJWT("user-1", "ops@rabbitloader.com", "operator", testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with operator token, got %d", w.Code)
	}

	// Non-operator role
	token, err = GenerateJWT("user-2", "user@rabbitloader.com", "viewer", testSecret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer role, got %d", w.Code)
	}
}
