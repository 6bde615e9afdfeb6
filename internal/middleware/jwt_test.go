package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-reg-api/internal/models"
	"github.com/noah-isme/course-reg-api/internal/service"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func buildProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, nil, nil, service.AuthConfig{Secret: testSecret, Expiration: time.Hour})

	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}

	router := gin.New()
	protected := router.Group("")
	protected.Use(JWT(auth))
	protected.POST("/courses", RequirePermission(models.PermissionManageCatalog), ok)
	protected.GET("/roster-export", RequirePermission(models.PermissionExportRoster), ok)
	protected.POST("/enrollments", RequirePermission(models.PermissionEnrollSelf, models.PermissionEnrollAny), ok)
	return router
}

func performRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestJWTMiddleware(t *testing.T) {
	router := buildProtectedRouter()

	t.Run("missing token", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/courses", "")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/courses", nil)
		req.Header.Set("Authorization", "Token abc")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/courses", "garbage")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("valid admin", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/courses", signToken(t, "a1", models.RoleAdmin))
		require.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestRequirePermission(t *testing.T) {
	router := buildProtectedRouter()

	t.Run("student forbidden on catalog mutation", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/courses", signToken(t, "s1", models.RoleStudent))
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("instructor forbidden on catalog mutation", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/courses", signToken(t, "i1", models.RoleInstructor))
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("instructor allowed on roster export", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/roster-export", signToken(t, "i1", models.RoleInstructor))
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("student forbidden on roster export", func(t *testing.T) {
		resp := performRequest(router, http.MethodGet, "/roster-export", signToken(t, "s1", models.RoleStudent))
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("student allowed to enroll", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/enrollments", signToken(t, "s1", models.RoleStudent))
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("admin allowed to enroll via any-of", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/enrollments", signToken(t, "a1", models.RoleAdmin))
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("instructor forbidden to enroll", func(t *testing.T) {
		resp := performRequest(router, http.MethodPost, "/enrollments", signToken(t, "i1", models.RoleInstructor))
		require.Equal(t, http.StatusForbidden, resp.Code)
	})
}
