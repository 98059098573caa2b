package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/resource-mgmt/console/internal/auth"
	"github.com/resource-mgmt/console/internal/models"
)

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, jti string) (bool, error) { return r[jti], nil }

func protectedRouter(svc *auth.JWTService, revoked RevocationChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWT(svc, revoked), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserEmail))
	})
	r.POST("/clients", JWT(svc, revoked), RequireManager(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func call(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	r := protectedRouter(svc, nil)

	require.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", "").Code)
	require.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", "garbage").Code)

	token, err := svc.Generate(uuid.New(), "ana@example.com", string(models.UserRoleEmployee))
	require.NoError(t, err)
	w := call(r, http.MethodGet, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ana@example.com", w.Body.String())
}

func TestJWT_Revoked(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	token, err := svc.Generate(uuid.New(), "ana@example.com", string(models.UserRoleEmployee))
	require.NoError(t, err)
	claims, err := svc.Validate(token)
	require.NoError(t, err)

	r := protectedRouter(svc, revokedSet{claims.ID: true})
	require.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/me", token).Code)
}

func TestRequireManager(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	r := protectedRouter(svc, nil)

	employee, _ := svc.Generate(uuid.New(), "e@example.com", string(models.UserRoleEmployee))
	manager, _ := svc.Generate(uuid.New(), "m@example.com", string(models.UserRoleManager))
	admin, _ := svc.Generate(uuid.New(), "a@example.com", string(models.UserRoleAdmin))

	require.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/clients", employee).Code)
	require.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/clients", manager).Code)
	require.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/clients", admin).Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:5173"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_UnlistedOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:5173/, https://console.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))
}
