package navigation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRoutes_UniquePaths(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Routes {
		require.False(t, seen[r.Path], "duplicate path %s", r.Path)
		seen[r.Path] = true
	}
}

func TestMenu_EveryItemRoutes(t *testing.T) {
	for _, m := range menu {
		_, ok := Resolve(m.Path)
		require.True(t, ok, m.Path)
	}
}

func TestResolve(t *testing.T) {
	screen, ok := Resolve("/manage-teams/")
	require.True(t, ok)
	require.Equal(t, "ManageTeams", screen)

	screen, ok = Resolve("")
	require.True(t, ok)
	require.Equal(t, "Login", screen)

	_, ok = Resolve("/nope")
	require.False(t, ok)
}

func TestBuild_FlagsOnlyActive(t *testing.T) {
	m := Build("skills")
	require.Equal(t, "/skills", m.Path)
	require.Equal(t, "Skills", m.Screen)
	active := 0
	for _, it := range m.Items {
		if it.Active {
			active++
			require.Equal(t, "Manage Skills", it.Label)
		}
	}
	require.Equal(t, 1, active)

	// Screens outside the menu flag nothing.
	for _, it := range Build("/register-client").Items {
		require.False(t, it.Active)
	}
}

func TestHandle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/navigation", Handle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/navigation?path=/reports", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data Menu `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, "Reports", env.Data.Screen)
	require.Len(t, env.Data.Items, len(menu))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/navigation?path=/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
