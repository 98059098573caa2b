// Package navigation publishes the console's route table and side menu.
package navigation

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/resource-mgmt/console/pkg/response"
)

// Route binds one client path to the screen that renders it.
type Route struct {
	Path   string `json:"path"`
	Screen string `json:"screen"`
}

// MenuItem is one side menu entry.
type MenuItem struct {
	Path   string `json:"path"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// Menu is the GET /navigation payload.
type Menu struct {
	Path   string     `json:"path"`
	Screen string     `json:"screen,omitempty"`
	Items  []MenuItem `json:"items"`
}

// Routes is the fixed route table. Each path maps to exactly one screen.
var Routes = []Route{
	{"/", "Login"},
	{"/dashboard", "AdminDashboard"},
	{"/organization", "Organization"},
	{"/manage-clients", "ManageClients"},
	{"/clients", "ClientList"},
	{"/register-client", "RegisterClient"},
	{"/manage-projects", "ManageProjects"},
	{"/project-list", "ProjectList"},
	{"/register-project", "RegisterProject"},
	{"/manage-users", "ManageUsers"},
	{"/user-list", "UserList"},
	{"/register-user", "RegisterUser"},
	{"/roles", "Roles"},
	{"/create-role", "CreateRole"},
	{"/skills", "Skills"},
	{"/create-skill", "CreateSkill"},
	{"/manage-teams", "ManageTeams"},
	{"/create-team", "CreateTeam"},
	{"/view-activities", "ViewActivities"},
	{"/create-activity", "CreateActivity"},
	{"/time-tracking", "TimeTracking"},
	{"/reports", "Reports"},
	{"/client-reports", "ClientReports"},
	{"/profile", "Profile"},
}

var menu = []MenuItem{
	{Path: "/organization", Label: "Organization"},
	{Path: "/manage-clients", Label: "Manage Clients"},
	{Path: "/roles", Label: "Manage Roles"},
	{Path: "/manage-teams", Label: "Manage Teams"},
	{Path: "/manage-users", Label: "Manage Users"},
	{Path: "/manage-projects", Label: "Manage Projects"},
	{Path: "/view-activities", Label: "Manage Activities"},
	{Path: "/skills", Label: "Manage Skills"},
	{Path: "/time-tracking", Label: "Time Tracking"},
	{Path: "/reports", Label: "Reports"},
	{Path: "/profile", Label: "Profile"},
}

// Resolve returns the screen for path. Trailing slashes are ignored.
func Resolve(path string) (string, bool) {
	path = normalize(path)
	for _, r := range Routes {
		if r.Path == path {
			return r.Screen, true
		}
	}
	return "", false
}

// Build returns the side menu with the entry matching path flagged active.
func Build(path string) Menu {
	path = normalize(path)
	items := make([]MenuItem, len(menu))
	copy(items, menu)
	for i := range items {
		items[i].Active = items[i].Path == path
	}
	screen, _ := Resolve(path)
	return Menu{Path: path, Screen: screen, Items: items}
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// Handle serves GET /navigation?path=.
func Handle(c *gin.Context) {
	path := c.Query("path")
	if path != "" {
		if _, ok := Resolve(path); !ok {
			response.NotFound(c, "unknown path "+path)
			return
		}
	}
	response.OK(c, Build(path))
}

// RoutesHandler serves GET /navigation/routes.
func RoutesHandler(c *gin.Context) {
	response.OK(c, Routes)
}
