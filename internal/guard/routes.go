package guard

import "github.com/maykaila/memora/internal/session"

// Route names a screen.
type Route string

const (
	RouteLogin            Route = "/login"
	RouteStudentDashboard Route = session.StudentLanding
	RouteTeacherDashboard Route = session.TeacherLanding
)

// LandingRoute is the dashboard for role.
func LandingRoute(role session.Role) Route {
	return Route(role.LandingRoute())
}

// Navigator performs redirects.
type Navigator interface {
	Navigate(to Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(to Route)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(to Route) { f(to) }
