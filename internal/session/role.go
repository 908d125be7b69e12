// Package session combines the identity provider's principal with the
// backend role lookup into the one piece of state shared across screens.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/errors"
)

// Role is the account type stored by the backend.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Landing paths per role. guard.Route values use the same strings.
const (
	StudentLanding = "/student-dashboard"
	TeacherLanding = "/teacher-dashboard"
)

// ParseRole accepts any casing ("TEACHER", "Teacher", "teacher").
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STUDENT":
		return RoleStudent, nil
	case "TEACHER":
		return RoleTeacher, nil
	}
	return "", errors.New(errors.ErrCodeRoleUnknown, fmt.Sprintf("unknown account role %q", s))
}

// Is compares roles case-insensitively.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// LandingRoute is the dashboard a user of this role starts on.
func (r Role) LandingRoute() string {
	if r.Is(RoleTeacher) {
		return TeacherLanding
	}
	return StudentLanding
}

// LandingName is LandingRoute in words, for messages.
func (r Role) LandingName() string {
	if r.Is(RoleTeacher) {
		return "teacher dashboard"
	}
	return "student dashboard"
}

func (r Role) String() string { return string(r) }

// RoleLookup fetches the role of uid, authenticating with token.
type RoleLookup interface {
	LookupRole(ctx context.Context, uid, token string) (Role, error)
}

// APILookup resolves roles with GET /users/{uid}.
type APILookup struct {
	Client *api.Client
}

// LookupRole implements RoleLookup.
func (l APILookup) LookupRole(ctx context.Context, uid, token string) (Role, error) {
	user, err := l.Client.WithToken(token).GetUser(ctx, uid)
	if err != nil {
		return "", err
	}
	return ParseRole(user.Role)
}

// RoleLookupFunc adapts a function to RoleLookup.
type RoleLookupFunc func(ctx context.Context, uid, token string) (Role, error)

// LookupRole implements RoleLookup.
func (f RoleLookupFunc) LookupRole(ctx context.Context, uid, token string) (Role, error) {
	return f(ctx, uid, token)
}
