package model

import (
	"github.com/laribacloud/lariba-cloud/internal/apperr"
)

// OrgRole is a member's rank within an organization.
type OrgRole string

const (
	OrgRoleMember OrgRole = "member"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleOwner  OrgRole = "owner"
)

var orgRoleOrder = map[OrgRole]int{
	OrgRoleMember: 1,
	OrgRoleAdmin:  2,
	OrgRoleOwner:  3,
}

// Rank returns the role's position in the organization ordering; unknown
// roles rank 0 and never satisfy a check.
func (r OrgRole) Rank() int {
	return orgRoleOrder[r]
}

// ParseOrgRole validates a role string at the boundary.
func ParseOrgRole(s string) (OrgRole, error) {
	role := OrgRole(s)
	if _, ok := orgRoleOrder[role]; !ok {
		return "", apperr.Newf(apperr.KindInvalid, "unknown organization role: %q", s)
	}
	return role, nil
}

// ProjectRole is a member's rank within a project. Projects have no "owner"
// role; the organization owner overrides instead.
type ProjectRole string

const (
	ProjectRoleMember ProjectRole = "member"
	ProjectRoleAdmin  ProjectRole = "admin"
)

var projectRoleOrder = map[ProjectRole]int{
	ProjectRoleMember: 1,
	ProjectRoleAdmin:  2,
}

// Rank returns the role's position in the project ordering.
func (r ProjectRole) Rank() int {
	return projectRoleOrder[r]
}

// ParseProjectRole validates a role string at the boundary.
func ParseProjectRole(s string) (ProjectRole, error) {
	role := ProjectRole(s)
	if _, ok := projectRoleOrder[role]; !ok {
		return "", apperr.Newf(apperr.KindInvalid, "unknown project role: %q", s)
	}
	return role, nil
}

// InviteRole is the role granted by an organization invite. Invites never
// grant ownership.
type InviteRole string

const (
	InviteRoleMember InviteRole = "member"
	InviteRoleAdmin  InviteRole = "admin"
)

// ParseInviteRole validates an invite role string at the boundary.
func ParseInviteRole(s string) (InviteRole, error) {
	switch InviteRole(s) {
	case InviteRoleMember:
		return InviteRoleMember, nil
	case InviteRoleAdmin:
		return InviteRoleAdmin, nil
	default:
		return "", apperr.Newf(apperr.KindInvalid, "unknown invite role: %q", s)
	}
}

// OrgRole maps the invite role into the organization role vocabulary.
func (r InviteRole) OrgRole() OrgRole {
	if r == InviteRoleAdmin {
		return OrgRoleAdmin
	}
	return OrgRoleMember
}
