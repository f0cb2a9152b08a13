package model

import "strings"

// Role identifies which portal screens an actor may open.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
)

// AllRoles lists every role the portal recognises.
var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

// ParseRole matches a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

// RoleSet is the allowed (or restricted) role set of a route.
type RoleSet []Role

// Has reports whether r is a member of the set.
func (s RoleSet) Has(r Role) bool {
	for _, x := range s {
		if x == r {
			return true
		}
	}
	return false
}
