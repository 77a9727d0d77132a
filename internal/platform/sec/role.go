// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted platform management
	RoleAdmin UserRole = "admin"

	// Can author and grade exams for their cohorts
	RoleInstructor UserRole = "instructor"

	// Default role for registered learners
	RoleStudent UserRole = "student"
)

// AllRoles lists every role accepted at registration time.
var AllRoles = []UserRole{RoleStudent, RoleAdmin, RoleInstructor}

// IsStaff reports whether the role belongs to teaching or administrative staff.
// Staff accounts are not enrolled in a cohort.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleInstructor
}

// IsValid reports whether the role is one of the known roles.
func (r UserRole) IsValid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}
