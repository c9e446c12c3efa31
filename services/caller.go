package services

import "hr-review-api/models"

// Caller is the authenticated identity threaded through every engine call.
// There is no ambient session state; controllers build it from the request
// context.
type Caller struct {
	UserID int
	RoleID int
}

// IsStaff reports whether the caller is admin or hr.
func (c Caller) IsStaff() bool {
	return models.IsStaffRole(c.RoleID)
}

// IsAdmin reports whether the caller is admin.
func (c Caller) IsAdmin() bool {
	return c.RoleID == models.RoleAdmin
}
