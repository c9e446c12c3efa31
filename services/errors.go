package services

import (
	"fmt"
	"strings"
)

// Typed errors returned by the review engine. Controllers translate these to
// HTTP statuses with errors.As; anything else is a 500.

// ValidationError reports malformed input (shape or range).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports an absent Cycle/Form/Assignment/User.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// PermissionError reports a caller lacking the role or relationship to act.
type PermissionError struct {
	Msg string
}

func (e *PermissionError) Error() string { return e.Msg }

// InvalidStateError reports an illegal cycle transition.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

// CycleLockedError rejects form writes against a locked or completed cycle.
type CycleLockedError struct {
	CycleID int
	Status  string
}

func (e *CycleLockedError) Error() string {
	return fmt.Sprintf("cycle %d is %s and no longer accepts review forms", e.CycleID, e.Status)
}

// CycleNotActiveError rejects reviewer assignment against a cycle that is not
// in draft or active status.
type CycleNotActiveError struct {
	CycleID int
	Status  string
}

func (e *CycleNotActiveError) Error() string {
	return fmt.Sprintf("cycle %d is %s and does not accept reviewer assignments", e.CycleID, e.Status)
}

// AssignmentNotFoundError rejects a form write with no backing assignment.
type AssignmentNotFoundError struct {
	CycleID      int
	EmployeeID   int
	ReviewerID   int
	ReviewerType string
}

func (e *AssignmentNotFoundError) Error() string {
	return fmt.Sprintf("no %s reviewer assignment for reviewer %d on employee %d in cycle %d",
		e.ReviewerType, e.ReviewerID, e.EmployeeID, e.CycleID)
}

// IncompleteFormError rejects a submission with required fields missing. The
// field list is part of the contract.
type IncompleteFormError struct {
	Missing []string
}

func (e *IncompleteFormError) Error() string {
	return "form cannot be submitted, missing required fields: " + strings.Join(e.Missing, ", ")
}
