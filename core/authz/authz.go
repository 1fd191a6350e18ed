// Package authz holds the rules deciding whether a caller may act on a course, quiz or submission.
//
// Ownership failures never tell "absent" apart from "not yours": both produce the same PermissionDenied error.
package authz

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/auth"
)

var (
	ErrForbidden = core.NewPermissionError("you don't have permission to perform this action")

	ErrCourseDenied     = core.NewPermissionError("Course not found or you don't have permission")
	ErrQuizDenied       = core.NewPermissionError("Quiz not found or you don't have permission")
	ErrSubmissionDenied = core.NewPermissionError("Submission not found or you don't have permission")

	ErrNotEnrolled = core.NewPermissionError("You are not enrolled in this course")
)

// IsNotEnrolled reports whether err is the NotEnrolled rule violation.
func IsNotEnrolled(err error) bool {
	return errors.Cause(err) == ErrNotEnrolled
}

// RequireRole checks the caller's role.
func RequireRole(caller auth.Identity, roles ...account.Role) error {
	for _, role := range roles {
		if caller.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// OwnsCourse reports whether teacherID is the owner of a course whose owner column is owner.
// An unassigned course is owned by nobody.
func OwnsCourse(owner null.Int, teacherID int) bool {
	return owner.Valid && int(owner.Int) == teacherID
}

// CheckCourseOwner returns denied unless teacherID owns the course.
// A lookup error is collapsed into denied when it is a not-found error.
func CheckCourseOwner(owner null.Int, teacherID int, lookupErr error, denied error) error {
	if lookupErr != nil {
		if core.IsNotFound(lookupErr) {
			return denied
		}
		return lookupErr
	}
	if !OwnsCourse(owner, teacherID) {
		return denied
	}
	return nil
}

// CheckEnrolled returns ErrNotEnrolled unless an enrollment exists.
func CheckEnrolled(enrolled bool, lookupErr error) error {
	if lookupErr != nil {
		return lookupErr
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}
