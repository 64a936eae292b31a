package service

import (
	"errors"
	"fmt"
)

var (
	// ErrPageNotFound is returned when no page has the requested title.
	ErrPageNotFound = errors.New("page not found")
	// ErrPageLocked is returned when another editor holds the page's lock.
	ErrPageLocked = errors.New("page is being edited by another user")
	// ErrNotEditing is returned when a write comes from someone who does not hold the lock.
	ErrNotEditing = errors.New("you are not currently editing this page")
	// ErrTitleTaken is returned when creating or renaming onto an existing title.
	ErrTitleTaken = errors.New("that page already exists")
	// ErrForbidden is returned when the viewer's role does not allow the action.
	ErrForbidden = errors.New("permission denied")
	// ErrInvalidTitle is returned for empty titles.
	ErrInvalidTitle = errors.New("page title cannot be empty")
	// ErrConfirmationMismatch is returned when a delete confirmation does not match the title.
	ErrConfirmationMismatch = errors.New("page title does not match")
)

// LockedError reports who holds a page's edit lock.
type LockedError struct {
	Page  string
	Owner string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("page %q is locked by %s", e.Page, e.Owner)
}

// Unwrap lets errors.Is match ErrPageLocked.
func (e *LockedError) Unwrap() error {
	return ErrPageLocked
}
