package domain

import "errors"

var (
	ErrNotFound = errors.New("bid not found")

	// ErrInvalidBidState: the target bid is not pending or does not belong
	// to the project.
	ErrInvalidBidState = errors.New("bid is not in a valid state for this action")

	// ErrNotBidder: only the bid's author may withdraw it.
	ErrNotBidder = errors.New("caller is not the bid author")

	// ErrOwnProject: project owners cannot bid on their own projects.
	ErrOwnProject = errors.New("cannot bid on your own project")
)
