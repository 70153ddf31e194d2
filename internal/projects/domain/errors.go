package domain

import "errors"

var (
	ErrNotFound = errors.New("project not found")

	// ErrNotOwner: the caller is not the project owner for an owner-only
	// action. Never retried.
	ErrNotOwner = errors.New("caller is not the project owner")

	// ErrInvalidTransition: the requested lifecycle transition is not legal
	// from the current state. Also what the loser of a concurrent
	// status-guarded update observes.
	ErrInvalidTransition = errors.New("invalid project status transition")

	// ErrDepositNotConfirmed: attempted to create a project without a
	// confirmed escrow deposit signature.
	ErrDepositNotConfirmed = errors.New("escrow deposit not confirmed")

	// ErrBountyTooSmall: bounty below the configured minimum.
	ErrBountyTooSmall = errors.New("bounty below minimum")

	// ErrBountyTooLarge: bounty above the native supply cap. Never a real
	// deposit, so reject before touching the ledger.
	ErrBountyTooLarge = errors.New("bounty above maximum")

	// ErrDepositAlreadyUsed: the escrow deposit signature already backs
	// another project. One deposit funds exactly one bounty.
	ErrDepositAlreadyUsed = errors.New("escrow deposit already used")
)
