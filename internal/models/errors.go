package models

import "errors"

var (
	// ErrInvalidExpense marks a malformed expense record: non-positive amount,
	// empty participant set, missing payer, or a blank description.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrUnknownGroup is returned when a referenced group has no record.
	ErrUnknownGroup = errors.New("unknown group")

	// ErrUnknownUser is returned when an identity belongs to no visible group.
	ErrUnknownUser = errors.New("unknown user")
)
