package users

import "errors"

var (
	// ErrNotFound is returned when no live user matches.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when another user already owns the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidInput wraps field validation failures.
	ErrInvalidInput = errors.New("invalid user input")
	// ErrWrongPassword is returned by ChangePassword when the current password does not match.
	ErrWrongPassword = errors.New("current password does not match")
)
