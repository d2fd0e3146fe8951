package app

import "errors"

var (
	// ErrIdentityDenied is returned when the request carries neither a user
	// nor a guest session.
	ErrIdentityDenied = errors.New("unauthorized")

	// ErrRecordNotFound covers both missing records and records owned by
	// someone else, so callers cannot discover foreign ids.
	ErrRecordNotFound = errors.New("research not found")

	// ErrGenerationFailed wraps provider failures. Nothing was written.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrPersistenceFailed wraps store failures after a successful
	// generation. The generated text is discarded.
	ErrPersistenceFailed = errors.New("failed to save research")

	ErrTopicRequired    = errors.New("topic is required")
	ErrFeedbackRequired = errors.New("feedback is required")
	ErrInvalidStep      = errors.New("step is not available for this research")

	// ErrInvalidCredentials is shown to end users and must not reveal whether
	// the username exists.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	ErrUsernameAndPasswordRequired = errors.New("username and password required")
	ErrInvalidUsername             = errors.New("username must be 3-64 characters of letters, digits, '.', '-' or '_'")
	ErrUsernameTaken               = errors.New("username already exists")
)
