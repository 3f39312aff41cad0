package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrUnexpectedStatus      = errors.New("unexpected provider status")
	ErrRunInProgress         = errors.New("pipeline run already in progress")
)
