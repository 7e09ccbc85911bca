package scheduler

import "errors"

var (
	ErrInvalidTaskType = errors.New("invalid task type")
	ErrInvalidMaxRetry = errors.New("invalid max retry")
	ErrHandlerNotFound = errors.New("handler not found")
	ErrHandlerPanic    = errors.New("handler panic")

	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrInvalidConfig  = errors.New("invalid configuration")
)
