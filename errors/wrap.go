package errors

import goerrors "errors"

// Re-exports of the standard library helpers so callers only import one
// errors package.

func Unwrap(err error) error { return goerrors.Unwrap(err) }

func Is(err, target error) bool { return goerrors.Is(err, target) }

func As(err error, target any) bool { return goerrors.As(err, target) }

func Join(errs ...error) error { return goerrors.Join(errs...) }

// Sentinel creates a plain error value for package-level sentinels.
func Sentinel(text string) error { return goerrors.New(text) }
