package core

import "errors"

// ErrorClass is the retry-relevant classification of a failed attempt.
type ErrorClass int

const (
	// ClassTransient covers network blips and any error not listed below.
	ClassTransient ErrorClass = iota
	ClassUnauthenticated
	ClassInvalidArgument
	ClassResourceExhausted
	ClassNoImageReturned
)

// Provider status codes that retries cannot fix.
const (
	StatusUnauthenticated   = "UNAUTHENTICATED"
	StatusInvalidArgument   = "INVALID_ARGUMENT"
	StatusResourceExhausted = "RESOURCE_EXHAUSTED"
)

// String returns the class name used in logs and metric labels.
func (c ErrorClass) String() string {
	switch c {
	case ClassUnauthenticated:
		return "unauthenticated"
	case ClassInvalidArgument:
		return "invalid_argument"
	case ClassResourceExhausted:
		return "resource_exhausted"
	case ClassNoImageReturned:
		return "no_image_returned"
	default:
		return "transient"
	}
}

// Retryable reports whether another attempt may succeed.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassUnauthenticated, ClassInvalidArgument, ClassResourceExhausted:
		return false
	default:
		return true
	}
}

// Classify derives the ErrorClass of err from the provider status it carries.
func Classify(err error) ErrorClass {
	if errors.Is(err, ErrNoImageReturned) {
		return ClassNoImageReturned
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case StatusUnauthenticated:
			return ClassUnauthenticated
		case StatusInvalidArgument:
			return ClassInvalidArgument
		case StatusResourceExhausted:
			return ClassResourceExhausted
		}
	}

	return ClassTransient
}
