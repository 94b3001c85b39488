package completion

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRateLimited
	KindInvalidRequest
	KindServerError
)

// RequestError describes a failed completion request.
type RequestError struct {
	Status  int
	Kind    ErrorKind
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("completion request failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("completion request failed (status %d)", e.Status)
}

// KindForStatus maps an HTTP status code onto an error kind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimited
	case status >= 400 && status < 500:
		return KindInvalidRequest
	case status >= 500:
		return KindServerError
	default:
		return KindUnknown
	}
}

// IsRateLimited reports whether err is a rate limit rejection.
func IsRateLimited(err error) bool {
	var requestErr *RequestError
	return errors.As(err, &requestErr) && requestErr.Kind == KindRateLimited
}
