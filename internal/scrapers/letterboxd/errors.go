package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrUserNotFound          = errors.New("letterboxd: user not found")
	ErrFilmNotFound          = errors.New("letterboxd: film not found")
	ErrMissingStructuredData = errors.New("letterboxd: missing structured data")
)

// StatusError is returned for any response outside of the 2xx range.
type StatusError struct {
	Url        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("letterboxd: GET %s: status %d", e.Url, e.StatusCode)
}

// Transient reports whether the same request may succeed later.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is a server side or network failure as opposed to
// a request that will keep failing, like a missing user.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
