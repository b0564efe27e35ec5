package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrDownload is wrapped by every download failure.
	ErrDownload = errors.New("download failed")

	// ErrStatus is returned for responses with a non-2xx status code.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrTooLarge is returned for documents over the downloader's size limit.
	ErrTooLarge = errors.New("document too large")

	// ErrEmptyCookie is returned when a probe is attempted without a cookie.
	ErrEmptyCookie = errors.New("cookie string is empty")
)

// Error describes a failed download.
type Error struct {
	URL string
	// StatusCode is the HTTP status of the response, or 0 when no response
	// was received.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports true for ErrDownload, so errors.Is matches any *Error.
func (e *Error) Is(target error) bool { return target == ErrDownload }
