package report

import "errors"

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("sink is closed")
