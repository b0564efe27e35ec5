package deed

import "errors"

// Placeholders written in place of an address.
const (
	// SentinelRedacted marks an address field that is present but empty and
	// could not be recovered from images: the office withheld it.
	SentinelRedacted = "[address not public]"
	// SentinelUnrecognized marks an OCR pass that produced no text for a
	// page without address anchors.
	SentinelUnrecognized = "[OCR could not recognize]"
	// SentinelFailed marks a document that could not be fetched, opened or
	// recognized.
	SentinelFailed = "[address extraction failed]"
)

var (
	// ErrOpen wraps every failure to open or parse a document.
	ErrOpen = errors.New("cannot open document")

	// ErrNoPages is returned for a document whose page tree is empty.
	ErrNoPages = errors.New("document has no pages")
)
