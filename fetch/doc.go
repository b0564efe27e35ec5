// Package fetch downloads transcript PDFs to local storage.
//
// A Downloader saves each remote document as <dir>/<identifier>_file_<i>.pdf.
// Sources that are not http or https URLs are treated as local paths and
// returned unchanged. Every request carries its own timeout, and an optional
// rate.Limiter shared by all callers spaces requests out.
//
// Failures are reported as *Error values that wrap ErrDownload, so callers
// can separate download problems from later processing errors:
//
//	path, err := d.Fetch(ctx, rec.Source, "pdfs", "community", i)
//	if errors.Is(err, fetch.ErrDownload) {
//		// write the failure row
//	}
//
// The same Downloader also backs the session probe used by the CLI to check
// whether a browser cookie still grants access to the community listing.
package fetch
