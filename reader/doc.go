// Package reader opens PDF files and exposes what the extraction pipeline
// needs: the page count, each page's text and each page's raster images.
//
//	r, err := reader.Open("deed.pdf")
//	if err != nil {
//	    return err
//	}
//	n := r.PageCount()
//	text, err := r.PageText(0)
//	images, err := r.PageImages(0)
//	img, err := images[0].Decode()
//
// The whole file is held in memory. Objects are located through the
// cross-reference data (classic tables, xref streams, incremental updates
// and object streams); when that is missing or wrong the file is scanned
// for object headers and the table rebuilt.
//
// A Reader caches parsed objects and fonts and is not safe for concurrent
// use. Open one Reader per goroutine.
package reader
