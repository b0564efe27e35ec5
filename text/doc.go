// Package text extracts positioned text from PDF content streams and
// assembles it into reading order.
//
//	ex := text.NewExtractor(resolver)
//	frags, err := ex.Extract(content, resources)
//	s := text.Assemble(frags)
//
// Each [Fragment] is one string shown by Tj, TJ, ' or ", with its baseline
// origin and advance in default user space. Form XObjects painted with Do
// are followed, so text inside forms is returned in paint order.
//
// [Assemble] groups horizontal fragments into lines from the top of the page
// down and orders each line left to right. Fragments shown with a vertical
// font become columns, read right to left, after the horizontal lines.
// Text drawn in render mode 3 (invisible) is kept, since that is how OCR
// layers over scanned pages are written.
package text
