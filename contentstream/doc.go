// Package contentstream splits PDF content streams into operations.
//
// A content stream is a flat sequence of operands followed by the operator
// that consumes them:
//
//	ops, err := contentstream.Parse(data)
//	for _, op := range ops {
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Inline images (BI ... ID ... EI) are returned as a single operation with
// Operator "BI" and the image carried in [Operation.Image].
//
// Parsing is lenient: stray bytes are skipped and an unterminated stream
// yields the operations read so far.
package contentstream
