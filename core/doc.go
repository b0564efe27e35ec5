// Package core provides the low-level PDF object model and the parsers that
// produce it.
//
// # Object Types
//
// Every value read from a PDF satisfies [Object]:
//
//   - [Null], [Bool], [Int], [Real]
//   - [String] (literal and hexadecimal strings, already unescaped)
//   - [Name] (without the leading slash, #xx escapes resolved)
//   - [Array] and [Dict]
//   - [*Stream] (a dictionary plus its raw, still-encoded bytes)
//   - [IndirectRef] (an "n g R" reference)
//
// # Parsing
//
// [Lexer] tokenizes a byte slice and [Parser] builds objects from the tokens.
// Both work on an in-memory buffer with an explicit position, so the reader
// can jump to any xref offset without re-buffering.
//
// # Cross-Reference Data
//
// [XRefParser] reads classic xref tables and PDF 1.5 xref streams, follows
// /Prev and /XRefStm chains, and merges them into one [XRefTable]. When the
// xref data is unusable, [Rebuild] recovers a table by scanning the file for
// "n g obj" headers.
//
// # Object Streams
//
// [ObjectStream] (PDF 1.5+) unpacks objects stored inside a compressed
// /ObjStm stream.
package core
