// Package font decodes the character codes of PDF text strings into Unicode
// and reports glyph widths for text positioning.
//
// # Fonts
//
// [Load] builds a [Font] from a /Font resource dictionary. Simple fonts
// (Type1, TrueType, Type3, MMType1) use single-byte codes; composite Type0
// fonts use the code lengths of their CMap.
//
// # Decoding Order
//
// A code is turned into text by the first source that knows it:
//
//  1. the font's embedded /ToUnicode CMap
//  2. a predefined CJK CMap named by /Encoding (Big5, UCS-2, GBK, Shift JIS,
//     UHC), decoded with golang.org/x/text
//  3. the simple-font encoding with its /Differences
//
// Decoded text is normalised with [Normalize].
//
// # CMaps
//
// [ParseCMap] reads the codespace ranges and the bfchar, bfrange, cidchar and
// cidrange sections of an embedded CMap.
package font
