// Package deed extracts the owner's registered address from Taiwanese
// land-title transcripts (建物登記謄本).
//
// A transcript is read in three steps. LocatePage picks the page holding
// the building ownership section (建物所有權部). ExtractField searches that
// page's text for the address between the 所有權人…地址 anchors and the
// 權利範圍 terminator. When the address has been replaced by an image, as
// the land office does for privacy, the Pipeline recognizes the page's
// images with an OCR engine and repairs common misreadings with a glyph
// table.
//
// The outcome is a Result whose Address is never empty: it is either
// extracted text or one of the Sentinel* placeholders.
package deed
