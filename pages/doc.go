// Package pages walks the PDF page tree and exposes each page's
// dictionary with its inherited attributes applied.
//
// # Page Tree
//
// [PageTree] flattens the /Pages hierarchy into document order:
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	list, err := tree.Pages()
//	page, err := tree.GetPage(0) // 0-indexed
//
// Nodes without /Type are classified by the presence of /Kids, and cycles in
// malformed trees are broken rather than followed.
//
// # Inheritance
//
// /Resources, /MediaBox, /CropBox and /Rotate are inheritable. A page that
// lacks one of them takes the value from its nearest ancestor that has it,
// however deep the tree.
//
// # Object Resolution
//
// The [ObjectResolver] interface abstracts object lookup so the tree can be
// built without depending on the reader package.
package pages
