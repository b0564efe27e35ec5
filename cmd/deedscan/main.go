// Package main is the deedscan command.
//
// deedscan downloads land-title transcripts for a community listing and
// extracts each owner's registered address into a CSV file.
//
// Usage:
//
//	deedscan run <identifier>
//	deedscan extract <pdf> <address> <owner> [identifier]
//	deedscan probe --cookie '<cookie>'
//
// See --help for all options.
package main

func main() {
	Execute()
}
