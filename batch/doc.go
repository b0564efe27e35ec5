// Package batch downloads and processes a community's transcripts
// concurrently and writes one output row per record.
//
// Records come from <identifier>_data.json (LoadRecords) or, when that file
// is missing, from the built-in FixtureRecords. An Orchestrator runs a
// bounded pool of workers; each worker downloads one document, extracts its
// address and appends a row to every sink. A record never aborts the
// batch: download, open and OCR failures become rows holding
// deed.SentinelFailed.
package batch
