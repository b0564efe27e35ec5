// Package report stores extraction rows and summarizes runs.
//
// Rows go to a Sink. CSVSink keeps the spreadsheet format the land-office
// workflow expects: UTF-8 with a byte order mark and the three columns
// 下拉選單地址, 所有權人姓名 and 擷取到的地址文字. SQLiteSink keeps every
// row of every run with its provenance, and MultiSink fans rows out to
// several sinks. All sinks are safe for concurrent use.
//
// WriteSummary renders a Markdown summary of one run.
package report
