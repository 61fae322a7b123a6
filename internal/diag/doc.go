// Package diag defines the diagnostic model shared by the markup compiler
// and the CLI.
//
// Diagnostic is the central record: Severity, a numeric Code with a stable
// string form (SYN2xxx for markup syntax, RES3xxx for files, fonts, images
// and dates), a short Message, the Primary span and optional Notes and Fixes.
//
// Producers emit through a Reporter, usually with the ReportBuilder helpers
// (ReportError, ReportWarning, ReportInfo). BagReporter collects into a Bag,
// which supports limits, sorting and deduplication; DedupReporter drops
// repeats before they reach the next reporter.
//
// FormatShortDiagnostics renders diagnostics one per line for the CLI and
// for tests.
package diag
