// Package diag holds the structured records produced from a build log and the
// bookkeeping types shared by classification, remediation and reporting.
//
// A Diagnostic is created by the ingestor with its location, severity, raw
// message, context window and module attribution. Classification assigns its
// category exactly once; nothing in the pipeline renumbers its coordinates
// afterwards, even when remediation inserts lines into the file.
//
// Per-item problems (unparseable log lines, transforms that do not fit,
// backups that fail) are not Go errors: they are Issue values collected by the
// caller and surfaced in the run report.
package diag
