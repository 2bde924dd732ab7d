// Package services defines shared utilities consumed by the reconciliation
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item identifiers, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure (not found, transient, timeout) with errors.Is instead of string
//     matching.
//
// Use these helpers when wiring new collaborators so retry and error reporting
// behaviour stays uniform across the pipeline.
package services
