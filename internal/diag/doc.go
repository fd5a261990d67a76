// Package diag defines the diagnostic model shared by the compile-and-run pipeline.
//
// # Purpose
//
//   - Provide a bundler-neutral record for errors and warnings reported by a
//     completed compilation, so the pipeline and CLI never depend on the
//     engine's own message types.
//   - Offer Bag, a capped and deterministically ordered collection.
//
// # Scope
//
// Package diag performs no formatting or IO. Rendering lives in
// internal/diagfmt, and the decision whether diagnostics fail a run lives in
// internal/pipeline.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Message: the engine's text, kept verbatim.
//   - Location: optional file/line/column position plus the offending source line.
//   - Notes: secondary messages, each optionally positioned.
//   - Plugin: name of the bundler plugin that produced the message, if any.
//
// Lines are 1-based, columns are 0-based byte offsets, matching the bundler.
package diag
