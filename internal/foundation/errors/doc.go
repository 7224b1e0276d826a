// Package errors provides the classified error primitives used across docfleet.
//
// Every failure the pipeline can observe is expressed as a ClassifiedError with a
// category naming the kind of failure (identifier, metadata, build, missing_docs,
// relocation, vcs, ...), a severity and a retry hint. The pipeline logs and skips
// per-item errors; the CLI adapter maps the categories of fatal errors to exit codes.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryMetadata, "cargo metadata failed").
//		WithContext("repository", id.String()).
//		WithCause(runErr).
//		Build()
package errors
