package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryIdentifier ErrorCategory = "identifier"

	// CategoryVCS represents failures of the version-control collaborator.
	CategoryVCS ErrorCategory = "vcs"

	// CategoryMetadata represents checkouts that cannot be resolved as buildable projects.
	CategoryMetadata    ErrorCategory = "metadata"
	CategoryBuild       ErrorCategory = "build"
	CategoryMissingDocs ErrorCategory = "missing_docs"
	CategoryRelocation  ErrorCategory = "relocation"
	CategoryFileSystem  ErrorCategory = "filesystem"

	// CategoryHistory and CategoryNotify cover optional run side channels.
	CategoryHistory ErrorCategory = "history"
	CategoryNotify  ErrorCategory = "notify"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the run
	SeverityError   ErrorSeverity = "error"   // Fails the current item
	SeverityWarning ErrorSeverity = "warning" // Item continues with degraded output
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy indicates how an error should be handled in retry scenarios.
// The pipeline never retries on its own; the hint is surfaced to operators.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryNextRun    RetryStrategy = "next_run"
	RetryUserAction RetryStrategy = "user"
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
