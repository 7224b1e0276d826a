package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithCause sets the underlying error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder   { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder { return b.WithSeverity(SeverityWarning) }

// NextRun marks the failure as likely to clear on a later run.
func (b *ErrorBuilder) NextRun() *ErrorBuilder { return b.WithRetry(RetryNextRun) }

// UserAction marks the failure as requiring operator intervention.
func (b *ErrorBuilder) UserAction() *ErrorBuilder { return b.WithRetry(RetryUserAction) }

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the pipeline's error kinds.

// ConfigError creates a fatal configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

// IdentifierError creates an IdentifierParseError (malformed owner/name or remote URL).
func IdentifierError(message string) *ErrorBuilder {
	return NewError(CategoryIdentifier, message).UserAction()
}

// VCSError creates a VersionControlError.
func VCSError(message string) *ErrorBuilder {
	return NewError(CategoryVCS, message).NextRun()
}

// MetadataError creates an error for a checkout that is not a buildable project.
func MetadataError(message string) *ErrorBuilder {
	return NewError(CategoryMetadata, message).UserAction()
}

// BuildCommandError creates a non-fatal documentation build failure.
func BuildCommandError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message).Warning().NextRun()
}

// MissingDocsError creates a MissingDocumentationUnit warning.
func MissingDocsError(message string) *ErrorBuilder {
	return NewError(CategoryMissingDocs, message).Warning()
}

// RelocationError creates a per-entry relocation failure.
func RelocationError(message string) *ErrorBuilder {
	return NewError(CategoryRelocation, message).NextRun()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
