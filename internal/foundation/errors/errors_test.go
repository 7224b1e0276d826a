package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "docfleet.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())
		file, ok := err.Context().GetString("file")
		assert.True(t, ok)
		assert.Equal(t, "docfleet.yaml", file)
	})

	t.Run("Wrapped chain", func(t *testing.T) {
		cause := stderrors.New("exit status 101")
		err := WrapError(cause, CategoryBuild, "cargo doc failed").Warning().Build()
		wrapped := fmt.Errorf("workspace alice/foo: %w", err)

		assert.True(t, stderrors.Is(wrapped, cause))
		assert.True(t, HasCategory(wrapped, CategoryBuild))
		assert.Equal(t, SeverityWarning, GetSeverity(wrapped))
		assert.Equal(t, CategoryInternal, GetCategory(cause))
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := MetadataError("no workspace").Build()
		derived := base.WithContext("repository", "alice/foo")

		_, ok := base.Context().Get("repository")
		assert.False(t, ok)
		repo, _ := derived.Context().GetString("repository")
		assert.Equal(t, "alice/foo", repo)
	})
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryUserAction},
		{"IdentifierError", IdentifierError("x"), CategoryIdentifier, SeverityError, RetryUserAction},
		{"VCSError", VCSError("x"), CategoryVCS, SeverityError, RetryNextRun},
		{"MetadataError", MetadataError("x"), CategoryMetadata, SeverityError, RetryUserAction},
		{"BuildCommandError", BuildCommandError("x"), CategoryBuild, SeverityWarning, RetryNextRun},
		{"MissingDocsError", MissingDocsError("x"), CategoryMissingDocs, SeverityWarning, RetryNever},
		{"RelocationError", RelocationError("x"), CategoryRelocation, SeverityError, RetryNextRun},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			assert.Equal(t, tt.category, err.Category())
			assert.Equal(t, tt.severity, err.Severity())
			assert.Equal(t, tt.retry, err.RetryStrategy())
		})
	}
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)
	shared, _ := merged.GetString("shared")
	assert.Equal(t, "overridden", shared)
	assert.Len(t, merged, 3)
}

func TestCLIErrorAdapter(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"identifier", IdentifierError("bad id").Build(), 2},
		{"config", ConfigError("bad config").Build(), 7},
		{"vcs", VCSError("open failed").Build(), 8},
		{"relocation", RelocationError("mv failed").Build(), 11},
		{"wrapped config", fmt.Errorf("load: %w", ConfigError("bad").Build()), 7},
		{"unclassified", stderrors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}

	t.Run("HandleError exits with mapped code", func(t *testing.T) {
		var out bytes.Buffer
		code := -1
		adapter.out = &out
		adapter.exit = func(c int) { code = c }

		adapter.HandleError(ConfigError("missing repos_root").Build())

		require.Equal(t, 7, code)
		assert.Contains(t, out.String(), "missing repos_root")
		assert.Contains(t, out.String(), "use -v")
	})
}
