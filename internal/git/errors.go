package git

import (
	stderrors "errors"
	"strings"

	"git.home.luguber.info/inful/docfleet/internal/command"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

// classify translates git CLI failures into VersionControlErrors.
func classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	builder := errors.VCSError("git "+op+" failed").
		WithCause(err).
		WithContext("op", op)
	if path != "" {
		builder.WithContext("path", path)
	}

	var exitErr *command.ExitError
	if stderrors.As(err, &exitErr) {
		l := strings.ToLower(exitErr.Stderr)
		switch {
		case strings.Contains(l, "already exists in the index") || strings.Contains(l, "already exists and is not a valid git repo"):
			builder.WithContext("reason", "already_exists").UserAction()
		case strings.Contains(l, "repository not found") || strings.Contains(l, "not found"):
			builder.WithContext("reason", "not_found").UserAction()
		case strings.Contains(l, "authentication failed") || strings.Contains(l, "could not read username"):
			builder.WithContext("reason", "auth").UserAction()
		case strings.Contains(l, "did not match any files") || strings.Contains(l, "pathspec"):
			builder.WithContext("reason", "not_tracked")
		case strings.Contains(l, "timed out") || strings.Contains(l, "connection reset") || strings.Contains(l, "could not resolve host"):
			builder.WithContext("reason", "network").NextRun()
		}
	}
	return builder.Build()
}
