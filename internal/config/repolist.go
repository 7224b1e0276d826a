package config

import (
	"bufio"
	"bytes"
	"log/slog"
	"os"
	"strings"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

// ReadRepoList reads the desired repository list. Blank lines and '#' comments are
// ignored, malformed entries are logged and skipped, duplicates collapse in order.
// The skipped entries are returned alongside. Failure to read the file is fatal for the run.
func ReadRepoList(path string) ([]identifier.ID, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.ConfigError("failed to read repository list").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	ids, errs := ParseRepoList(data)
	for _, e := range errs {
		slog.Error("Skipping malformed repository list entry", logfields.Path(path), logfields.Error(e))
	}
	return ids, errs, nil
}

// ParseRepoList parses list file content.
func ParseRepoList(data []byte) ([]identifier.ID, []error) {
	var entries []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return identifier.ParseList(entries)
}
