// Package config loads docfleet configuration from an optional YAML file, the
// process environment and .env files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

// DefaultConfigFile is the configuration path used when -c is not given.
const DefaultConfigFile = "docfleet.yaml"

// Config represents the application configuration.
type Config struct {
	// ReposRoot holds the submodule checkouts (repos/<owner>/<name>), relative to the git root.
	ReposRoot string `yaml:"repos_root"`
	// DeployRoot receives relocated documentation and docs.json.
	DeployRoot string `yaml:"deploy_root"`
	// ListFile is the default repository list (one owner/name per line).
	ListFile string `yaml:"list_file"`
	// DocsURL prefixes every documentation URL. DOCS_URL overrides it.
	DocsURL string `yaml:"docs_url,omitempty"`
	// HostPrefix is stripped from submodule URLs and prepended when adding.
	HostPrefix string `yaml:"host_prefix"`
	// IndexFile is the name of the index written under DeployRoot.
	IndexFile string `yaml:"index_file"`

	Git      GitConfig      `yaml:"git"`
	Build    BuildConfig    `yaml:"build"`
	Deploy   DeployConfig   `yaml:"deploy"`
	History  HistoryConfig  `yaml:"history"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// GitConfig controls the commits recorded for submodule additions and removals.
type GitConfig struct {
	AuthorName  string `yaml:"author_name,omitempty"`
	AuthorEmail string `yaml:"author_email,omitempty"`
	// Commit disables commits when false (useful for dry CI checkouts).
	Commit *bool `yaml:"commit,omitempty"`
}

// CommitEnabled reports whether membership changes are committed.
func (g GitConfig) CommitEnabled() bool { return g.Commit == nil || *g.Commit }

// BuildConfig holds the external commands used to resolve and document workspaces.
type BuildConfig struct {
	DocCommand      []string `yaml:"doc_command"`
	MetadataCommand []string `yaml:"metadata_command"`
	// OutputSubdir is the folder under the workspace target directory holding generated docs.
	OutputSubdir string `yaml:"output_subdir"`
	// SlugSeparators are replaced by '_' when deriving a component slug.
	SlugSeparators string `yaml:"slug_separators"`
}

// DeployConfig controls optional deployment artifacts.
type DeployConfig struct {
	LandingPage  bool   `yaml:"landing_page"`
	LandingTitle string `yaml:"landing_title,omitempty"`
	WriteReport  *bool  `yaml:"write_report,omitempty"`
}

// ReportEnabled reports whether the run report is persisted next to the index.
func (d DeployConfig) ReportEnabled() bool { return d.WriteReport == nil || *d.WriteReport }

// HistoryConfig enables the SQLite run ledger when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig enables NATS run notifications when NATSURL is set.
type NotifyConfig struct {
	NATSURL string        `yaml:"nats_url,omitempty"`
	Subject string        `yaml:"subject,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// MetricsConfig enables writing Prometheus metrics to a textfile after each run.
// Listen serves them over HTTP in schedule mode.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
	Listen   string `yaml:"listen,omitempty"`
}

// ScheduleConfig controls the long running schedule command.
type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval,omitempty"`
	WatchList  bool          `yaml:"watch_list"`
	RunOnStart bool          `yaml:"run_on_start"`
}

// Load reads configPath (missing file means defaults), applies environment
// overrides, defaults and validation.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.ConfigError("failed to parse configuration file").
				WithCause(err).
				WithContext("path", configPath).
				Build()
		}
	case os.IsNotExist(err):
		// No file: defaults only.
	default:
		return nil, errors.ConfigError("failed to read configuration file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}

	applyEnv(cfg)
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := &Config{}
	if err := applyDefaults(example); err != nil {
		return err
	}
	example.DocsURL = "https://docs.example.com"
	example.Deploy.LandingPage = true
	example.Schedule.Interval = 6 * time.Hour

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
