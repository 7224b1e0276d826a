package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

// ValidateConfig checks invariants the pipeline relies on.
func ValidateConfig(cfg *Config) error {
	if err := validatePaths(cfg); err != nil {
		return err
	}
	if err := validateBuild(cfg); err != nil {
		return err
	}
	if cfg.Schedule.Interval < time.Minute {
		return errors.ConfigError("schedule.interval must be at least 1m").
			WithContext("interval", cfg.Schedule.Interval.String()).
			Build()
	}
	return nil
}

func validatePaths(cfg *Config) error {
	repos := filepath.Clean(cfg.ReposRoot)
	deploy := filepath.Clean(cfg.DeployRoot)
	if repos == deploy {
		return errors.ConfigError("repos_root and deploy_root must differ").
			WithContext("path", repos).
			Build()
	}
	if rel, err := filepath.Rel(repos, deploy); err == nil && !strings.HasPrefix(rel, "..") {
		return errors.ConfigError("deploy_root must not be inside repos_root").
			WithContext("repos_root", repos).
			WithContext("deploy_root", deploy).
			Build()
	}
	if strings.ContainsAny(cfg.IndexFile, `/\`) {
		return errors.ConfigError("index_file must be a file name").
			WithContext("index_file", cfg.IndexFile).
			Build()
	}
	if !strings.HasSuffix(cfg.HostPrefix, "/") {
		return errors.ConfigError("host_prefix must end with '/'").
			WithContext("host_prefix", cfg.HostPrefix).
			Build()
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if len(cfg.Build.DocCommand) == 0 || cfg.Build.DocCommand[0] == "" {
		return errors.ConfigError("build.doc_command must name an executable").Build()
	}
	if len(cfg.Build.MetadataCommand) == 0 || cfg.Build.MetadataCommand[0] == "" {
		return errors.ConfigError("build.metadata_command must name an executable").Build()
	}
	if strings.ContainsAny(cfg.Build.OutputSubdir, `/\`) || cfg.Build.OutputSubdir == ".." {
		return errors.ConfigError("build.output_subdir must be a single directory name").
			WithContext("output_subdir", cfg.Build.OutputSubdir).
			Build()
	}
	return nil
}
