package config

import (
	"time"

	"git.home.luguber.info/inful/docfleet/internal/identifier"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&pathsDefaultApplier{},
		&buildDefaultApplier{},
		&runtimeDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

type pathsDefaultApplier struct{}

func (p *pathsDefaultApplier) Domain() string { return "paths" }

func (p *pathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.ReposRoot == "" {
		cfg.ReposRoot = "repos"
	}
	if cfg.DeployRoot == "" {
		cfg.DeployRoot = "deploy"
	}
	if cfg.ListFile == "" {
		cfg.ListFile = "repos.txt"
	}
	if cfg.IndexFile == "" {
		cfg.IndexFile = "docs.json"
	}
	if cfg.HostPrefix == "" {
		cfg.HostPrefix = identifier.DefaultHostPrefix
	}
	return nil
}

type buildDefaultApplier struct{}

func (b *buildDefaultApplier) Domain() string { return "build" }

func (b *buildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Build.DocCommand) == 0 {
		cfg.Build.DocCommand = []string{"cargo", "doc", "--document-private-items", "--workspace", "--no-deps"}
	}
	if len(cfg.Build.MetadataCommand) == 0 {
		cfg.Build.MetadataCommand = []string{"cargo", "metadata", "--format-version", "1", "--no-deps"}
	}
	if cfg.Build.OutputSubdir == "" {
		cfg.Build.OutputSubdir = "doc"
	}
	if cfg.Build.SlugSeparators == "" {
		cfg.Build.SlugSeparators = "-"
	}
	return nil
}

type runtimeDefaultApplier struct{}

func (r *runtimeDefaultApplier) Domain() string { return "runtime" }

func (r *runtimeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Git.AuthorName == "" {
		cfg.Git.AuthorName = "docfleet"
	}
	if cfg.Git.AuthorEmail == "" {
		cfg.Git.AuthorEmail = "docfleet@localhost"
	}
	if cfg.Deploy.LandingTitle == "" {
		cfg.Deploy.LandingTitle = "Documentation"
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "docfleet.runs"
	}
	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = 5 * time.Second
	}
	if cfg.Schedule.Interval <= 0 {
		cfg.Schedule.Interval = 6 * time.Hour
	}
	return nil
}
