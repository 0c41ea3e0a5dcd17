// Package config loads the optional YAML overlay file that supplies
// defaults for flags the operator didn't pass explicitly on the
// command line. Flags always win over the file; the file only fills in
// what's left unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that can point at a config
// file, checked when no --config flag was given.
const EnvVar = "SARCHIVE_CONFIG"

// defaultPath is checked last, relative to the user's home directory.
const defaultPath = ".sarchive/config.yaml"

// File is the shape of the optional YAML overlay. Every field mirrors
// a CLI flag; a zero value means "not set in the file", not "explicitly
// set to the zero value" — there's no way to unset a flag's own default
// purely from the file. The CLI applies only the top-level fields; the
// Sink section is parsed but not applied to the sink subcommands' flags.
type File struct {
	Scheduler     string `yaml:"scheduler"`
	Spool         string `yaml:"spool"`
	Cluster       string `yaml:"cluster"`
	FilterRegex   string `yaml:"filter_regex"`
	TorqueSubdirs bool   `yaml:"torque_subdirs"`
	Cleanup       bool   `yaml:"cleanup"`

	Debug   bool   `yaml:"debug"`
	Logfile string `yaml:"logfile"`

	Sink struct {
		File struct {
			ArchivePath string `yaml:"archive_path"`
			Period      string `yaml:"period"`
		} `yaml:"file"`
		Kafka struct {
			Brokers        []string `yaml:"brokers"`
			Topic          string   `yaml:"topic"`
			MessageTimeout int      `yaml:"message_timeout_ms"`
		} `yaml:"kafka"`
		Elasticsearch struct {
			Host  string `yaml:"host"`
			Port  int    `yaml:"port"`
			Index string `yaml:"index"`
		} `yaml:"elasticsearch"`
	} `yaml:"sink"`
}

// Load resolves and parses the overlay file. Resolution order: an
// explicit path (from --config), then EnvVar, then defaultPath under
// the user's home directory. A missing file at any of these locations
// is not an error — it just means there's no overlay — but a file that
// exists and fails to parse is.
func Load(explicitPath string) (*File, error) {
	path := explicitPath
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, defaultPath)
		}
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &f, nil
}
