// Package config parses the optional per-working-tree configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/alugowski/archive-workdir/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Filename is the name of the configuration file at the working tree root.
const Filename = "archive-workdir.yaml"

// InitialConfigVersion is the first version of the config format. Files that
// don't specify a version default to this.
const InitialConfigVersion = "v1alpha1"

// SupportedConfigVersion is the config version this binary understands.
const SupportedConfigVersion = "v1alpha1"

// alwaysIgnored are never mirrored and never deleted from the archive,
// regardless of the configured ignore list. The config file itself stays on
// the working side only.
var alwaysIgnored = []string{Filename, ".DS_Store"}

// Config holds per-working-tree defaults for the sync run. Command-line flags
// override anything set here.
type Config struct {
	Version string `json:"version,omitempty"`

	// Archive is the archive tree root. May start with ~.
	Archive string `json:"archive,omitempty"`

	// AutoSyncNew mirrors working directories with no archive counterpart
	// instead of reporting them.
	AutoSyncNew bool `json:"autoSyncNew,omitempty"`

	// ReportUnsynced makes a run with anomalies exit non-zero. Useful under
	// cron, where a failing exit is what triggers the alert mail.
	ReportUnsynced bool `json:"reportUnsynced,omitempty"`

	// Rename enables the best-effort file rename detection pass.
	Rename bool `json:"rename,omitempty"`

	// Ignore lists glob patterns excluded from mirroring. Patterns match
	// against paths relative to each tracked subdirectory and against bare
	// entry names.
	Ignore []string `json:"ignore,omitempty"`
}

type incompatibleVersionError struct {
	path   string
	exp    string
	actual string
}

func (err incompatibleVersionError) Error() string {
	return fmt.Sprintf("unsupported config version in %q: expected %q, got %q",
		err.path, err.exp, err.actual)
}

// Parse reads the config file at the root of `workDir`. A missing file is not
// an error; the returned config then just carries the defaults.
func Parse(workDir string) (Config, error) {
	path := filepath.Join(workDir, Filename)
	config := Config{Version: InitialConfigVersion}

	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			config.Ignore = append(config.Ignore, alwaysIgnored...)
			return config, nil
		}
		return Config{}, errors.WithContext(err, "read config")
	}

	if err := yaml.Unmarshal(contents, &config); err != nil {
		return Config{}, errors.WithContext(err, "parse config")
	}

	if config.Version != SupportedConfigVersion {
		return Config{}, incompatibleVersionError{
			path:   path,
			exp:    SupportedConfigVersion,
			actual: config.Version,
		}
	}

	if config.Archive != "" {
		archive, err := homedir.Expand(config.Archive)
		if err != nil {
			return Config{}, errors.WithContext(err, "expand homedir")
		}
		config.Archive = filepath.Clean(archive)
	}

	config.Ignore = append(config.Ignore, alwaysIgnored...)
	return config, nil
}
