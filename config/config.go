// Package config resolves where binaries are installed and which endpoints are used.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	DefaultRegistryURL = "https://crates.io/api/v1/crates"
	DefaultStatsURL    = "https://cargo-quickinstall-stats-server.fly.dev/record-install"

	releases = "https://github.com/cargo-bins/cargo-quickinstall/releases/download/"

	// DefaultArtifactTemplate is where artifacts are currently published.
	DefaultArtifactTemplate = releases +
		"{{.Name}}-{{.Version}}/{{.Name}}-{{.Version}}-{{.Target}}.tar.gz"
	// LegacyArtifactTemplate is where artifacts were published before moving
	// to one release per crate version.
	LegacyArtifactTemplate = releases +
		"{{.Name}}-{{.Version}}-{{.Target}}/{{.Name}}-{{.Version}}-{{.Target}}.tar.gz"

	DefaultBinstallUpstreamTemplate = "https://github.com/cargo-bins/cargo-binstall/releases/latest/download/" +
		"cargo-binstall-{{.Target}}.{{.ArchiveFormat}}"
)

// UserAgent identifies this client towards every remote.
func UserAgent(version string) string {
	return fmt.Sprintf("cargo-quickinstall/%s client (alsuren@gmail.com)", version)
}

// Agent identifies this client in installation reports.
func Agent(version string) string {
	return "cargo-quickinstall/" + version
}

// Config is computed once at startup and passed down to whatever needs it.
type Config struct {
	// Root is the cargo installation root.
	Root string
	// BinDir is where binaries end up, always Root/bin.
	BinDir string

	UserAgent   string
	Agent       string
	RegistryURL string
	// ArtifactTemplates are tried in order.
	ArtifactTemplates        []string
	BinstallUpstreamTemplate string
	StatsURL                 string
}

// LookupEnv matches the signature of [os.LookupEnv].
type LookupEnv func(key string) (string, bool)

// Load builds the configuration, resolving the installation root the same way cargo does:
//   - $CARGO_INSTALL_ROOT
//   - install.root from $CARGO_HOME/config.toml (or the legacy $CARGO_HOME/config)
//   - $CARGO_HOME
//   - $HOME/.cargo
func Load(version string, lookup LookupEnv) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	root, err := installRoot(lookup)
	if err != nil {
		return nil, err
	}

	return &Config{
		Root:                     root,
		BinDir:                   filepath.Join(root, "bin"),
		UserAgent:                UserAgent(version),
		Agent:                    Agent(version),
		RegistryURL:              DefaultRegistryURL,
		ArtifactTemplates:        []string{DefaultArtifactTemplate, LegacyArtifactTemplate},
		BinstallUpstreamTemplate: DefaultBinstallUpstreamTemplate,
		StatsURL:                 DefaultStatsURL,
	}, nil
}

func installRoot(lookup LookupEnv) (string, error) {
	if root, ok := lookup("CARGO_INSTALL_ROOT"); ok && root != "" {
		return root, nil
	}

	home, err := cargoHome(lookup)
	if err != nil {
		return "", err
	}

	root, err := configuredRoot(home)
	if err != nil {
		return "", err
	}
	if root != "" {
		return root, nil
	}

	return home, nil
}

func cargoHome(lookup LookupEnv) (string, error) {
	if home, ok := lookup("CARGO_HOME"); ok && home != "" {
		return home, nil
	}

	home, ok := lookup("HOME")
	if !ok || home == "" {
		return "", errors.New("unable to determine the cargo installation root: neither CARGO_HOME nor HOME are set")
	}
	return filepath.Join(home, ".cargo"), nil
}

type cargoConfig struct {
	Install struct {
		Root string `toml:"root"`
	} `toml:"install"`
}

// configuredRoot reads install.root from the cargo config in home.
// Relative roots are resolved against the parent of home, as cargo does for
// every path in its config files; a missing config file isn't an error.
func configuredRoot(home string) (string, error) {
	for _, name := range []string{"config.toml", "config"} {
		path := filepath.Join(home, name)

		var cfg cargoConfig
		_, err := toml.DecodeFile(path, &cfg)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse cargo config %s: %w", path, err)
		}

		root := cfg.Install.Root
		if root != "" && !filepath.IsAbs(root) {
			root = filepath.Join(filepath.Dir(home), root)
		}
		return root, nil
	}

	return "", nil
}
