// Package config loads the project file that declares plugins, the dev server and the bundle.
//
// Layers are applied in order: defaults, the YAML file, DEVCONF_* environment variables and
// finally explicit overrides from the command line. A later layer only replaces values it sets.
package config

import (
	"fmt"
	"strings"

	"github.com/wolfeidau/devconf/internal/buildconfig"
)

const envPrefix = "DEVCONF_"

// Config is the project configuration.
type Config struct {
	// Root is the project directory, build paths are relative to it
	Root    string       `yaml:"root" env:"ROOT"`
	Plugins []PluginSpec `yaml:"plugins"`
	Server  ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	Build   BundleConfig `yaml:"build" envPrefix:"BUILD_"`
}

// PluginSpec names a plugin and its options as declared in the project file.
type PluginSpec struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options"`
}

type ServerConfig struct {
	Listen      string      `yaml:"listen" env:"LISTEN"`
	CORSOrigins []string    `yaml:"cors" env:"CORS_ORIGINS" envSeparator:","`
	HTTPS       HTTPSConfig `yaml:"https" envPrefix:"HTTPS_"`
}

// HTTPSConfig points at PEM files. Setting both enables TLS.
type HTTPSConfig struct {
	Key  string `yaml:"key" env:"KEY"`
	Cert string `yaml:"cert" env:"CERT"`
}

// Enabled reports whether either path was provided
func (h HTTPSConfig) Enabled() bool {
	return h.Key != "" || h.Cert != ""
}

type BundleConfig struct {
	// Entry point glob pattern (e.g., "src/*.tsx")
	EntryPoints string `yaml:"entryPoints" env:"ENTRY_POINTS"`
	// Output directory for built files
	OutDir string `yaml:"outdir" env:"OUTDIR"`
	// HTML template rendered for the index page, empty serves outdir only
	Template  string `yaml:"template" env:"TEMPLATE"`
	Title     string `yaml:"title" env:"TITLE"`
	Minify    bool   `yaml:"minify" env:"MINIFY"`
	SourceMap bool   `yaml:"sourcemap" env:"SOURCEMAP"`
}

// Default returns the configuration used when nothing else is declared.
func Default() Config {
	return Config{
		Root: ".",
		Server: ServerConfig{
			Listen: "localhost:5173",
		},
		Build: BundleConfig{
			EntryPoints: "src/*.tsx",
			OutDir:      "dist",
			Title:       "devconf",
		},
	}
}

// Settings returns the declarative server section consumed by buildconfig.Assemble.
func (c *Config) Settings() buildconfig.ServerSettings {
	return buildconfig.ServerSettings{
		Listen:   c.Server.Listen,
		TLS:      c.Server.HTTPS.Enabled(),
		KeyPath:  c.Server.HTTPS.Key,
		CertPath: c.Server.HTTPS.Cert,
	}
}

func (c *Config) validate() error {
	for i, p := range c.Plugins {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: plugin %d has no name", buildconfig.ErrConfigurationInvalid, i)
		}
	}

	https := c.Server.HTTPS
	if https.Key == "" && https.Cert != "" {
		return fmt.Errorf("%w: server.https.cert is set without server.https.key", buildconfig.ErrConfigurationInvalid)
	}
	if https.Key != "" && https.Cert == "" {
		return fmt.Errorf("%w: server.https.key is set without server.https.cert", buildconfig.ErrConfigurationInvalid)
	}

	if c.Server.Listen == "" {
		return fmt.Errorf("%w: server.listen is required", buildconfig.ErrConfigurationInvalid)
	}
	if c.Build.EntryPoints == "" {
		return fmt.Errorf("%w: build.entryPoints is required", buildconfig.ErrConfigurationInvalid)
	}
	if c.Build.OutDir == "" {
		return fmt.Errorf("%w: build.outdir is required", buildconfig.ErrConfigurationInvalid)
	}

	return nil
}
