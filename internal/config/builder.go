package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/wolfeidau/devconf/internal/buildconfig"
	"gopkg.in/yaml.v3"
)

type configBuilder struct {
	configs []*Config
	loader  *buildconfig.Loader
	err     error
}

func newConfigBuilder(loader *buildconfig.Loader) *configBuilder {
	return &configBuilder{
		configs: make([]*Config, 0, 4),
		loader:  loader,
	}
}

func (b *configBuilder) build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	cfg := new(Config)
	for _, layer := range b.configs {
		if err := mergo.Merge(cfg, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (b *configBuilder) withDefaults() *configBuilder {
	cfg := Default()
	b.add(&cfg, "")
	return b
}

// withFile decodes the YAML file at path. Relative paths inside it resolve against
// the directory holding the file.
func (b *configBuilder) withFile(path string) *configBuilder {
	if path == "" {
		return b
	}

	// an empty file is an empty document, every value comes from the other layers
	data, err := b.loader.Read("config file", path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	fileCfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fileCfg); err != nil && !errors.Is(err, io.EOF) {
		b.err = errors.Join(b.err, fmt.Errorf("%w: %s: %v", buildconfig.ErrConfigurationInvalid, path, err))
		return b
	}

	b.add(fileCfg, filepath.Dir(path))
	return b
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &Config{}
	if err := env.ParseWithOptions(envCfg, env.Options{Prefix: envPrefix}); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("%w: environment: %v", buildconfig.ErrConfigurationInvalid, err))
		return b
	}

	b.add(envCfg, "")
	return b
}

func (b *configBuilder) withOverrides(overrides *Config) *configBuilder {
	if overrides == nil {
		return b
	}

	cfg := *overrides
	b.add(&cfg, "")
	return b
}

func (b *configBuilder) add(cfg *Config, base string) {
	if err := resolvePaths(cfg, base); err != nil {
		b.err = errors.Join(b.err, err)
		return
	}
	b.configs = append(b.configs, cfg)
}

// resolvePaths makes root and TLS paths absolute. base is the config file directory,
// or empty for the working directory. TLS paths are relative to root when one is set.
func resolvePaths(cfg *Config, base string) error {
	abs := func(p, dir string) (string, error) {
		if p == "" || filepath.IsAbs(p) {
			return p, nil
		}
		if dir != "" {
			p = filepath.Join(dir, p)
		}
		return filepath.Abs(p)
	}

	var err error
	if base != "" && cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Root, err = abs(cfg.Root, base); err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}

	tlsBase := base
	if cfg.Root != "" {
		tlsBase = cfg.Root
	}
	if cfg.Server.HTTPS.Key, err = abs(cfg.Server.HTTPS.Key, tlsBase); err != nil {
		return fmt.Errorf("failed to resolve key path: %w", err)
	}
	if cfg.Server.HTTPS.Cert, err = abs(cfg.Server.HTTPS.Cert, tlsBase); err != nil {
		return fmt.Errorf("failed to resolve cert path: %w", err)
	}

	return nil
}

// Load builds the configuration from defaults, the file at path (skipped when empty),
// the environment and overrides.
func Load(path string, overrides *Config) (*Config, error) {
	return LoadWith(buildconfig.NewLoader(nil), path, overrides)
}

// LoadWith is Load reading files through loader.
func LoadWith(loader *buildconfig.Loader, path string, overrides *Config) (*Config, error) {
	return newConfigBuilder(loader).
		withDefaults().
		withFile(path).
		withEnv().
		withOverrides(overrides).
		build()
}
