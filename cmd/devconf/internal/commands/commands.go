package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/devconf/internal/assets"
	"github.com/wolfeidau/devconf/internal/buildconfig"
	"github.com/wolfeidau/devconf/internal/config"
	"github.com/wolfeidau/devconf/internal/plugins"
)

type Globals struct {
	Debug   bool
	Version string
}

// ConfigFlags are shared by every command that assembles a config.
type ConfigFlags struct {
	Config      string   `help:"path to the project config file, empty to skip" default:"devconf.yaml" env:"DEVCONF_CONFIG"`
	Listen      string   `help:"dev server listen address"`
	Cert        string   `help:"path to TLS cert file"`
	Key         string   `help:"path to TLS key file"`
	CORSOrigins []string `help:"allowed CORS origins" name:"cors-origin"`
}

func (f *ConfigFlags) overrides() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Listen:      f.Listen,
			CORSOrigins: f.CORSOrigins,
			HTTPS: config.HTTPSConfig{
				Key:  f.Key,
				Cert: f.Cert,
			},
		},
	}
}

// assemble runs config loading, plugin binding and assembly. Any failure stops
// here, before a pipeline or listener exists.
func (f *ConfigFlags) assemble(ctx context.Context, registry *plugins.Registry) (*config.Config, *buildconfig.BuildConfig[api.Plugin], error) {
	cfg, err := config.Load(f.Config, f.overrides())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	resolved, err := registry.Resolve(cfg.Plugins)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve plugins: %w", err)
	}

	bc, err := buildconfig.Assemble(ctx, resolved, cfg.Settings())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to assemble build config: %w", err)
	}

	return cfg, bc, nil
}

func assetsConfig(cfg *config.Config) assets.Config {
	ac := assets.DefaultConfig()
	ac.Root = cfg.Root
	ac.EntryPointGlob = cfg.Build.EntryPoints
	ac.OutputDir = cfg.Build.OutDir
	ac.MetafilePath = filepath.Join(cfg.Build.OutDir, "meta.json")
	ac.TemplatePath = cfg.Build.Template
	ac.Minify = cfg.Build.Minify
	ac.SourceMap = cfg.Build.SourceMap
	return ac
}
