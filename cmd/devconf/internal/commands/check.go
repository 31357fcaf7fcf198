package commands

import (
	"context"
	"io"
	"os"

	"github.com/wolfeidau/devconf/internal/plugins"
	"gopkg.in/yaml.v3"
)

type CheckCmd struct {
	ConfigFlags `embed:""`

	out io.Writer `kong:"-"`
}

type checkReport struct {
	Root    string       `yaml:"root"`
	Plugins []string     `yaml:"plugins"`
	Server  serverReport `yaml:"server"`
	Build   buildReport  `yaml:"build"`
}

type serverReport struct {
	Listen      string   `yaml:"listen"`
	TLS         bool     `yaml:"tls"`
	KeyBytes    int      `yaml:"keyBytes,omitempty"`
	CertBytes   int      `yaml:"certBytes,omitempty"`
	CORSOrigins []string `yaml:"cors,omitempty"`
}

type buildReport struct {
	EntryPoints string `yaml:"entryPoints"`
	OutDir      string `yaml:"outdir"`
	Template    string `yaml:"template,omitempty"`
}

func (c *CheckCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, bc, err := c.assemble(ctx, plugins.Default())
	if err != nil {
		return err
	}

	report := checkReport{
		Root:    cfg.Root,
		Plugins: []string{},
		Server: serverReport{
			Listen:      bc.Server().Listen(),
			TLS:         bc.Server().TLSEnabled(),
			CORSOrigins: cfg.Server.CORSOrigins,
		},
		Build: buildReport{
			EntryPoints: cfg.Build.EntryPoints,
			OutDir:      cfg.Build.OutDir,
			Template:    cfg.Build.Template,
		},
	}

	for _, p := range bc.Plugins() {
		report.Plugins = append(report.Plugins, p.Name)
	}

	if material, ok := bc.Server().TLS(); ok {
		report.Server.KeyBytes = len(material.Key())
		report.Server.CertBytes = len(material.Cert())
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}
