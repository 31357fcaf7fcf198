package assets

import (
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Pipeline owns an incremental esbuild context and the metadata of the latest build
type Pipeline struct {
	config   Config
	plugins  []api.Plugin
	log      zerolog.Logger
	buildCtx api.BuildContext
	metadata *BuildMetadata
	tmpl     *template.Template
	mu       sync.RWMutex
}

// New creates a pipeline running the given plugins in order. The template is parsed
// now so a broken template fails before the server starts.
func New(config Config, plugins []api.Plugin, log zerolog.Logger) (*Pipeline, error) {
	if filepath.IsAbs(config.OutputDir) {
		return nil, errors.New("output directory must be relative to the project root")
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	config.Root = root

	p := &Pipeline{
		config:  config,
		plugins: plugins,
		log:     log,
	}

	if config.TemplatePath != "" {
		path := config.TemplatePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(config.Root, path)
		}
		tmpl, err := template.New(filepath.Base(path)).ParseFiles(path)
		if err != nil {
			return nil, err
		}
		p.tmpl = tmpl
	}

	return p, nil
}

// OutputDir returns the absolute output directory
func (p *Pipeline) OutputDir() string {
	return filepath.Join(p.config.Root, p.config.OutputDir)
}

// URLPrefix is the request path the output directory is served under
func (p *Pipeline) URLPrefix() string {
	return "/" + filepath.ToSlash(filepath.Clean(p.config.OutputDir)) + "/"
}

// HasTemplate reports whether an index template was configured
func (p *Pipeline) HasTemplate() bool {
	return p.tmpl != nil
}
