package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/devconf/internal/telemetry"
	"go.opentelemetry.io/otel"
)

const (
	metadataPluginName = "devconf-metadata"
	tracerName         = "github.com/wolfeidau/devconf/internal/assets"
)

// Start globs the entry points and creates the esbuild context. Nothing is built yet.
func (p *Pipeline) Start() error {
	// glob inside the root so metacharacters in the root path are not a pattern
	pattern := path.Clean(filepath.ToSlash(p.config.EntryPointGlob))
	entryPoints, err := fs.Glob(os.DirFS(p.config.Root), pattern)
	if err != nil {
		return err
	}

	if len(entryPoints) == 0 {
		return fmt.Errorf("no entry points found matching %s", p.config.EntryPointGlob)
	}

	p.log.Info().Strs("entrypoints", entryPoints).Msg("Preparing assets")

	// user plugins run in declared order, metadata collection always runs last
	plugins := append(append([]api.Plugin{}, p.plugins...), p.metadataPlugin())

	buildCtx, ctxErr := api.Context(api.BuildOptions{
		EntryPoints:       entryPoints,
		AbsWorkingDir:     p.config.Root,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		JSX:               api.JSXAutomatic,
		Outdir:            p.config.OutputDir,
		Format:            api.FormatESModule,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
		Plugins:           plugins,
		LogLevel:          api.LogLevelSilent,
	})
	if ctxErr != nil {
		return fmt.Errorf("failed to create build context: %s", messages(ctxErr.Errors))
	}

	p.buildCtx = buildCtx
	return nil
}

// Build runs one incremental build. Metadata is refreshed by the metadata plugin.
func (p *Pipeline) Build(ctx context.Context) error {
	if p.buildCtx == nil {
		return errors.New("pipeline not started, call Start() first")
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "assets.Build")
	defer span.End()

	result := p.buildCtx.Rebuild()
	if len(result.Errors) > 0 {
		err := fmt.Errorf("esbuild failed with errors: %s", messages(result.Errors))
		span.RecordError(err)
		return err
	}

	return nil
}

// Watch rebuilds whenever an input file changes until Close is called
func (p *Pipeline) Watch() error {
	if p.buildCtx == nil {
		return errors.New("pipeline not started, call Start() first")
	}
	return p.buildCtx.Watch(api.WatchOptions{})
}

// Close disposes the esbuild context
func (p *Pipeline) Close() {
	if p.buildCtx != nil {
		p.buildCtx.Dispose()
		p.buildCtx = nil
	}
}

func (p *Pipeline) metadataPlugin() api.Plugin {
	return api.Plugin{
		Name: metadataPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				ctx := context.Background()
				m := telemetry.GetMetrics()
				m.BuildsTotal.Add(ctx, 1)

				if len(result.Errors) > 0 {
					m.BuildErrorsTotal.Add(ctx, 1)
					for _, msg := range result.Errors {
						p.log.Error().Str("error", msg.Text).Msg("Build error")
					}
					return api.OnEndResult{}, nil
				}

				if err := p.storeMetadata(result.Metafile); err != nil {
					return api.OnEndResult{}, err
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (p *Pipeline) storeMetadata(metafile string) error {
	metafilePath := p.config.MetafilePath
	if !filepath.IsAbs(metafilePath) {
		metafilePath = filepath.Join(p.config.Root, metafilePath)
	}
	if err := os.MkdirAll(filepath.Dir(metafilePath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(metafilePath, []byte(metafile), 0600); err != nil {
		return err
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(metafile), &metadata); err != nil {
		return err
	}

	outputs := make([]string, 0, len(metadata.Outputs))
	for output := range metadata.Outputs {
		outputs = append(outputs, output)
	}
	sort.Strings(outputs)
	p.log.Info().Strs("files", outputs).Msg("Built assets")
	telemetry.GetMetrics().BuildOutputsTotal.Add(context.Background(), int64(len(outputs)))

	p.mu.Lock()
	p.metadata = &metadata
	p.mu.Unlock()

	return nil
}

// LoadScripts returns the ordered list of script paths needed for the given entrypoint
// and the main entrypoint file path
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", errors.New("assets not built yet, call Build() first")
	}

	scripts := []string{}
	visited := make(map[string]bool)
	var entrypoint string

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath {
			entrypoint = "/" + outputPath
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", fmt.Errorf("entrypoint %s not found in metadata", entryPointPath)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, "/"+imp.Path)

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// Handler returns an http.HandlerFunc that renders the index template with the scripts of the entrypoint
func (p *Pipeline) Handler(title, entryPointPath string) (http.HandlerFunc, error) {
	if p.tmpl == nil {
		return nil, errors.New("template not configured")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		scripts, _, err := p.LoadScripts(entryPointPath)
		if err != nil {
			p.log.Error().Err(err).Msg("Failed to load scripts")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := map[string]any{
			"Title":   title,
			"Scripts": scripts,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := p.tmpl.Execute(w, data); err != nil {
			p.log.Error().Err(err).Msg("Failed to render template")
		}
	}, nil
}

// EntryPoints returns the entry points of the latest build, sorted
func (p *Pipeline) EntryPoints() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil
	}

	var entries []string
	for _, info := range p.metadata.Outputs {
		if info.EntryPoint != "" {
			entries = append(entries, info.EntryPoint)
		}
	}
	sort.Strings(entries)
	return entries
}

func messages(msgs []api.Message) string {
	if len(msgs) == 0 {
		return "unknown error"
	}
	text := msgs[0].Text
	if len(msgs) > 1 {
		text = fmt.Sprintf("%s (and %d more)", text, len(msgs)-1)
	}
	return text
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
