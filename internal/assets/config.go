package assets

import "path/filepath"

type Config struct {
	// Project directory, all other paths are relative to it. Empty or relative
	// values resolve against the working directory.
	Root string
	// Entry point glob pattern (e.g., "src/*.tsx")
	EntryPointGlob string
	// Output directory for built files
	OutputDir string
	// Path to metafile
	MetafilePath string
	// HTML template for the index page, optional
	TemplatePath string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		EntryPointGlob: "src/*.tsx",
		OutputDir:      "dist",
		MetafilePath:   filepath.Join("dist", "meta.json"),
		SourceMap:      true,
	}
}
