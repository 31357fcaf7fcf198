package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const AliasPluginName = "alias"

// NewAliasPlugin rewrites import prefixes to directories, options map an alias to its
// target such as "@" -> "./src". Relative targets resolve against the build working directory.
func NewAliasPlugin(options map[string]string) (api.Plugin, error) {
	if len(options) == 0 {
		return api.Plugin{}, errors.New("alias requires at least one mapping")
	}

	// longest alias first so "@app" wins over "@"
	aliases := make([]string, 0, len(options))
	for alias, target := range options {
		if alias == "" || target == "" {
			return api.Plugin{}, fmt.Errorf("invalid alias mapping %q -> %q", alias, target)
		}
		aliases = append(aliases, alias)
	}
	slices.SortFunc(aliases, func(a, b string) int {
		return len(b) - len(a)
	})

	quoted := make([]string, len(aliases))
	for i, alias := range aliases {
		quoted[i] = regexp.QuoteMeta(alias)
	}
	filter := `^(` + strings.Join(quoted, "|") + `)(/|$)`

	return api.Plugin{
		Name: AliasPluginName,
		Setup: func(build api.PluginBuild) {
			workingDir := build.InitialOptions.AbsWorkingDir
			if workingDir == "" {
				workingDir, _ = os.Getwd()
			}

			build.OnResolve(api.OnResolveOptions{Filter: filter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					for _, alias := range aliases {
						rest, ok := strings.CutPrefix(args.Path, alias)
						if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
							continue
						}

						target := options[alias]
						if !filepath.IsAbs(target) {
							target = filepath.Join(workingDir, target)
						}

						result := build.Resolve(filepath.Join(target, rest), api.ResolveOptions{
							Importer:   args.Importer,
							ResolveDir: args.ResolveDir,
							Kind:       args.Kind,
						})
						if len(result.Errors) > 0 {
							return api.OnResolveResult{}, fmt.Errorf("alias %s: %s", alias, result.Errors[0].Text)
						}

						return api.OnResolveResult{
							Path:      result.Path,
							External:  result.External,
							Namespace: result.Namespace,
						}, nil
					}
					return api.OnResolveResult{}, nil
				})
		},
	}, nil
}
