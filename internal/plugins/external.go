package plugins

import "github.com/evanw/esbuild/pkg/api"

const ExternalURLPluginName = "external-url"

// NewExternalURLPlugin leaves http and https imports for the browser to fetch.
func NewExternalURLPlugin(_ map[string]string) (api.Plugin, error) {
	return api.Plugin{
		Name: ExternalURLPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^https?://`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:     args.Path,
						External: true,
					}, nil
				})
		},
	}, nil
}
