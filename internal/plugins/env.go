package plugins

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const (
	EnvPluginName = "env"

	// DefaultEnvPrefix limits which variables reach the browser bundle
	DefaultEnvPrefix = "DEVCONF_PUBLIC_"

	envNamespace = "devconf-env"
)

// NewEnvPlugin exposes environment variables as a virtual "env" module.
//
//	import env from "env"
//	fetch(env.DEVCONF_PUBLIC_API_URL)
//
// Only variables starting with the "prefix" option are included.
func NewEnvPlugin(options map[string]string) (api.Plugin, error) {
	prefix, ok := options["prefix"]
	if !ok {
		prefix = DefaultEnvPrefix
	}

	return api.Plugin{
		Name: EnvPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^env$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      args.Path,
						Namespace: envNamespace,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: envNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := json.Marshal(publicEnv(prefix))
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := string(data)
					return api.OnLoadResult{
						Contents: &contents,
						Loader:   api.LoaderJSON,
					}, nil
				})
		},
	}, nil
}

func publicEnv(prefix string) map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		vars[key] = value
	}
	return vars
}
