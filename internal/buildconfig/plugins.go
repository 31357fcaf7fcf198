package buildconfig

import "slices"

// RegisterPlugins returns the descriptors in the order given. The result is a fresh
// slice so later changes by the caller do not leak into an assembled config.
// Application order matters to the bundler, nothing is sorted or deduplicated.
func RegisterPlugins[P any](descriptors []P) []P {
	if len(descriptors) == 0 {
		return []P{}
	}
	return slices.Clone(descriptors)
}
