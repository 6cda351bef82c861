// Package version carries the gateway build version, embedded from the
// VERSION file at compile time.
package version

import (
	_ "embed"
)

//go:embed VERSION
var Version string

// Get returns the gateway version string
func Get() string {
	return Version
}
