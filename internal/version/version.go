// Package version exposes the build version embedded from VERSION.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// UserAgent identifies herd to remote providers.
func UserAgent() string {
	return "herd/" + Get()
}
