// Package version records the build version.
package version

// Version is the application version, overridden at link time via
// -ldflags "-X github.com/lottokit/drawgen/internal/version.Version=...".
var Version = "dev"
