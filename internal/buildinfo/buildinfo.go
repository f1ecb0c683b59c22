// Package buildinfo carries the version stamp injected at build time.
package buildinfo

// Version is set via -ldflags "-X bridgewatch/internal/buildinfo.Version=...".
var Version = "dev"
