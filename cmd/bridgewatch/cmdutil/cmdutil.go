// Package cmdutil holds shared plumbing for bridgewatch subcommands:
// endpoint resolution from flags and contexts, and default paths.
package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bridgewatch/bridge"
	"bridgewatch/config"
)

// DefaultSocketPath returns the daemon socket location, preferring the
// user runtime directory.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "bridgewatch.sock")
	}
	return filepath.Join(os.TempDir(), "bridgewatch.sock")
}

// DefaultDBPath returns the history database location under the user data
// directory.
func DefaultDBPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "bridgewatch", "history.db")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "bridgewatch", "history.db")
}

// Resolve picks the bridge context to talk to: an explicit --endpoint wins,
// then a named --context, then the config's current context.
func Resolve(endpoint, contextName string) (config.Context, error) {
	if strings.TrimSpace(endpoint) != "" {
		return config.Context{Endpoint: strings.TrimSpace(endpoint)}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Context{}, err
	}

	if contextName != "" {
		ctx, ok := cfg.Contexts[contextName]
		if !ok {
			return config.Context{}, fmt.Errorf("context %q not found", contextName)
		}
		return ctx, nil
	}

	if _, ctx, ok := cfg.Current(); ok {
		return ctx, nil
	}
	return config.Context{}, fmt.Errorf("no bridge endpoint: pass --endpoint or configure a context")
}

// NewClient resolves the context and builds a bridge API client from it.
func NewClient(endpoint, contextName string) (*bridge.Client, config.Context, error) {
	ctx, err := Resolve(endpoint, contextName)
	if err != nil {
		return nil, config.Context{}, err
	}
	client, err := bridge.New(ctx.Endpoint)
	if err != nil {
		return nil, config.Context{}, err
	}
	return client, ctx, nil
}
