package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

type homeKey struct{}

// WithHome stores the workforce home path in the context.
func WithHome(ctx context.Context, home string) context.Context {
	return context.WithValue(ctx, homeKey{}, home)
}

// HomeFrom returns the workforce home path from the context, if set.
func HomeFrom(ctx context.Context) (string, bool) {
	v := ctx.Value(homeKey{})
	s, ok := v.(string)
	return s, ok
}

// MustHomeFrom returns the home path from the context, or panics if not set.
func MustHomeFrom(ctx context.Context) string {
	if h, ok := HomeFrom(ctx); ok && h != "" {
		return h
	}
	panic("workforce home missing from context")
}

// ResolveHome returns the workforce home directory (override, WORKFORCE_HOME, or default ~/.workforce).
func ResolveHome(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}
	if env := os.Getenv("WORKFORCE_HOME"); env != "" {
		return filepath.Clean(env), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine user home directory")
	}
	return filepath.Join(home, ".workforce"), nil
}

// GraphPath returns the default capability graph document location: <home>/graph.yaml.
func GraphPath(home string) string { return filepath.Join(home, "graph.yaml") }

// RulesetPath returns the default ruleset location: <home>/ruleset.yaml.
func RulesetPath(home string) string { return filepath.Join(home, "ruleset.yaml") }

// CheckpointsDir returns the checkpoint snapshot directory: <home>/checkpoints.
func CheckpointsDir(home string) string { return filepath.Join(home, "checkpoints") }
