package server

import (
	"fmt"
	"strings"

	"example.com/fitscan/internal/profile"
)

// Options configures server creation.
type Options struct {
	StorageDir string
	// OverridesPath points at an optional YAML document with per-message
	// column renames and scale overrides applied to every decode.
	OverridesPath string
	Concurrency   int
}

func loadServerOverrides(path string) (*profile.Overrides, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	ov, err := profile.LoadOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	return ov, nil
}
