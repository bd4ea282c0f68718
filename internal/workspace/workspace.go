// Package workspace manages the engagement workspace directory tree.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/weirdmachine64/kali-docker-mcp/internal/config"
)

// Info describes the workspace layout to callers.
type Info struct {
	Directory string   `json:"directory"`
	Structure []string `json:"structure"`
}

// Describe returns the configured workspace directory and folder structure.
func Describe(cfg *config.Config) Info {
	return Info{
		Directory: cfg.Workspace.Directory,
		Structure: cfg.Workspace.Structure,
	}
}

// EnsureDirs creates the workspace base directory and its subdirectories.
// Existing directories are left untouched.
func EnsureDirs(cfg *config.Config) error {
	base := cfg.Workspace.Directory
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("create workspace directory %s: %w", base, err)
	}
	slog.Info("Workspace directory ready", "path", base)

	for _, subdir := range cfg.Workspace.Structure {
		full := filepath.Join(base, subdir)
		if err := os.MkdirAll(full, 0o755); err != nil {
			return fmt.Errorf("create workspace subdirectory %s: %w", full, err)
		}
	}
	return nil
}
