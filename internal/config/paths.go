package config

import (
	"os"
	"path/filepath"
)

func defaultWorkspaceDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "contentmcp")
	}
	return filepath.Join(os.TempDir(), "contentmcp")
}
