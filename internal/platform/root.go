package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/notefold/pkg/adapters/fs"
)

// FindRoot looks upwards from startDir for a store root, recognized by the
// Uncategorized bucket directory. An empty bucket name uses the default.
func FindRoot(startDir, uncategorized string) (string, error) {
	if uncategorized == "" {
		uncategorized = fs.DefaultUncategorized
	}
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if isDir(filepath.Join(dir, uncategorized)) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("root not found")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
