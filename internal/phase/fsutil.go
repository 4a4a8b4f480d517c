package phase

import (
	"os"
	"path/filepath"
)

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
