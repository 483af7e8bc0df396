// Package env resolves the per-user directories sdkbuild keeps its files in.
package env

import (
	"os"
	"path/filepath"
)

// WorkDir returns the per-user sdkbuild directory under the user cache
// directory.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, "sdkbuild"), nil
}

// StateFile returns the default build state file location and makes sure
// its directory exists.
func StateFile() (string, error) {
	dir, err := WorkDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}
