package env

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestStateFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CACHE_HOME is only honoured on linux")
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	path, err := StateFile()
	if err != nil {
		t.Fatalf("StateFile() returned error: %v", err)
	}

	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		t.Fatalf("os.UserCacheDir() returned error: %v", err)
	}
	if want := filepath.Join(userCacheDir, "sdkbuild", "state.json"); path != want {
		t.Errorf("StateFile() = %q, want %q", path, want)
	}

	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("directory was not created: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o700 {
		t.Errorf("directory has permissions %v, want %v", mode, os.FileMode(0o700))
	}
}

// TestStateFileIdempotent verifies that repeated calls agree and leave the
// directory in place.
func TestStateFileIdempotent(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	p1, err := StateFile()
	if err != nil {
		t.Fatalf("first StateFile() call failed: %v", err)
	}
	p2, err := StateFile()
	if err != nil {
		t.Fatalf("second StateFile() call failed: %v", err)
	}
	if p1 != p2 {
		t.Errorf("StateFile() not idempotent: %q vs %q", p1, p2)
	}
	if _, err := os.Stat(filepath.Dir(p1)); err != nil {
		t.Errorf("directory no longer exists after second call: %v", err)
	}
}
