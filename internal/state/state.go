// Package state persists the last successfully built source revision of
// each project and branch.
//
// The state file is a single JSON object of string keys to string values:
//
//	{
//	  "lastBuiltRevision-v0-8-cegui": "6b1f0e3a9c2d"
//	}
//
// Keys the program does not know about are preserved across saves.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Key returns the state key recording the last built revision of project on
// branch.
func Key(project, branch string) string {
	return fmt.Sprintf("lastBuiltRevision-%s-%s", branch, project)
}

// State maps keys to revisions. A missing key means "never built".
type State map[string]string

// Get returns the revision recorded under key.
func (s State) Get(key string) (string, bool) {
	rev, ok := s[key]
	return rev, ok
}

// Set records rev under key.
func (s State) Set(key, rev string) {
	s[key] = rev
}

// Delete removes key.
func (s State) Delete(key string) {
	delete(s, key)
}

// Clone returns an independent copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// LoadStatus tells how a state file looked when it was loaded.
type LoadStatus int

const (
	// Loaded means the file existed and was well-formed.
	Loaded LoadStatus = iota
	// Missing means there was no file yet; expected on the first run.
	Missing
	// Malformed means the file existed but could not be read as a state
	// object. Its content has been replaced.
	Malformed
)

func (s LoadStatus) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Missing:
		return "missing"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("LoadStatus(%d)", int(s))
}

// -----------------------------------------------------------------------------

// Store reads and writes a state file. Access is serialized across
// processes with a lock file next to it.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) lock() *flock.Flock {
	return flock.New(s.path + ".lock")
}

// Load reads the state file. A missing or malformed file yields an empty
// State and is replaced on disk by an empty, valid one; the returned status
// tells the two cases apart. A file that exists but cannot be read is left
// alone and reported as an error, as is a failed repair write.
func (s *Store) Load() (State, LoadStatus, error) {
	st, status, err := s.read()
	if err != nil {
		return nil, status, err
	}
	if status != Loaded {
		if err := s.Save(st); err != nil {
			return nil, status, fmt.Errorf("repair state file: %w", err)
		}
	}
	return st, status, nil
}

func (s *Store) read() (State, LoadStatus, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, Missing, err
	}
	fl := s.lock()
	if err := fl.RLock(); err != nil {
		return nil, Missing, fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer fl.Unlock()
	return s.current()
}

func decode(data []byte) (State, LoadStatus, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil || st == nil {
		return State{}, Malformed, nil
	}
	return st, Loaded, nil
}

// Save overwrites the state file with st. Readers never observe a partially
// written file. A well-formed file already holding exactly st is left
// untouched, whatever its formatting.
func (s *Store) Save(st State) error {
	if st == nil {
		st = State{}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	fl := s.lock()
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer fl.Unlock()

	cur, status, err := s.current()
	if err != nil {
		return err
	}
	if status == Loaded && maps.Equal(cur, st) {
		return nil
	}
	return s.write(st)
}

// Record stores rev under key, re-reading the file under the lock so that
// keys written by other processes since Load are kept.
func (s *Store) Record(key, rev string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	fl := s.lock()
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer fl.Unlock()

	st, status, err := s.current()
	if err != nil {
		return err
	}
	if last, ok := st.Get(key); ok && last == rev && status == Loaded {
		return nil
	}
	st.Set(key, rev)
	return s.write(st)
}

// current reads the file while the caller holds the lock.
func (s *Store) current() (State, LoadStatus, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, Missing, nil
	}
	if err != nil {
		return nil, Missing, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decode(data)
}

func (s *Store) write(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		tmp = nil
		return fmt.Errorf("rename %s: %w", path, err)
	}
	tmp = nil
	return nil
}
