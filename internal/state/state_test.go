package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "lastBuiltRevision-main-demo", Key("demo", "main"))
	assert.Equal(t, Key("cegui", "v0-8"), Key("cegui", "v0-8"))
	assert.NotEqual(t, Key("cegui", "v0-8"), Key("cegui", "default"))
}

func TestLoadMissingRepairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewStore(path)

	st, status, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Missing, status)
	assert.Empty(t, st)

	data, err := os.ReadFile(path)
	require.NoError(t, err, "state file should exist after load")
	assert.JSONEq(t, `{}`, string(data))

	_, status, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
}

func TestLoadMalformedRepairs(t *testing.T) {
	for name, content := range map[string]string{
		"garbage":     "not json at all",
		"truncated":   `{"lastBuiltRevision-main-demo": "abc`,
		"array":       `["abc123"]`,
		"null":        `null`,
		"non-strings": `{"lastBuiltRevision-main-demo": 42}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			st, status, err := NewStore(path).Load()
			require.NoError(t, err)
			assert.Equal(t, Malformed, status)
			assert.Empty(t, st)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.JSONEq(t, `{}`, string(data))
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path)

	st := State{}
	st.Set(Key("demo", "main"), "abc123")
	st.Set("someFutureKey", "kept")
	require.NoError(t, s.Save(st))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, status, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
	assert.Equal(t, st, loaded)

	require.NoError(t, s.Save(loaded))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestSaveLoadKeepsCompactFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	compact := `{"lastBuiltRevision-main-demo": "abc123", "other": "x"}`
	require.NoError(t, os.WriteFile(path, []byte(compact), 0o644))
	s := NewStore(path)

	st, status, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
	require.NoError(t, s.Save(st))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, compact, string(data))

	// Recording a revision that is already stored is also a no-op.
	require.NoError(t, s.Record(Key("demo", "main"), "abc123"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, compact, string(data))

	st.Set(Key("demo", "main"), "def456")
	require.NoError(t, s.Save(st))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastBuiltRevision-main-demo": "def456", "other": "x"}`, string(data))
}

func TestLoadUnreadableFileIsKept(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file makes every read fail without
	// the file being absent.
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0o644))
	s := NewStore(path)

	_, _, err := s.Load()
	assert.Error(t, err)
	assert.Error(t, s.Record(Key("demo", "main"), "abc123"))
	assert.Error(t, s.Save(State{}))
	assert.FileExists(t, filepath.Join(path, "keep"))
}

func TestLoadForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lastBuiltRevision-v0-8-cegui": "9f2c", "other": "x"}`), 0o644))

	st, status, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
	rev, ok := st.Get(Key("cegui", "v0-8"))
	assert.True(t, ok)
	assert.Equal(t, "9f2c", rev)

	_, ok = st.Get(Key("cegui", "default"))
	assert.False(t, ok)
}

func TestRecordKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStore(path)

	_, _, err := s.Load()
	require.NoError(t, err)

	// Another process records its own project after we loaded.
	other := NewStore(path)
	require.NoError(t, other.Record(Key("deps", "default"), "111"))

	require.NoError(t, s.Record(Key("demo", "main"), "abc123"))

	st, status, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Loaded, status)
	assert.Equal(t, State{
		"lastBuiltRevision-default-deps": "111",
		"lastBuiltRevision-main-demo":    "abc123",
	}, st)
}

func TestRecordOverMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o644))

	require.NoError(t, NewStore(path).Record("k", "v"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"k": "v"}`, string(data))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, NewStore(path).Save(State{"a": "b"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"state.json", "state.json.lock"}, names)
}

func TestStateClone(t *testing.T) {
	st := State{"a": "1"}
	c := st.Clone()
	c.Set("a", "2")
	c.Delete("missing")
	assert.Equal(t, "1", st["a"])
	assert.Equal(t, "2", c["a"])
}

func TestLoadStatusString(t *testing.T) {
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "missing", Missing.String())
	assert.Equal(t, "malformed", Malformed.String())
	assert.Equal(t, "LoadStatus(9)", LoadStatus(9).String())
}
