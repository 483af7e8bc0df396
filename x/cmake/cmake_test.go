package cmake

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/sdkbuild/internal/execx"
)

func TestDefinesArgs(t *testing.T) {
	d := Defines{}
	d.Set("FOO", "BAR").SetBool("ENABLE", true).SetBool("DISABLE", false).SetString("NAME", "x y")

	assert.Equal(t, []string{
		"-DDISABLE:BOOL=OFF",
		"-DENABLE:BOOL=ON",
		"-DFOO=BAR",
		"-DNAME:STRING=x y",
	}, d.Args())
}

func TestDefinesArgsEmpty(t *testing.T) {
	assert.Nil(t, Defines{}.Args())
}

func TestCommand(t *testing.T) {
	c := New("/src/cegui", "/src/cegui/build-mingw").
		Generator("MinGW Makefiles").
		BuildType("Debug").
		Define("CMAKE_PREFIX_PATH", "/deps")

	assert.Equal(t, []string{
		"cmake", "-G", "MinGW Makefiles",
		"-DCMAKE_BUILD_TYPE:STRING=Debug",
		"-DCMAKE_PREFIX_PATH:STRING=/deps",
		"-DCEGUI_BUILD_TESTS=FALSE",
		"/src/cegui",
	}, c.Command("-DCEGUI_BUILD_TESTS=FALSE"))
}

func TestCommandIsRepeatable(t *testing.T) {
	c := New("src", "build").Toolchain("tc.cmake")
	first := c.Command()
	second := c.Command()
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"cmake", "-DCMAKE_TOOLCHAIN_FILE:STRING=tc.cmake", "src"}, first)
	assert.Empty(t, c.defines, "Command must not add to the receiver's defines")
}

func TestCommandNoGenerator(t *testing.T) {
	assert.Equal(t, []string{"cmake", "src"}, New("src", "build").Command())
	assert.Equal(t, []string{"/opt/cmake", "src"}, New("src", "build").Binary("/opt/cmake").Command())
}

func TestConfiguratorExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses true/false")
	}
	root := t.TempDir()
	buildDir := filepath.Join(root, "build")
	r := &execx.Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	ok := &Configurator{Runner: r, Binary: "true"}
	code, err := ok.Configure(context.Background(), buildDir, root, "MinGW Makefiles", []string{"-DA=1"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	fi, err := os.Stat(buildDir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	bad := &Configurator{Runner: r, Binary: "false"}
	code, err = bad.Configure(context.Background(), buildDir, root, "MinGW Makefiles", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}
