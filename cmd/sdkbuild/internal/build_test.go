package internal

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/sdkbuild/internal/build"
	"github.com/goplus/sdkbuild/internal/config"
	"github.com/goplus/sdkbuild/internal/projects"
	"github.com/goplus/sdkbuild/internal/toolchain"
)

func TestPick(t *testing.T) {
	tests := []struct {
		values []string
		want   string
	}{
		{[]string{"a", "b"}, "a"},
		{[]string{"", "b", "c"}, "b"},
		{[]string{"", ""}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := pick(tt.values...); got != tt.want {
			t.Errorf("pick(%q) = %q, want %q", tt.values, got, tt.want)
		}
	}
}

func TestResolveDefaults(t *testing.T) {
	cfg := config.Default("/ci")
	info, err := projects.Lookup("cegui")
	if err != nil {
		t.Fatal(err)
	}

	var f buildFlags
	s := f.resolve(cfg, info)
	if s.url != info.DefaultURL {
		t.Errorf("url = %q, want %q", s.url, info.DefaultURL)
	}
	if want := filepath.Join("/ci", "local-temp", "cegui"); s.sourceDir != want {
		t.Errorf("sourceDir = %q, want %q", s.sourceDir, want)
	}
	if want := filepath.Join("/ci", "artifacts", "unarchived"); s.depsDir != want {
		t.Errorf("depsDir = %q, want %q", s.depsDir, want)
	}
	if s.branch != "v0-8" || s.vcs != "hg" || s.strict || s.timeout != 0 {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := config.Default("/ci")
	cfg.URLs["cegui"] = "https://example.com/cegui"
	cfg.CommandTimeout = time.Hour
	cfg.Strict = true
	info, err := projects.Lookup("cegui")
	if err != nil {
		t.Fatal(err)
	}

	s := (&buildFlags{}).resolve(cfg, info)
	if s.url != "https://example.com/cegui" || s.timeout != time.Hour || !s.strict {
		t.Errorf("config not applied: %+v", s)
	}

	f := buildFlags{
		url:           "https://github.com/cegui/cegui",
		tempDir:       "/tmp/src",
		unarchivedDir: "/tmp/staging",
		branch:        "default",
		vcs:           "git",
		timeout:       time.Minute,
	}
	s = f.resolve(cfg, info)
	if s.url != f.url || s.sourceDir != filepath.Join("/tmp/src", "cegui") || s.branch != "default" || s.vcs != "git" {
		t.Errorf("flags not applied: %+v", s)
	}
	if s.depsDir != "/tmp/staging" {
		t.Errorf("depsDir = %q, want the staging directory", s.depsDir)
	}
	if s.timeout != time.Minute {
		t.Errorf("timeout = %v, want 1m", s.timeout)
	}
}

func TestResolvePinnedBranch(t *testing.T) {
	cfg := config.Default("/ci")
	info, err := projects.Lookup("cegui-dependencies")
	if err != nil {
		t.Fatal(err)
	}

	f := buildFlags{branch: "v0-8"}
	if s := f.resolve(cfg, info); s.branch != "default" {
		t.Errorf("hg branch = %q, want default", s.branch)
	}
	f.vcs = "git"
	if s := f.resolve(cfg, info); s.branch != "v0-8" {
		t.Errorf("git branch = %q, want v0-8", s.branch)
	}
}

func TestSelectedToolchains(t *testing.T) {
	reg := toolchain.Default()

	all, err := selectedToolchains(reg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("got %d toolchains, want 5", len(all))
	}

	some, err := selectedToolchains(reg, []toolchain.ID{"msvc12", "mingw"})
	if err != nil {
		t.Fatal(err)
	}
	if len(some) != 2 || some[0].ID != "msvc12" || some[1].ID != "mingw" {
		t.Errorf("unexpected selection %+v", some)
	}

	if _, err := selectedToolchains(reg, []toolchain.ID{"borland"}); !errors.Is(err, toolchain.ErrUnknownToolchain) {
		t.Errorf("err = %v, want ErrUnknownToolchain", err)
	}
}

func TestRequiredTools(t *testing.T) {
	reg := toolchain.Default()
	tcs, err := selectedToolchains(reg, []toolchain.ID{"mingw"})
	if err != nil {
		t.Fatal(err)
	}
	has := func(tools []string, name string) bool {
		for _, tool := range tools {
			if tool == name {
				return true
			}
		}
		return false
	}

	tools := requiredTools("hg", tcs, false)
	if !has(tools, "cmake") || !has(tools, "hg") {
		t.Errorf("tools = %v, want cmake and hg", tools)
	}
	if has(tools, "doxygen") {
		t.Errorf("tools = %v, doxygen required without --docs", tools)
	}
	if tools = requiredTools("hg", tcs, true); !has(tools, "doxygen") {
		t.Errorf("tools = %v, want doxygen with --docs", tools)
	}
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]int{"debug": log.Ldebug, "info": log.Linfo, "warn": log.Lwarn, "error": log.Lerror} {
		got, err := parseLevel(s)
		if err != nil || got != want {
			t.Errorf("parseLevel(%q) = %d, %v", s, got, err)
		}
	}
	if _, err := parseLevel("trace"); err == nil {
		t.Error("parseLevel(trace) succeeded")
	}
}

func TestPrintReport(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	rep := &build.Report{
		RunID:    "run-1",
		Project:  "cegui",
		Branch:   "v0-8",
		Revision: "abc123",
		Toolchains: []build.ToolchainReport{
			{
				Toolchain: "mingw",
				Gathered:  true,
				Plans:     []build.PlanReport{{BuildDir: "build-mingw-Debug", Configured: true, Contributed: true}},
			},
			{
				Toolchain: "msvc9",
				Plans: []build.PlanReport{
					{BuildDir: "build-msvc9", Err: errors.New("configuration exited with code 1")},
				},
				GatherErr: errors.New("missing build output"),
			},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, rep)
	out := buf.String()
	for _, want := range []string{
		"cegui v0-8 at abc123",
		"mingw    ok",
		"msvc9    FAILED",
		"build-msvc9: configuration exited with code 1",
		"artifacts: missing build output",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printReport(&buf, &build.Report{Project: "cegui", Revision: "abc123", Skipped: true})
	if !strings.Contains(buf.String(), "already built") {
		t.Errorf("skipped report = %q", buf.String())
	}
}

func TestPrintToolchains(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := printToolchains(cmd, toolchain.Default()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "mingw") || !strings.HasPrefix(lines[2], "msvc9 ") || !strings.HasPrefix(lines[5], "msvc12") {
		t.Errorf("unexpected order:\n%s", buf.String())
	}
	if !strings.Contains(lines[2], "Visual Studio 9 2008") {
		t.Errorf("missing generator: %q", lines[2])
	}
}
