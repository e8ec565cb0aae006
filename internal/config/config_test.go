// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/tbxtools/tbxgraph/internal/testutil"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	defaults := DefaultConfig()
	if !reflect.DeepEqual(cfg.Repositories, defaults.Repositories) {
		t.Errorf("repositories = %v, want %v", cfg.Repositories, defaults.Repositories)
	}
	if cfg.BuildInfo != defaults.BuildInfo {
		t.Errorf("build_info = %q, want %q", cfg.BuildInfo, defaults.BuildInfo)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("color scheme = %q, want auto", cfg.UI.ColorScheme)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
repositories: ["cctbx_project", "modules"]
build_info: "rules/build_info.cue"
ignore_missing: ["cbflib"]
externals: [
	{name: "GL"},
	{name: "threads", available: false},
]
ui: verbose: true
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if want := []string{"cctbx_project", "modules"}; !reflect.DeepEqual(cfg.Repositories, want) {
		t.Errorf("repositories = %v, want %v", cfg.Repositories, want)
	}
	if cfg.BuildInfo != "rules/build_info.cue" {
		t.Errorf("build_info = %q", cfg.BuildInfo)
	}
	if want := []string{"cbflib"}; !reflect.DeepEqual(cfg.IgnoreMissing, want) {
		t.Errorf("ignore_missing = %v, want %v", cfg.IgnoreMissing, want)
	}
	probe := cfg.Probe()
	if !probe["GL"] || probe["threads"] {
		t.Errorf("externals = %v", cfg.Externals)
	}
	if !cfg.UI.Verbose {
		t.Error("ui.verbose should be true")
	}
	// Untouched keys keep their defaults.
	if cfg.LockFile != DefaultConfig().LockFile {
		t.Errorf("lock_file = %q, want default", cfg.LockFile)
	}
}

func TestLoad_ExplicitFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.cue")
	if err := os.WriteFile(path, []byte(`build_info: "bi.cue"`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.BuildInfo != "bi.cue" {
		t.Errorf("build_info = %q, want bi.cue", cfg.BuildInfo)
	}
}

func TestLoad_ExplicitFileMissingFails(t *testing.T) {
	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "absent.cue"),
	})
	if err == nil {
		t.Fatal("Load() with a missing explicit file should fail")
	}
}

func TestLoad_SchemaViolationFails(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `ui: color_scheme: "sepia"`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("Load() should reject an unknown color scheme")
	}
}

func TestLoad_DuplicateRepositoryFails(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `repositories: ["modules", "modules"]`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if !errors.Is(err, ErrInvalidRepository) {
		t.Fatalf("Load() error = %v, want ErrInvalidRepository", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := &Config{
		Repositories:  []string{"cctbx_project"},
		BuildInfo:     "build_info.cue",
		IgnoreMissing: []string{"cbflib"},
		Externals:     []ExternalEntry{{Name: "GL", Available: true}, {Name: "GLU", Available: false}},
		LockFile:      "tbxgraph.lock.cue",
		UI:            UIConfig{ColorScheme: ColorSchemeDark, Verbose: true},
	}

	writeConfig(t, dir, GenerateCUE(original))
	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, original)
	}
}

func TestValidate_DuplicateExternalName(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Externals = []ExternalEntry{{Name: "GL", Available: true}, {Name: "GL", Available: false}}

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidExternalName) {
		t.Errorf("Validate() = %v, want ErrInvalidExternalName", err)
	}
}

func TestColorScheme_Validate(t *testing.T) {
	t.Parallel()

	for _, valid := range []ColorScheme{ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight} {
		if err := valid.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", valid, err)
		}
	}
	err := ColorScheme("sepia").Validate()
	if !errors.Is(err, ErrInvalidColorScheme) {
		t.Errorf("Validate(sepia) = %v, want ErrInvalidColorScheme", err)
	}
}

func TestConfigDir_OverrideWins(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir(): %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}
}

func TestConfigDir_PlatformConventions(t *testing.T) {
	Reset()
	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))

	switch runtime.GOOS {
	case "linux":
		t.Cleanup(testutil.MustSetenv(t, "XDG_CONFIG_HOME", filepath.Join(home, "xdg")))
		got, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir(): %v", err)
		}
		if want := filepath.Join(home, "xdg", AppName); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}

		t.Cleanup(testutil.MustUnsetenv(t, "XDG_CONFIG_HOME"))
		got, err = ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir(): %v", err)
		}
		if want := filepath.Join(home, ".config", AppName); got != want {
			t.Errorf("ConfigDir() without XDG_CONFIG_HOME = %q, want %q", got, want)
		}
	case "darwin":
		got, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir(): %v", err)
		}
		if want := filepath.Join(home, "Library", "Application Support", AppName); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	default:
		t.Skipf("no assertion for %s", runtime.GOOS)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig(): %v", err)
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// Idempotent: an existing file is never overwritten.
	if err := os.WriteFile(path, []byte(`build_info: "custom.cue"`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() second call: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "custom.cue") {
		t.Error("existing config file was overwritten")
	}
}
