package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mydehq/imgpack/internal/types"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := GetDefaults()
	if cfg.Depth != def.Depth || cfg.OutputPrefix != def.OutputPrefix || cfg.Server.Addr != def.Server.Addr {
		t.Errorf("Load() = %+v; want defaults", cfg)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q; want empty", cfg.Path)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `
tabs: [v1, mp4]
recursive: true
server:
  addr: ":9000"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Tabs) != 2 || cfg.Tabs[0] != "v1" || cfg.Tabs[1] != "mp4" {
		t.Errorf("Tabs = %q; want [v1 mp4]", cfg.Tabs)
	}
	if !cfg.Recursive {
		t.Error("Recursive = false; want true")
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q; want :9000", cfg.Server.Addr)
	}
	if cfg.Server.MaxConns != GetDefaults().Server.MaxConns {
		t.Errorf("Server.MaxConns = %d; want default", cfg.Server.MaxConns)
	}
	if cfg.OutputPrefix != "imgshare" {
		t.Errorf("OutputPrefix = %q; want imgshare", cfg.OutputPrefix)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q; want %q", cfg.Path, path)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "tabs: [unterminated"},
		{"reserved tab", "tabs: [all]"},
		{"negative depth", "depth: -1"},
		{"bad level", "log_level: loud"},
		{"bad prefix", "output_prefix: a/b"},
		{"negative rate", "server:\n  export_rate: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			os.WriteFile(path, []byte(tt.data), 0o644)

			_, err := Load(path)
			var cfgErr types.ErrConfig
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Load() error = %v; want ErrConfig", err)
			}
			if cfgErr.Path != path {
				t.Errorf("ErrConfig.Path = %q; want %q", cfgErr.Path, path)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgpack", "config.yml")
	cfg := GetDefaults()
	cfg.Tabs = []string{"cat", "dog"}
	cfg.Zip = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Tabs) != 2 || !got.Zip {
		t.Errorf("Load() = %+v; want saved values", got)
	}
}

func TestGenerateDefault_NoClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	os.WriteFile(path, []byte("zip: true\n"), 0o644)

	if err := GenerateDefault(path, false); !errors.Is(err, os.ErrExist) {
		t.Fatalf("GenerateDefault() error = %v; want ErrExist", err)
	}
	if err := GenerateDefault(path, true); err != nil {
		t.Fatalf("GenerateDefault(force) error = %v", err)
	}
	cfg, _ := Load(path)
	if cfg.Zip {
		t.Error("forced defaults did not replace the file")
	}
}

func TestGlobalPath_Env(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/custom.yml")
	got, err := GlobalPath()
	if err != nil || got != "/tmp/custom.yml" {
		t.Errorf("GlobalPath() = %q, %v; want /tmp/custom.yml", got, err)
	}

	t.Setenv(EnvPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got, _ = GlobalPath()
	if want := filepath.Join("/xdg", "imgpack", "config.yml"); got != want {
		t.Errorf("GlobalPath() = %q; want %q", got, want)
	}
}

func TestClone(t *testing.T) {
	cfg := GetDefaults()
	cfg.Tabs = []string{"a"}
	c := cfg.Clone()
	c.Tabs[0] = "b"
	if cfg.Tabs[0] != "a" {
		t.Error("Clone() shares the Tabs slice")
	}
}
