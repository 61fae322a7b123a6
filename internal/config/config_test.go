package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func writeConfig(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/proj/vellum.toml", `
[fonts]
dir = "fonts"
system = false

[clock]
utc_offset = -5

[[document]]
main = "docs/report.vel"
files = ["docs/parts/a.vel", "docs/logo.png"]

[[document]]
main = "notes.vel"
output = "out/notes.pdf"
`)
	if err := fs.MkdirAll("/proj/docs/deep", 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, found, err := Discover(fs, "/proj/docs/deep")
	if err != nil || !found {
		t.Fatalf("Discover: found=%v err=%v", found, err)
	}
	if cfg.Path != "/proj/vellum.toml" || cfg.Root != "/proj" {
		t.Errorf("path/root = %q %q", cfg.Path, cfg.Root)
	}
	if cfg.FontDir() != filepath.FromSlash("/proj/fonts") || cfg.Fonts.System {
		t.Errorf("fonts = %+v", cfg.Fonts)
	}
	loc := cfg.Location()
	if loc == nil || loc.String() != "UTC-5" {
		t.Errorf("location = %v", loc)
	}

	if len(cfg.Documents) != 2 {
		t.Fatalf("documents = %d", len(cfg.Documents))
	}
	first := cfg.Resolve(0)
	if first.Main != filepath.FromSlash("/proj/docs/report.vel") || len(first.Files) != 2 ||
		first.Output != filepath.FromSlash("/proj/docs/report.pdf") {
		t.Errorf("first = %+v", first)
	}
	if second := cfg.Resolve(1); second.Output != filepath.FromSlash("/proj/out/notes.pdf") {
		t.Errorf("second output = %q", second.Output)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg, found, err := Discover(fs, "/nowhere")
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if !cfg.Fonts.System || cfg.Location() != nil || cfg.FontDir() != "" {
		t.Errorf("default = %+v", cfg)
	}
}

func TestLoadSystemDefaultsOn(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/p/vellum.toml", "[fonts]\ndir = \"f\"\n")
	cfg, err := Load(fs, "/p/vellum.toml")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Fonts.System {
		t.Error("system fonts should stay enabled unless disabled")
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[fonts\n", "failed to parse TOML"},
		{"unknown key", "[fonts]\ncolour = 1\n", "unknown key fonts.colour"},
		{"empty dir", "[fonts]\ndir = \" \"\n", "[fonts].dir is empty"},
		{"offset range", "[clock]\nutc_offset = 20\n", "out of range"},
		{"document main", "[[document]]\noutput = \"x.pdf\"\n", "missing main"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeConfig(t, fs, "/p/vellum.toml", tt.body)
			_, err := Load(fs, "/p/vellum.toml")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
