// Package config loads vellum.toml, the per-project settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// FileName is the name searched for by Find.
const FileName = "vellum.toml"

// maxUTCOffset bounds [clock].utc_offset to real-world zones.
const maxUTCOffset = 14

// Config is a parsed vellum.toml.
type Config struct {
	// Path is the file the config was read from; Root is its directory.
	Path string `toml:"-"`
	Root string `toml:"-"`

	Fonts     FontsConfig      `toml:"fonts"`
	Clock     ClockConfig      `toml:"clock"`
	Documents []DocumentConfig `toml:"document"`
}

// FontsConfig is the [fonts] table. Dir is relative to Root; System adds
// the platform font directories to the scan.
type FontsConfig struct {
	Dir    string `toml:"dir"`
	System bool   `toml:"system"`
}

// ClockConfig is the [clock] table. A nil UTCOffset reads the local zone;
// otherwise the hour offset must lie within ±14.
type ClockConfig struct {
	UTCOffset *int `toml:"utc_offset"`
}

// DocumentConfig is one [[document]] entry. Paths are relative to Root.
type DocumentConfig struct {
	Main   string   `toml:"main"`
	Files  []string `toml:"files"`
	Output string   `toml:"output"`
}

// Default is the configuration used when no vellum.toml exists.
func Default() *Config {
	return &Config{Fonts: FontsConfig{System: true}}
}

// Find walks up from startDir looking for vellum.toml.
func Find(fs afero.Fs, startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := fs.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest vellum.toml above startDir. Without
// one it returns Default and false.
func Discover(fs afero.Fs, startDir string) (*Config, bool, error) {
	path, ok, err := Find(fs, startDir)
	if err != nil || !ok {
		return Default(), false, err
	}
	cfg, err := Load(fs, path)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// Load parses the file at path.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)

	if meta.IsDefined("fonts", "dir") && strings.TrimSpace(cfg.Fonts.Dir) == "" {
		return nil, fmt.Errorf("%s: [fonts].dir is empty", path)
	}
	if meta.IsDefined("clock", "utc_offset") {
		if off := *cfg.Clock.UTCOffset; off < -maxUTCOffset || off > maxUTCOffset {
			return nil, fmt.Errorf("%s: [clock].utc_offset %d out of range -%d..%d", path, off, maxUTCOffset, maxUTCOffset)
		}
	}
	for i, doc := range cfg.Documents {
		if strings.TrimSpace(doc.Main) == "" {
			return nil, fmt.Errorf("%s: [[document]] #%d is missing main", path, i+1)
		}
	}
	return cfg, nil
}

// FontDir returns [fonts].dir resolved against Root, or "".
func (c *Config) FontDir() string {
	if c.Fonts.Dir == "" {
		return ""
	}
	return c.resolve(c.Fonts.Dir)
}

// Location returns the fixed zone named by [clock].utc_offset, or nil for
// the host zone.
func (c *Config) Location() *time.Location {
	if c.Clock.UTCOffset == nil {
		return nil
	}
	off := *c.Clock.UTCOffset
	return time.FixedZone(fmt.Sprintf("UTC%+d", off), off*3600)
}

// Resolved is a [[document]] entry with absolute paths.
type Resolved struct {
	Main   string
	Files  []string
	Output string
}

// Resolve returns document i with paths made absolute. A missing output
// defaults to the main file with a .pdf extension.
func (c *Config) Resolve(i int) Resolved {
	doc := c.Documents[i]
	r := Resolved{Main: c.resolve(doc.Main)}
	for _, f := range doc.Files {
		r.Files = append(r.Files, c.resolve(f))
	}
	if doc.Output != "" {
		r.Output = c.resolve(doc.Output)
	} else {
		r.Output = strings.TrimSuffix(r.Main, filepath.Ext(r.Main)) + ".pdf"
	}
	return r
}

func (c *Config) resolve(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}
