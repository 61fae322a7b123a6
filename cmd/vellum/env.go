package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"vellum/internal/bundle"
	"vellum/internal/config"
	"vellum/internal/diag"
	"vellum/internal/world"
)

const bundleExt = ".vbundle"

// commandEnv is what every document command needs: the project config,
// world options with flags applied, and output settings.
type commandEnv struct {
	fs             afero.Fs
	config         *config.Config
	configFound    bool
	world          world.Options
	maxDiagnostics int
	quiet          bool
	timings        bool
	ui             uiMode
}

func loadEnv(cmd *cobra.Command) (*commandEnv, error) {
	pf := cmd.Root().PersistentFlags()
	fontDir, err := pf.GetString("font-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get font-dir flag: %w", err)
	}
	noSystem, err := pf.GetBool("no-system-fonts")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-system-fonts flag: %w", err)
	}
	maxDiagnostics, err := pf.GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	quiet, err := pf.GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := pf.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	uiValue, err := pf.GetString("ui")
	if err != nil {
		return nil, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	cfg, found, err := config.Discover(fs, ".")
	if err != nil {
		return nil, err
	}

	opts := world.Options{
		FontDir:         cfg.FontDir(),
		SkipSystemFonts: !cfg.Fonts.System,
		Location:        cfg.Location(),
	}
	if fontDir != "" {
		opts.FontDir = fontDir
	}
	if noSystem {
		opts.SkipSystemFonts = true
	}

	return &commandEnv{
		fs:             fs,
		config:         cfg,
		configFound:    found,
		world:          opts,
		maxDiagnostics: maxDiagnostics,
		quiet:          quiet,
		timings:        timings,
		ui:             mode,
	}, nil
}

// loadDocuments reads a document set from the command line: either a
// single .vbundle file or a main document followed by auxiliary files.
func loadDocuments(fs afero.Fs, args []string) (bundle.Bundle, error) {
	if strings.EqualFold(filepath.Ext(args[0]), bundleExt) {
		if len(args) > 1 {
			return bundle.Bundle{}, fmt.Errorf("a bundle carries its own files; got %d extra arguments", len(args)-1)
		}
		f, err := fs.Open(args[0])
		if err != nil {
			return bundle.Bundle{}, err
		}
		defer f.Close()
		return bundle.Decode(f)
	}
	return bundle.Load(fs, args[0], args[1:])
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	okColor      = color.New(color.FgGreen, color.Bold)
)

// printDiagnostics renders bag one finding per line followed by a colored
// tally. Nothing is printed for an empty bag.
func printDiagnostics(out io.Writer, bag *diag.Bag, files diag.SourceLookup) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	if text := diag.FormatShortDiagnostics(bag.Refs(), files, true); text != "" {
		fmt.Fprintln(out, text)
	}
	var parts []string
	if n := bag.Errors(); n > 0 {
		parts = append(parts, errorColor.Sprintf("%d error(s)", n))
	}
	if n := bag.Warnings(); n > 0 {
		parts = append(parts, warningColor.Sprintf("%d warning(s)", n))
	}
	if len(parts) > 0 {
		fmt.Fprintln(out, strings.Join(parts, ", "))
	}
}

func defaultOutput(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}
