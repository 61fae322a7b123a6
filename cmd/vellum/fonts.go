package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"vellum/internal/font"
	"vellum/internal/fontres"
)

var fontsCmd = &cobra.Command{
	Use:   "fonts [flags]",
	Short: "List the fonts a compilation would see",
	Args:  cobra.NoArgs,
	RunE:  fontsExecution,
}

func init() {
	fontsCmd.Flags().String("format", "text", "output format (text|json|yaml)")
	fontsCmd.Flags().String("family", "", "only list faces of this family (case-insensitive)")
}

type fontRow struct {
	Family     string `json:"family" yaml:"family"`
	Subfamily  string `json:"subfamily,omitempty" yaml:"subfamily,omitempty"`
	PostScript string `json:"postscript,omitempty" yaml:"postscript,omitempty"`
	Style      string `json:"style" yaml:"style"`
	Weight     uint16 `json:"weight" yaml:"weight"`
	Stretch    uint16 `json:"stretch" yaml:"stretch"`
	Glyphs     int    `json:"glyphs" yaml:"glyphs"`
	Coverage   int    `json:"coverage" yaml:"coverage"`
	Path       string `json:"path" yaml:"path"`
}

func fontsExecution(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	family, err := cmd.Flags().GetString("family")
	if err != nil {
		return err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or yaml)", format)
	}

	book, res := fontres.New(cmd.Context(), fontres.Options{
		FontDir:         env.world.FontDir,
		SkipSystemFonts: env.world.SkipSystemFonts,
		FS:              env.fs,
	})
	rows := collectFontRows(book, res, family)

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		renderFontTable(out, rows)
		if !env.quiet {
			fmt.Fprintf(out, "%d faces, %d families\n", len(rows), countFamilies(rows))
		}
		return nil
	}
}

func collectFontRows(book *font.Book, res *fontres.Resolver, family string) []fontRow {
	rows := make([]fontRow, 0, book.Len())
	for i := 0; i < book.Len(); i++ {
		info, ok := book.Info(i)
		if !ok {
			continue
		}
		if family != "" && !strings.EqualFold(info.Family, family) {
			continue
		}
		rows = append(rows, fontRow{
			Family:     info.Family,
			Subfamily:  info.Subfamily,
			PostScript: info.PostScriptName,
			Style:      info.Variant.Style.String(),
			Weight:     uint16(info.Variant.Weight),
			Stretch:    uint16(info.Variant.Stretch),
			Glyphs:     info.NumGlyphs,
			Coverage:   info.Coverage.Count(),
			Path:       res.Path(i),
		})
	}
	return rows
}

func countFamilies(rows []fontRow) int {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[strings.ToLower(r.Family)] = struct{}{}
	}
	return len(seen)
}

// renderFontTable prints rows as aligned columns. Family names may hold
// wide characters, so widths are measured in terminal cells.
func renderFontTable(out io.Writer, rows []fontRow) {
	header := []string{"FAMILY", "STYLE", "WEIGHT", "GLYPHS", "PATH"}
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, r := range rows {
		cells = append(cells, []string{
			r.Family,
			r.Style,
			fmt.Sprint(r.Weight),
			fmt.Sprint(r.Glyphs),
			r.Path,
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for c, v := range row {
			widths[c] = max(widths[c], runewidth.StringWidth(v))
		}
	}

	var b strings.Builder
	for _, row := range cells {
		b.Reset()
		for c, v := range row {
			if c == len(row)-1 {
				b.WriteString(v)
				break
			}
			b.WriteString(runewidth.FillRight(v, widths[c]))
			b.WriteString("  ")
		}
		fmt.Fprintln(out, b.String())
	}
}
