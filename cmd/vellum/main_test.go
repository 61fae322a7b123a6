package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"vellum/internal/buildpipeline"
	"vellum/internal/bundle"
	"vellum/internal/diag"
	"vellum/internal/source"
)

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		input string
		want  uiMode
		err   bool
	}{
		{"", uiModeAuto, false},
		{"auto", uiModeAuto, false},
		{" ON ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.input)
		if tc.err {
			if err == nil {
				t.Fatalf("readUIMode(%q) expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("readUIMode(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestPrintStageTimings(t *testing.T) {
	var timings buildpipeline.Timings
	timings.Set(buildpipeline.StageExport, 2*time.Millisecond)
	timings.Set(buildpipeline.StageFonts, 1500*time.Microsecond)

	var out bytes.Buffer
	printStageTimings(&out, timings)
	want := "fonts 1.5 ms\nexported 2.0 ms\n"
	if out.String() != want {
		t.Fatalf("timings output = %q, want %q", out.String(), want)
	}
}

func TestDefaultOutput(t *testing.T) {
	cases := []struct{ in, ext, want string }{
		{"report.vel", ".pdf", "report.pdf"},
		{"docs/a.b.vel", ".vbundle", "docs/a.b.vbundle"},
		{"noext", ".pdf", "noext.pdf"},
	}
	for _, tc := range cases {
		if got := defaultOutput(tc.in, tc.ext); got != tc.want {
			t.Fatalf("defaultOutput(%q, %q) = %q, want %q", tc.in, tc.ext, got, tc.want)
		}
	}
}

func TestLoadDocuments(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/p/main.vel", []byte("= Hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/p/parts/a.vel", []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := loadDocuments(fs, []string{"/p/main.vel", "/p/parts/a.vel"})
	if err != nil {
		t.Fatalf("loadDocuments: %v", err)
	}
	if set.Main.Name != "/main.vel" || len(set.Files) != 1 || set.Files[0].Name != "/parts/a.vel" {
		t.Fatalf("unexpected names: main=%q files=%v", set.Main.Name, set.Files)
	}

	data, err := bundle.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/p/set.VBUNDLE", data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := loadDocuments(fs, []string{"/p/set.VBUNDLE"})
	if err != nil {
		t.Fatalf("loadDocuments(bundle): %v", err)
	}
	if got.Main.Name != "/main.vel" || len(got.Files) != 1 {
		t.Fatalf("bundle round trip lost documents: %+v", got)
	}
	if _, err := loadDocuments(fs, []string{"/p/set.VBUNDLE", "/p/parts/a.vel"}); err == nil {
		t.Fatal("a bundle with extra arguments should be rejected")
	}
}

func TestLoadDocumentsCorruptBundle(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/x.vbundle", []byte("not msgpack"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := loadDocuments(fs, []string{"/x.vbundle"})
	if !errors.Is(err, bundle.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestPrintDiagnostics(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	main := source.NewDocument("main.vel", []byte("#bogus\n"))
	store := source.NewStore(main)
	bag := diag.NewBag(10)
	span := source.Span{File: main.ID, Start: 0, End: 6}
	bag.Add(diag.NewError(diag.SynUnknownDirective, span, "unknown directive"))
	bag.Add(diag.NewWarning(diag.ResMissingGlyph, span, "no font covers it"))

	var out bytes.Buffer
	printDiagnostics(&out, bag, store)
	text := out.String()
	if !strings.Contains(text, "main.vel:1:1") {
		t.Fatalf("missing location in %q", text)
	}
	if !strings.HasSuffix(text, "1 error(s), 1 warning(s)\n") {
		t.Fatalf("missing tally in %q", text)
	}

	out.Reset()
	printDiagnostics(&out, diag.NewBag(10), store)
	if out.Len() != 0 {
		t.Fatalf("empty bag printed %q", out.String())
	}
}

func TestRenderFontTableAlignsWideNames(t *testing.T) {
	rows := []fontRow{
		{Family: "Go", Style: "normal", Weight: 400, Glyphs: 665, Path: "/f/Go-Regular.ttf"},
		{Family: "明朝", Style: "italic", Weight: 700, Glyphs: 12, Path: "/f/mincho.ttf"},
	}
	var out bytes.Buffer
	renderFontTable(&out, rows)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", out.String())
	}
	// "明朝" занимает 4 ячейки
	if !strings.HasPrefix(lines[1], "Go      normal") {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "明朝    italic") {
		t.Fatalf("row 2 = %q", lines[2])
	}
	if countFamilies(append(rows, fontRow{Family: "GO"})) != 2 {
		t.Fatal("family count should ignore case")
	}
}

func TestViewBundle(t *testing.T) {
	set := bundle.New(source.NewDocument("main.vel", []byte("hi")), source.NewDocument("b.vel", []byte("abc")))
	view := viewBundle(set)
	if view.Size != 5 || len(view.Entries) != 2 {
		t.Fatalf("view = %+v", view)
	}
	if !view.Entries[0].Main || view.Entries[1].Main {
		t.Fatal("only the first entry is main")
	}
	if len(view.Entries[0].SHA256) != 64 {
		t.Fatalf("digest should be hex sha256, got %q", view.Entries[0].SHA256)
	}
	var out bytes.Buffer
	renderBundleText(&out, view)
	if !strings.Contains(out.String(), "*        2  ") || !strings.Contains(out.String(), "/b.vel") {
		t.Fatalf("text view = %q", out.String())
	}
}
