package typeset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"vellum/internal/diag"
	"vellum/internal/font"
	"vellum/internal/source"
)

type testWorld struct {
	store *source.Store
	book  *font.Book
	fonts []*font.Font
	now   Datetime
	nowOK bool
}

func newWorld(t *testing.T, withFonts bool, main string, others ...source.Document) *testWorld {
	t.Helper()
	w := &testWorld{
		store: source.NewStore(source.NewDocument("main.vel", []byte(main)), others...),
		book:  font.NewBook(),
	}
	if withFonts {
		for _, ttf := range [][]byte{goregular.TTF, gobold.TTF} {
			f := font.New(source.NewBytes(ttf), 0)
			if f == nil {
				t.Fatal("decode go font")
			}
			w.book.Push(f.Info())
			w.fonts = append(w.fonts, f)
		}
	}
	w.now, w.nowOK = DatetimeFromYMDHMS(2024, 5, 17, 9, 30, 0)
	return w
}

func (w *testWorld) Library() *Library { return DefaultLibrary() }
func (w *testWorld) Book() *font.Book { return w.book }
func (w *testWorld) Main() *source.Source {
	src, err := w.store.Source(w.store.Main())
	if err != nil {
		panic(err)
	}
	return src
}
func (w *testWorld) Source(id source.FileID) (*source.Source, error) { return w.store.Source(id) }
func (w *testWorld) File(id source.FileID) (source.Bytes, error) { return w.store.File(id) }
func (w *testWorld) Font(i int) *font.Font {
	if i < 0 || i >= len(w.fonts) {
		return nil
	}
	return w.fonts[i]
}
func (w *testWorld) Now() (Datetime, bool) { return w.now, w.nowOK }
func (w *testWorld) Today(offset *int64) (Datetime, bool) {
	if !w.nowOK {
		return Datetime{}, false
	}
	d := w.now
	if offset != nil {
		d.Day += uint8(*offset / 24)
	}
	return DatetimeFromYMD(d.Year, d.Month, d.Day)
}

func compile(t *testing.T, w World) (*Document, *diag.Bag, error) {
	t.Helper()
	bag := diag.NewBag(100)
	doc, err := Compile(w, diag.BagReporter{Bag: bag})
	return doc, bag, err
}

func codes(bag *diag.Bag) []string {
	var out []string
	for _, d := range bag.Items() {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestCompileBasicDocument(t *testing.T) {
	src := `#set title "Report"
#set author "Team \"Vellum\""
= Introduction
First line
continues here.

// a comment
Second paragraph.
#pagebreak
== Details
`
	doc, bag, err := compile(t, newWorld(t, true, src))
	if err != nil {
		t.Fatalf("Compile: %v\n%v", err, codes(bag))
	}
	if doc.Title != "Report" || doc.Author != `Team "Vellum"` {
		t.Errorf("title/author = %q/%q", doc.Title, doc.Author)
	}

	want := []struct {
		kind BlockKind
		text string
	}{
		{BlockHeading, "Introduction"},
		{BlockParagraph, "First line continues here."},
		{BlockParagraph, "Second paragraph."},
		{BlockPageBreak, ""},
		{BlockHeading, "Details"},
	}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("blocks = %d, want %d", len(doc.Blocks), len(want))
	}
	for i, w := range want {
		b := doc.Blocks[i]
		if b.Kind != w.kind || b.Text != w.text {
			t.Errorf("block %d = %s %q, want %s %q", i, b.Kind, b.Text, w.kind, w.text)
		}
	}

	h1 := doc.Blocks[0]
	if h1.Level != 1 || h1.Style.Font == nil || h1.Style.Variant.Weight != font.WeightBold {
		t.Errorf("heading style = %+v", h1.Style)
	}
	if h1.Style.Size != 22 {
		t.Errorf("heading size = %v, want 22", h1.Style.Size)
	}
	if p := doc.Blocks[1]; p.Style.Font == nil || p.Style.Family != "Go" || p.Style.Size != 11 {
		t.Errorf("paragraph style = %+v", p.Style)
	}
	if got := len(doc.Fonts()); got != 2 {
		t.Errorf("Fonts = %d, want regular and bold", got)
	}
}

func TestCompileIncludes(t *testing.T) {
	main := "#set size 14\n#include \"parts/a.vel\"\nAfter include.\n"
	w := newWorld(t, true, main,
		source.NewDocument("parts/a.vel", []byte("#set size 20\nFrom A.\n#include \"b.vel\"\n")),
		source.NewDocument("parts/b.vel", []byte("From B.\n")),
	)
	doc, bag, err := compile(t, w)
	if err != nil {
		t.Fatalf("Compile: %v %v", err, codes(bag))
	}
	var texts []string
	for _, b := range doc.Blocks {
		texts = append(texts, b.Text)
	}
	if strings.Join(texts, "|") != "From A.|From B.|After include." {
		t.Fatalf("texts = %v", texts)
	}
	if doc.Blocks[0].Style.Size != 20 || doc.Blocks[2].Style.Size != 14 {
		t.Errorf("sizes = %v, %v; include should scope #set", doc.Blocks[0].Style.Size, doc.Blocks[2].Style.Size)
	}
	if doc.Blocks[1].Span.File != source.NewFileID("parts/b.vel") {
		t.Errorf("span file = %s", doc.Blocks[1].Span.File)
	}
}

func TestCompileFailures(t *testing.T) {
	tests := []struct {
		name   string
		main   string
		others []source.Document
		code   string
	}{
		{"missing include", `#include "nope.vel"`, nil, "RES3001"},
		{"include cycle", `#include "a.vel"`, []source.Document{
			source.NewDocument("a.vel", []byte(`#include "main.vel"`)),
		}, "RES3002"},
		{"unknown directive", "#frobnicate now", nil, "SYN2001"},
		{"unclosed string", `#set title "oops`, nil, "SYN2002"},
		{"unquoted font", "#set font Go", nil, "SYN2003"},
		{"bad size", "#set size 1000", nil, "SYN2004"},
		{"deep heading", "======= seven", nil, "SYN2005"},
		{"pagebreak args", "#pagebreak now", nil, "SYN2006"},
		{"empty heading", "==", nil, "SYN2007"},
		{"unknown setting", `#set colour "red"`, nil, "SYN2008"},
		{"bad today offset", "#today(x)", nil, "SYN2004"},
		{"missing image", `#image "pic.png"`, nil, "RES3001"},
		{"not an image", `#image "notes.txt"`, []source.Document{
			source.NewDocument("notes.txt", []byte("plain text")),
		}, "RES3007"},
		{"truncated png", `#image "bad.png"`, []source.Document{
			source.NewDocument("bad.png", []byte("\x89PNG\r\n\x1a\nxx")),
		}, "RES3008"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, bag, err := compile(t, newWorld(t, true, tt.main, tt.others...))
			if !errors.Is(err, ErrFailed) {
				t.Fatalf("err = %v, want ErrFailed", err)
			}
			if doc != nil {
				t.Error("failed compile returned a document")
			}
			if !bag.HasErrors() {
				t.Fatal("no error diagnostic reported")
			}
			if got := codes(bag); got[0] != tt.code {
				t.Errorf("codes = %v, want first %s", got, tt.code)
			}
		})
	}
}

func TestCompileSettingCaseFix(t *testing.T) {
	cases := []struct {
		main string
		fix  string // "" means no fix offered
	}{
		{"#set Size 12", "size"},
		{`#set TITLE "Report"`, "title"},
		{`#set colour "red"`, ""},
	}
	for _, tc := range cases {
		_, bag, err := compile(t, newWorld(t, true, tc.main))
		if !errors.Is(err, ErrFailed) {
			t.Fatalf("%q: err = %v, want ErrFailed", tc.main, err)
		}
		items := bag.Items()
		if len(items) != 1 || items[0].Code != diag.SynUnknownSetting {
			t.Fatalf("%q: diagnostics = %+v", tc.main, items)
		}
		fixes := items[0].Fixes
		if tc.fix == "" {
			if len(fixes) != 0 {
				t.Errorf("%q: unexpected fixes %+v", tc.main, fixes)
			}
			continue
		}
		if len(fixes) != 1 || fixes[0].Edits[0].NewText != tc.fix || fixes[0].Edits[0].Span != items[0].Primary {
			t.Errorf("%q: fixes = %+v, want replacement with %q", tc.main, fixes, tc.fix)
		}
	}
}

func TestCompileInlineDates(t *testing.T) {
	src := "Today is #today, tomorrow #today(+24), now #now. Price \\#1 and #hashtag."
	doc, bag, err := compile(t, newWorld(t, true, src))
	if err != nil {
		t.Fatalf("Compile: %v %v", err, codes(bag))
	}
	want := "Today is 2024-05-17, tomorrow 2024-05-18, now 2024-05-17 09:30:00. Price #1 and #hashtag."
	if got := doc.Blocks[0].Text; got != want {
		t.Fatalf("text = %q\nwant  %q", got, want)
	}
}

func TestCompileDateUnavailableIsWarning(t *testing.T) {
	w := newWorld(t, true, "Stamp: #today.")
	w.nowOK = false
	doc, bag, err := compile(t, w)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if doc.Blocks[0].Text != "Stamp: ." {
		t.Errorf("text = %q", doc.Blocks[0].Text)
	}
	if got := codes(bag); len(got) != 1 || got[0] != "RES3009" {
		t.Errorf("codes = %v, want [RES3009]", got)
	}
}

func TestCompileFontFallbacks(t *testing.T) {
	t.Run("unknown family warns and falls back", func(t *testing.T) {
		doc, bag, err := compile(t, newWorld(t, true, "#set font \"Comic Sans\" bold\nHello"))
		if err != nil {
			t.Fatal(err)
		}
		if got := codes(bag); len(got) != 1 || got[0] != "RES3004" {
			t.Errorf("codes = %v", got)
		}
		st := doc.Blocks[0].Style
		if st.Font == nil || st.Family != "Go" || st.Variant.Weight != font.WeightBold {
			t.Errorf("style = %+v", st)
		}
	})

	t.Run("no fonts uses built-in face", func(t *testing.T) {
		doc, bag, err := compile(t, newWorld(t, false, "Café 中"))
		if err != nil {
			t.Fatal(err)
		}
		if doc.Blocks[0].Style.Font != nil {
			t.Error("expected nil font")
		}
		got := bag.Items()
		if len(got) != 1 || got[0].Code != diag.ResMissingGlyph || !strings.Contains(got[0].Message, "中") {
			t.Errorf("diagnostics = %+v", got)
		}
		if strings.Contains(got[0].Message, "é") {
			t.Error("é is drawable in the built-in encoding")
		}
	})

	t.Run("unloadable font warns once", func(t *testing.T) {
		w := newWorld(t, true, "One\n\nTwo")
		w.fonts[0] = nil
		doc, bag, err := compile(t, w)
		if err != nil {
			t.Fatal(err)
		}
		if got := codes(bag); len(got) != 1 || got[0] != "RES3005" {
			t.Errorf("codes = %v", got)
		}
		if doc.Blocks[0].Style.Font != nil {
			t.Error("regular face is unavailable")
		}
	})
}

// collectionOf wraps a single TrueType face into a one-face collection.
func collectionOf(ttf []byte) []byte {
	const header = 16
	out := make([]byte, header+len(ttf))
	copy(out, "ttcf")
	binary.BigEndian.PutUint32(out[4:], 0x00010000)
	binary.BigEndian.PutUint32(out[8:], 1)
	binary.BigEndian.PutUint32(out[12:], header)
	face := out[header:]
	copy(face, ttf)
	numTables := int(binary.BigEndian.Uint16(face[4:]))
	for i := range numTables {
		rec := face[12+16*i:]
		binary.BigEndian.PutUint32(rec[8:], binary.BigEndian.Uint32(rec[8:])+header)
	}
	return out
}

func TestCompileGlyphFallback(t *testing.T) {
	hebrew := font.Coverage{Ranges: []font.RuneRange{{Lo: 0x05D0, Hi: 0x05EA}}}
	cases := []struct {
		name       string
		text       string
		primary    []byte // replaces Go-Regular when set
		fallback   []byte // backs a face claiming Hebrew when set
		wantRuns   []string
		wantDiag   bool
		wantInDiag string
	}{
		{
			name:     "fallback face draws what the primary lacks",
			text:     "Shalom שלום",
			fallback: goregular.TTF,
			wantRuns: []string{"Shalom ", "שלום"},
		},
		{
			name:     "fallback runs split around primary text",
			text:     "א and ב",
			fallback: goregular.TTF,
			wantRuns: []string{"א ", "and ", "ב"},
		},
		{
			name:       "no covering face warns",
			text:       "Shalom שלום",
			wantDiag:   true,
			wantInDiag: "שלום",
		},
		{
			name:       "collection fallback is not embeddable",
			text:       "Shalom שלום",
			fallback:   collectionOf(goregular.TTF),
			wantDiag:   true,
			wantInDiag: "שלום",
		},
		{
			name:       "collection primary is limited to the built-in encoding",
			text:       "Café ŝ",
			primary:    collectionOf(goregular.TTF),
			wantDiag:   true,
			wantInDiag: "built-in Helvetica has no glyph for \"ŝ\"",
		},
		{
			name:    "collection primary draws the built-in encoding",
			text:    "Café",
			primary: collectionOf(goregular.TTF),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newWorld(t, true, tc.text)
			if tc.primary != nil {
				f := font.New(source.NewBytes(tc.primary), 0)
				if f == nil {
					t.Fatal("decode primary")
				}
				w.fonts[0] = f
			}
			var fb *font.Font
			if tc.fallback != nil {
				fb = font.New(source.NewBytes(tc.fallback), 0)
				if fb == nil {
					t.Fatal("decode fallback")
				}
				info := fb.Info()
				info.Family = "Aleph"
				info.Coverage = hebrew
				w.book.Push(info)
				w.fonts = append(w.fonts, fb)
			}

			doc, bag, err := compile(t, w)
			if err != nil {
				t.Fatal(err)
			}
			items := bag.Items()
			if tc.wantDiag {
				if len(items) != 1 || items[0].Code != diag.ResMissingGlyph || !strings.Contains(items[0].Message, tc.wantInDiag) {
					t.Fatalf("diagnostics = %+v, want one missing glyph warning mentioning %q", items, tc.wantInDiag)
				}
			} else if len(items) != 0 {
				t.Fatalf("unexpected diagnostics: %+v", items)
			}

			b := doc.Blocks[0]
			var got []string
			var joined strings.Builder
			for _, run := range b.Runs {
				got = append(got, run.Text)
				joined.WriteString(run.Text)
			}
			if strings.Join(got, "|") != strings.Join(tc.wantRuns, "|") {
				t.Fatalf("runs = %q, want %q", got, tc.wantRuns)
			}
			if len(b.Runs) == 0 {
				return
			}
			if joined.String() != b.Text {
				t.Errorf("runs join to %q, want %q", joined.String(), b.Text)
			}
			for _, run := range b.Runs {
				hasHebrew := strings.ContainsAny(run.Text, "אבשלום")
				if hasHebrew && run.Font != fb {
					t.Errorf("run %q should use the fallback face", run.Text)
				}
				if !hasHebrew && run.Font != b.Style.Font {
					t.Errorf("run %q should use the primary face", run.Text)
				}
			}
			if fonts := doc.Fonts(); len(fonts) != 2 || fonts[1] != fb {
				t.Errorf("Fonts() = %d faces, want primary and fallback", len(fonts))
			}
		})
	}
}

func TestCompileImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var pngBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, img); err != nil {
		t.Fatal(err)
	}

	src := "#image \"img/a.png\" 50\n#image \"img/b.bmp\"\n"
	w := newWorld(t, true, src,
		source.NewDocument("img/a.png", pngBuf.Bytes()),
		source.NewDocument("img/b.bmp", bmpBuf.Bytes()),
	)
	doc, bag, err := compile(t, w)
	if err != nil {
		t.Fatalf("Compile: %v %v", err, codes(bag))
	}
	if len(doc.Blocks) != 2 {
		t.Fatalf("blocks = %d", len(doc.Blocks))
	}
	a, b := doc.Blocks[0].Image, doc.Blocks[1].Image
	if a.Format != "PNG" || a.Width != 4 || a.Height != 3 || a.WidthMM != 50 {
		t.Errorf("png image = %+v", a)
	}
	raw, _ := w.File(source.NewFileID("img/a.png"))
	if !a.Data.Same(raw) {
		t.Error("native images should share the document bytes")
	}
	if b.Format != "PNG" || !bytes.HasPrefix(b.Data.Slice(), []byte("\x89PNG")) {
		t.Errorf("bmp should be converted to png, got %s", b.Format)
	}

	_, bag, err = compile(t, newWorld(t, true, `#image "a.png" 500`, source.NewDocument("a.png", pngBuf.Bytes())))
	if !errors.Is(err, ErrFailed) || codes(bag)[0] != "SYN2004" {
		t.Errorf("oversized width: err = %v, codes = %v", err, codes(bag))
	}
}

func TestDatetime(t *testing.T) {
	tests := []struct {
		y        int32
		m, d     uint8
		h, mi, s uint8
		ok       bool
	}{
		{2024, 2, 29, 0, 0, 0, true},
		{2023, 2, 29, 0, 0, 0, false},
		{2024, 0, 1, 0, 0, 0, false},
		{2024, 13, 1, 0, 0, 0, false},
		{2024, 4, 31, 0, 0, 0, false},
		{2024, 1, 1, 24, 0, 0, false},
		{2024, 1, 1, 23, 60, 0, false},
		{2024, 1, 1, 23, 59, 60, false},
		{-44, 3, 15, 12, 0, 0, true},
	}
	for _, tt := range tests {
		_, ok := DatetimeFromYMDHMS(tt.y, tt.m, tt.d, tt.h, tt.mi, tt.s)
		if ok != tt.ok {
			t.Errorf("DatetimeFromYMDHMS(%d-%d-%d %d:%d:%d) ok = %v, want %v", tt.y, tt.m, tt.d, tt.h, tt.mi, tt.s, ok, tt.ok)
		}
	}
	d, _ := DatetimeFromYMD(2024, 7, 4)
	if d.HasTime() || d.String() != "2024-07-04" {
		t.Errorf("date = %s (time %v)", d, d.HasTime())
	}
	if !d.WallTime().Equal(time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WallTime = %v", d.WallTime())
	}
	// часы в UTC+14 остаются теми же цифрами
	late, _ := DatetimeFromYMDHMS(2024, 12, 31, 23, 30, 5)
	if got := late.WallTime().Format("20060102150405"); got != "20241231233005" {
		t.Errorf("WallTime fields = %s, want the wall-clock reading unchanged", got)
	}
}

func TestDefaultLibraryShared(t *testing.T) {
	if DefaultLibrary() != DefaultLibrary() {
		t.Fatal("DefaultLibrary should be built once")
	}
	if w := DefaultLibrary().ContentWidth(); w != 160 {
		t.Errorf("ContentWidth = %v, want 160", w)
	}
}
