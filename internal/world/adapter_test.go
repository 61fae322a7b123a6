package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"vellum/internal/font"
	"vellum/internal/source"
	"vellum/internal/trace"
	"vellum/internal/typeset"
)

func fontFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range map[string][]byte{
		"/fonts/Go-Regular.ttf": goregular.TTF,
		"/fonts/Go-Bold.ttf":    gobold.TTF,
	} {
		if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func fixedNow() time.Time {
	return time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC)
}

func newAdapter(t *testing.T, ctx context.Context, main string, others ...source.Document) *Adapter {
	t.Helper()
	return New(ctx, source.NewDocument("main.vel", []byte(main)), others, Options{
		FontDir:         "/fonts",
		SkipSystemFonts: true,
		FS:              fontFS(t),
		Now:             fixedNow,
	})
}

func TestAdapterServesWorld(t *testing.T) {
	a := newAdapter(t, context.Background(), "= Hello\n", source.NewDocument("data/a.txt", []byte("aux")))

	if got := a.Main().Text; got != "= Hello\n" {
		t.Errorf("Main text = %q", got)
	}
	if a.MainID() != source.NewFileID("main.vel") {
		t.Errorf("MainID = %s", a.MainID())
	}
	if a.Store().Len() != 2 {
		t.Errorf("store len = %d", a.Store().Len())
	}
	data, err := a.File(source.NewFileID("/data/a.txt"))
	if err != nil || string(data.Slice()) != "aux" {
		t.Errorf("File = %q, %v", data.Slice(), err)
	}
	if _, err := a.Source(source.NewFileID("missing.vel")); !errors.Is(err, source.ErrNotFound) {
		t.Errorf("missing source err = %v", err)
	}
	if a.Library() != typeset.DefaultLibrary() {
		t.Error("adapters should share the default library")
	}

	if a.Book().Len() != 2 || a.Fonts().Len() != 2 {
		t.Fatalf("book = %d faces, resolver = %d", a.Book().Len(), a.Fonts().Len())
	}
	idx, ok := a.Book().Select("go", font.Variant{Weight: font.WeightBold, Stretch: font.StretchNormal})
	if !ok {
		t.Fatal("Go Bold not selectable")
	}
	f := a.Font(idx)
	if f == nil || f.Info().Variant.Weight != font.WeightBold {
		t.Fatalf("Font(%d) = %v", idx, f)
	}
	if a.Font(idx) != f {
		t.Error("Font should be memoized")
	}
	if a.Font(99) != nil {
		t.Error("out-of-range font should be nil")
	}
}

func TestAdapterClock(t *testing.T) {
	a := newAdapter(t, context.Background(), "")
	if !a.Moment().Equal(fixedNow()) {
		t.Errorf("Moment = %v", a.Moment())
	}
	plusOne := int64(1)
	d, ok := a.Today(&plusOne)
	if !ok || d.String() != "2025-01-01" {
		t.Errorf("Today(+1) = %s, %v", d, ok)
	}
	if _, ok := a.Now(); !ok {
		t.Error("Now unavailable")
	}
}

func TestAdapterIdentity(t *testing.T) {
	a := newAdapter(t, context.Background(), "")
	b := newAdapter(t, context.Background(), "")
	if a.ID() == b.ID() {
		t.Fatal("adapters share an id")
	}
}

func TestAdapterTraces(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)
	a := newAdapter(t, ctx, "text")
	_ = a.Main()

	var worldSpan, scan, read bool
	for _, ev := range ring.Snapshot() {
		if ev.Kind != trace.KindSpanEnd {
			continue
		}
		switch ev.Name {
		case "world":
			worldSpan = ev.Extra["world"] == a.ID().String() && ev.Extra["documents"] == "1"
		case "font_scan":
			scan = true
		case "source_read":
			read = ev.Extra["path"] == "/main.vel"
		}
	}
	if !worldSpan || !scan || !read {
		t.Errorf("spans: world=%v font_scan=%v source_read=%v", worldSpan, scan, read)
	}
}

func TestAdapterCompiles(t *testing.T) {
	a := newAdapter(t, context.Background(), "= Title\n\nDated #today(+1).\n")
	doc, err := typeset.Compile(a, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(doc.Blocks) != 2 || doc.Blocks[1].Text != "Dated 2025-01-01." {
		t.Fatalf("blocks = %+v", doc.Blocks)
	}
	if doc.Blocks[0].Style.Font == nil || doc.Blocks[0].Style.Font.Info().Variant.Weight != font.WeightBold {
		t.Error("heading should use the bold face")
	}
}
