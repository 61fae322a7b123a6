package source

import (
	"errors"
	"testing"
)

func TestNewFileIDNormalizes(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"relative vs rooted", "main.vel", "/main.vel", true},
		{"dot prefix", "./main.vel", "main.vel", true},
		{"backslashes", `chapters\one.vel`, "chapters/one.vel", true},
		{"dot-dot above root", "../main.vel", "main.vel", true},
		{"nfc vs nfd", "caf\u00e9.vel", "cafe\u0301.vel", true},
		{"different names", "a.vel", "b.vel", false},
		{"case sensitive", "A.vel", "a.vel", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewFileID(tt.a) == NewFileID(tt.b)
			if got != tt.same {
				t.Fatalf("NewFileID(%q) == NewFileID(%q) = %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}

func TestFileIDJoin(t *testing.T) {
	base := NewFileID("docs/main.vel")
	if got := base.Join("parts/intro.vel").Path(); got != "/docs/parts/intro.vel" {
		t.Errorf("Join relative = %q", got)
	}
	if got := base.Join("../shared.vel").Path(); got != "/shared.vel" {
		t.Errorf("Join parent = %q", got)
	}
	if got := base.Join("/abs.vel").Path(); got != "/abs.vel" {
		t.Errorf("Join rooted = %q", got)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	docs := []struct {
		name     string
		data     []byte
		wantText string
	}{
		{"plain.vel", []byte("hello world"), "hello world"},
		{"bom.vel", []byte("\xEF\xBB\xBFwith bom"), "with bom"},
		{"utf8.vel", []byte("привет, мир"), "привет, мир"},
		{"empty.vel", []byte{}, ""},
		{"only-bom.vel", []byte("\xEF\xBB\xBF"), ""},
		{"bom-in-middle.vel", []byte("a\xEF\xBB\xBFb"), "a\uFEFFb"},
	}

	others := make([]Document, 0, len(docs))
	for _, d := range docs {
		others = append(others, NewDocument(d.name, d.data))
	}
	store := NewStore(NewDocument("main.vel", []byte("main")), others...)

	for _, d := range docs {
		id := NewFileID(d.name)
		src, err := store.Source(id)
		if err != nil {
			t.Fatalf("Source(%s): %v", d.name, err)
		}
		if src.Text != d.wantText {
			t.Errorf("Source(%s).Text = %q, want %q", d.name, src.Text, d.wantText)
		}
		raw, err := store.File(id)
		if err != nil {
			t.Fatalf("File(%s): %v", d.name, err)
		}
		if string(raw.Slice()) != string(d.data) {
			t.Errorf("File(%s) = %q, want %q", d.name, raw.Slice(), d.data)
		}
	}
}

func TestStoreFileSharesStorage(t *testing.T) {
	input := []byte("payload")
	store := NewStore(NewDocument("main.vel", input))
	input[0] = 'X' // caller mutation must not leak into the store

	first, err := store.File(store.Main())
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.File(store.Main())
	if err != nil {
		t.Fatal(err)
	}
	if !first.Same(second) {
		t.Fatal("repeated reads should return the same buffer")
	}
	if &first.Slice()[0] != &second.Slice()[0] {
		t.Fatal("repeated reads copied the payload")
	}
	if string(first.Slice()) != "payload" {
		t.Fatalf("payload = %q, want %q", first.Slice(), "payload")
	}
}

func TestStoreLastWriteWins(t *testing.T) {
	store := NewStore(
		NewDocument("main.vel", []byte("original")),
		NewDocument("extra.vel", []byte("first")),
		NewDocument("./main.vel", []byte("replaced")),
		NewDocument("/extra.vel", []byte("second")),
	)
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	main, err := store.Source(store.Main())
	if err != nil {
		t.Fatal(err)
	}
	if main.Text != "replaced" {
		t.Errorf("main text = %q, want %q", main.Text, "replaced")
	}
	extra, err := store.Source(NewFileID("extra.vel"))
	if err != nil {
		t.Fatal(err)
	}
	if extra.Text != "second" {
		t.Errorf("extra text = %q, want %q", extra.Text, "second")
	}
}

func TestStoreMissingFile(t *testing.T) {
	store := NewStore(NewDocument("main.vel", nil))
	missing := NewFileID("nope.vel")

	if _, err := store.Source(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Source(missing) err = %v, want ErrNotFound", err)
	}
	_, err := store.File(missing)
	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("File(missing) err = %v, want *FileError", err)
	}
	if fe.Path != "/nope.vel" {
		t.Errorf("FileError.Path = %q, want /nope.vel", fe.Path)
	}
}

func TestStoreInvalidUTF8Panics(t *testing.T) {
	store := NewStore(NewDocument("bad.vel", []byte{0xff, 0xfe, 'x'}))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on malformed UTF-8")
		}
	}()
	_, _ = store.Source(store.Main()) //nolint:errcheck
}

func TestStoreIDsSorted(t *testing.T) {
	store := NewStore(
		NewDocument("b.vel", nil),
		NewDocument("c.vel", nil),
		NewDocument("a.vel", nil),
	)
	ids := store.IDs()
	want := []string{"/a.vel", "/b.vel", "/c.vel"}
	if len(ids) != len(want) {
		t.Fatalf("IDs len = %d, want %d", len(ids), len(want))
	}
	for i, id := range ids {
		if id.Path() != want[i] {
			t.Errorf("IDs[%d] = %s, want %s", i, id.Path(), want[i])
		}
	}
}

func TestSourcePosition(t *testing.T) {
	src := NewSource(NewFileID("x.vel"), "ab\ncd\n\nef")
	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{4, LineCol{2, 2}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
	}
	for _, tt := range tests {
		if got := src.Position(tt.off); got != tt.want {
			t.Errorf("Position(%d) = %+v, want %+v", tt.off, got, tt.want)
		}
	}
	if got := src.Line(2); got != "cd" {
		t.Errorf("Line(2) = %q, want cd", got)
	}
	if got := src.Line(4); got != "ef" {
		t.Errorf("Line(4) = %q, want ef", got)
	}
	if got := src.Line(9); got != "" {
		t.Errorf("Line(9) = %q, want empty", got)
	}
}
