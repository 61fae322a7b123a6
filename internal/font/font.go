package font

import (
	"bytes"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/image/font/sfnt"

	"vellum/internal/source"
)

// Font is a decoded face backed by the shared bytes of its file.
type Font struct {
	data  source.Bytes
	index uint32
	face  *sfnt.Font
	info  Info

	mu  sync.Mutex // sfnt.Buffer is not safe for concurrent use
	buf sfnt.Buffer
}

// New decodes the face at index from data. It returns nil when data does not
// hold a usable face at that index.
func New(data source.Bytes, index uint32) *Font {
	coll, err := sfnt.ParseCollection(data.Slice())
	if err != nil {
		return nil
	}
	i, err := safecast.Conv[int](index)
	if err != nil || i >= coll.NumFonts() {
		return nil
	}
	face, err := coll.Font(i)
	if err != nil {
		return nil
	}
	info, err := infoFromFace(face)
	if err != nil || info == nil {
		return nil
	}
	return &Font{
		data:  data,
		index: index,
		face:  face,
		info:  *info,
	}
}

// Data returns the bytes of the whole font file, shared with the loader.
func (f *Font) Data() source.Bytes { return f.data }

// Index returns the face index within the file.
func (f *Font) Index() uint32 { return f.index }

// Info returns the metadata of the face.
func (f *Font) Info() Info { return f.info }

// NumGlyphs returns the glyph count of the face.
func (f *Font) NumGlyphs() int { return f.face.NumGlyphs() }

// IsCollection reports whether the backing file is a TTC/OTC collection.
func (f *Font) IsCollection() bool {
	return bytes.HasPrefix(f.data.Slice(), []byte("ttcf"))
}

// IsTrueType reports whether the file is a single face with glyf outlines,
// the only form the PDF writer can embed directly.
func (f *Font) IsTrueType() bool {
	head := f.data.Slice()
	return bytes.HasPrefix(head, []byte{0x00, 0x01, 0x00, 0x00}) || bytes.HasPrefix(head, []byte("true"))
}

// Embeddable reports whether the PDF writer can embed the face as is.
func (f *Font) Embeddable() bool {
	return !f.IsCollection() && f.IsTrueType()
}

// HasGlyph reports whether the face maps r to a real glyph.
func (f *Font) HasGlyph(r rune) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	gi, err := f.face.GlyphIndex(&f.buf, r)
	return err == nil && gi != 0
}
