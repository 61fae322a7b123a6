package typeset

import (
	"vellum/internal/font"
	"vellum/internal/source"
)

// BlockKind classifies a laid-out block.
type BlockKind uint8

const (
	BlockParagraph BlockKind = iota + 1
	BlockHeading
	BlockImage
	BlockPageBreak
)

func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockHeading:
		return "heading"
	case BlockImage:
		return "image"
	case BlockPageBreak:
		return "pagebreak"
	default:
		return "unknown"
	}
}

// Style is the resolved text style of a block. Font is nil when no
// cataloged face could be used; exporters then fall back to a built-in
// face.
type Style struct {
	Family  string
	Variant font.Variant
	Size    float64 // pt
	Font    *font.Font
}

// Image is an embedded raster picture. Data is in Format, which is one of
// "PNG", "JPG" or "GIF".
type Image struct {
	Path    string
	Format  string
	Data    source.Bytes
	Width   int // px
	Height  int // px
	WidthMM float64
}

// Run is a stretch of block text drawn with one face. A nil Font means the
// built-in face.
type Run struct {
	Text string
	Font *font.Font
}

// Block is one unit of output in reading order. Runs is set only when part
// of Text needs a fallback face; the runs then concatenate to Text.
type Block struct {
	Kind  BlockKind
	Level int // headings: 1..6
	Text  string
	Style Style
	Runs  []Run
	Image *Image
	Span  source.Span
}

// PageSetup is the page geometry in millimetres. Leading is the line
// height as a multiple of the font size.
type PageSetup struct {
	Width   float64
	Height  float64
	Margin  float64
	Leading float64
}

// Document is a compiled document ready for export.
type Document struct {
	Title  string
	Author string
	Page   PageSetup
	Blocks []Block
}

// Fonts returns the distinct faces used by the document in first-use order.
func (d *Document) Fonts() []*font.Font {
	var out []*font.Font
	seen := make(map[*font.Font]struct{})
	add := func(f *font.Font) {
		if f == nil {
			return
		}
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	for i := range d.Blocks {
		add(d.Blocks[i].Style.Font)
		for _, run := range d.Blocks[i].Runs {
			add(run.Font)
		}
	}
	return out
}
