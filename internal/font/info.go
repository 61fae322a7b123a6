package font

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/image/font/sfnt"
)

// Style is the slant of a face.
type Style uint8

const (
	StyleNormal Style = iota
	StyleItalic
	StyleOblique
)

func (s Style) String() string {
	switch s {
	case StyleItalic:
		return "italic"
	case StyleOblique:
		return "oblique"
	default:
		return "normal"
	}
}

// Weight follows the CSS/OpenType 100..900 scale.
type Weight uint16

const (
	WeightThin       Weight = 100
	WeightExtraLight Weight = 200
	WeightLight      Weight = 300
	WeightRegular    Weight = 400
	WeightMedium     Weight = 500
	WeightSemiBold   Weight = 600
	WeightBold       Weight = 700
	WeightExtraBold  Weight = 800
	WeightBlack      Weight = 900
)

// Stretch is the width class in per mille of normal width.
type Stretch uint16

const (
	StretchCondensed     Stretch = 750
	StretchSemiCondensed Stretch = 875
	StretchNormal        Stretch = 1000
	StretchSemiExpanded  Stretch = 1125
	StretchExpanded      Stretch = 1250
)

// Variant selects a face within a family.
type Variant struct {
	Style   Style
	Weight  Weight
	Stretch Stretch
}

// RegularVariant is the upright, regular-weight, normal-width variant.
var RegularVariant = Variant{Style: StyleNormal, Weight: WeightRegular, Stretch: StretchNormal}

func (v Variant) String() string {
	return fmt.Sprintf("%s/%d/%d", v.Style, v.Weight, v.Stretch)
}

// Info is the metadata the compiler needs to pick a face without loading it.
type Info struct {
	Family         string
	Subfamily      string
	PostScriptName string
	Variant        Variant
	Coverage       Coverage
	NumGlyphs      int
}

// NewInfo extracts metadata for the face at index in the font file read
// through r. Only the tables needed for metadata are read.
//
// A face that parses but has no family name yields (nil, nil): it exists but
// cannot be selected. An error means the data is not a readable font.
func NewInfo(r io.ReaderAt, index uint32) (*Info, error) {
	coll, err := sfnt.ParseCollectionReaderAt(r)
	if err != nil {
		return nil, fmt.Errorf("parse font collection: %w", err)
	}
	i, err := safecast.Conv[int](index)
	if err != nil {
		return nil, err
	}
	if i >= coll.NumFonts() {
		return nil, fmt.Errorf("face index %d out of range (collection has %d)", index, coll.NumFonts())
	}
	f, err := coll.Font(i)
	if err != nil {
		return nil, fmt.Errorf("parse face %d: %w", index, err)
	}
	return infoFromFace(f)
}

func infoFromFace(f *sfnt.Font) (*Info, error) {
	var buf sfnt.Buffer

	family := lookupName(f, &buf, sfnt.NameIDTypographicFamily, sfnt.NameIDFamily)
	if family == "" {
		return nil, nil
	}
	subfamily := lookupName(f, &buf, sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily)
	postscript := lookupName(f, &buf, sfnt.NameIDPostScript)

	coverage, err := probeCoverage(f, &buf)
	if err != nil {
		return nil, err
	}

	return &Info{
		Family:         family,
		Subfamily:      subfamily,
		PostScriptName: postscript,
		Variant:        parseVariant(subfamily, postscript),
		Coverage:       coverage,
		NumGlyphs:      f.NumGlyphs(),
	}, nil
}

// lookupName returns the first non-empty name among ids.
func lookupName(f *sfnt.Font, buf *sfnt.Buffer, ids ...sfnt.NameID) string {
	for _, id := range ids {
		name, err := f.Name(buf, id)
		if errors.Is(err, sfnt.ErrNotFound) {
			continue
		}
		if err != nil {
			// битая name-таблица: считаем, что имени нет
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}

var weightKeywords = []struct {
	word   string
	weight Weight
}{
	// длинные сначала: "extrabold" раньше "bold"
	{"extralight", WeightExtraLight},
	{"ultralight", WeightExtraLight},
	{"extrabold", WeightExtraBold},
	{"ultrabold", WeightExtraBold},
	{"semibold", WeightSemiBold},
	{"demibold", WeightSemiBold},
	{"hairline", WeightThin},
	{"thin", WeightThin},
	{"light", WeightLight},
	{"medium", WeightMedium},
	{"heavy", WeightBlack},
	{"black", WeightBlack},
	{"bold", WeightBold},
}

var stretchKeywords = []struct {
	word    string
	stretch Stretch
}{
	{"semicondensed", StretchSemiCondensed},
	{"semiexpanded", StretchSemiExpanded},
	{"condensed", StretchCondensed},
	{"narrow", StretchCondensed},
	{"expanded", StretchExpanded},
	{"extended", StretchExpanded},
	{"wide", StretchExpanded},
}

// parseVariant derives the variant from subfamily keywords; the PostScript
// name is consulted when the subfamily says nothing.
func parseVariant(subfamily, postscript string) Variant {
	v := RegularVariant
	key := compactName(subfamily)
	if key == "" || key == "regular" {
		if i := strings.LastIndexByte(postscript, '-'); i >= 0 {
			key = compactName(postscript[i+1:])
		}
	}

	switch {
	case strings.Contains(key, "italic"):
		v.Style = StyleItalic
	case strings.Contains(key, "oblique"), strings.Contains(key, "slanted"):
		v.Style = StyleOblique
	}
	for _, kw := range weightKeywords {
		if strings.Contains(key, kw.word) {
			v.Weight = kw.weight
			break
		}
	}
	for _, kw := range stretchKeywords {
		if strings.Contains(key, kw.word) {
			v.Stretch = kw.stretch
			break
		}
	}
	return v
}

func compactName(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}
