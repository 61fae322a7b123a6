package source

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FileID identifies a virtual document within one compilation.
// Two IDs are equal iff their normalized virtual paths are equal, so FileID
// is usable directly as a map key.
type FileID struct {
	path string // всегда абсолютный, от синтетического корня "/"
}

// NewFileID derives an identifier from a document name. The name is NFC
// normalized, converted to forward slashes, cleaned and rooted at "/".
func NewFileID(name string) FileID {
	return FileID{path: normalizePath(name)}
}

// Path returns the rooted virtual path.
func (id FileID) Path() string {
	if id.path == "" {
		return "/"
	}
	return id.path
}

// IsZero reports whether id was never assigned.
func (id FileID) IsZero() bool {
	return id.path == ""
}

// Join resolves rel against the directory of id. Rooted rel values are taken
// as-is, mirroring how includes address the virtual root.
func (id FileID) Join(rel string) FileID {
	rel = strings.ReplaceAll(rel, "\\", "/")
	if strings.HasPrefix(rel, "/") {
		return NewFileID(rel)
	}
	return NewFileID(path.Join(path.Dir(id.Path()), rel))
}

func (id FileID) String() string {
	return id.Path()
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Document pairs an identifier with its immutable payload.
type Document struct {
	ID   FileID
	Data Bytes
}

// NewDocument builds a Document from a name and raw bytes. The bytes are
// copied once; the caller may reuse data afterwards.
func NewDocument(name string, data []byte) Document {
	return Document{
		ID:   NewFileID(name),
		Data: NewBytes(data),
	}
}

// Source is the decoded text of a document.
type Source struct {
	ID      FileID
	Text    string
	LineIdx []uint32 // offsets of '\n'
}

// NewSource wraps decoded text and builds its line index.
func NewSource(id FileID, text string) *Source {
	return &Source{
		ID:      id,
		Text:    text,
		LineIdx: buildLineIndex(text),
	}
}

// Position converts a byte offset into a line/column pair.
func (s *Source) Position(off uint32) LineCol {
	return toLineCol(s.LineIdx, off)
}

// Line returns the 1-based line lineNum without its trailing newline, or ""
// if no such line exists.
func (s *Source) Line(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	n := uint32(len(s.LineIdx))
	var start, end uint32
	switch {
	case lineNum == 1:
		start = 0
	case lineNum-2 < n:
		start = s.LineIdx[lineNum-2] + 1
	default:
		return ""
	}
	if lineNum-1 < n {
		end = s.LineIdx[lineNum-1]
	} else {
		end = uint32(len(s.Text))
	}
	if start > end || int(end) > len(s.Text) {
		return ""
	}
	return s.Text[start:end]
}

func normalizePath(p string) string {
	p = norm.NFC.String(p)
	p = strings.ReplaceAll(p, "\\", "/")
	// единый вид: корень "/" и без "./", "../" выше корня
	return path.Clean("/" + p)
}
