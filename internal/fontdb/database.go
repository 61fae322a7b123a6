// Package fontdb keeps the list of font faces discovered on a filesystem or
// registered from memory. It records where each face lives. A face is
// admitted only if its tables parse; nothing beyond that is decoded.
package fontdb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/afero"
	"golang.org/x/image/font/sfnt"

	"vellum/internal/source"
)

// SourceKind tells where the bytes of a face come from.
type SourceKind uint8

const (
	// SourceFile faces are read from a path on the database filesystem.
	SourceFile SourceKind = iota + 1
	// SourceBinary faces were registered from an in-memory blob.
	SourceBinary
)

func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Source locates the font file holding a face.
type Source struct {
	Kind SourceKind
	Path string       // SourceFile
	Data source.Bytes // SourceBinary
}

// ID identifies a face within one Database.
type ID uint32

// Face is one entry of the database: a face index inside a font source.
type Face struct {
	ID     ID
	Source Source
	Index  uint32
}

var fontExtensions = map[string]struct{}{
	".ttf": {},
	".otf": {},
	".ttc": {},
	".otc": {},
}

// Database is an append-only list of faces. It is not safe for concurrent
// mutation; readers may share it once loading is finished.
type Database struct {
	fs      afero.Fs
	faces   []Face
	skipped int
}

// New creates an empty database reading files through fs. A nil fs means the
// OS filesystem.
func New(fs afero.Fs) *Database {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Database{fs: fs}
}

// FS returns the filesystem faces are read from.
func (db *Database) FS() afero.Fs { return db.fs }

// Len returns the number of faces.
func (db *Database) Len() int { return len(db.faces) }

// Skipped returns how many candidate files, and faces within otherwise
// readable collections, were ignored because they did not parse as fonts.
func (db *Database) Skipped() int { return db.skipped }

// Faces returns the faces in load order.
func (db *Database) Faces() []Face {
	out := make([]Face, len(db.faces))
	copy(out, db.faces)
	return out
}

// Face returns the face with the given id.
func (db *Database) Face(id ID) (Face, bool) {
	i := int(id)
	if i < 0 || i >= len(db.faces) {
		return Face{}, false
	}
	return db.faces[i], true
}

// LoadFontsDir walks dir recursively and adds every face of every font file
// found. Unreadable entries are skipped; a missing dir adds nothing.
func (db *Database) LoadFontsDir(dir string) {
	walkErr := afero.Walk(db.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// недоступный каталог или файл: пропускаем, сканирование best effort
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !hasFontExtension(path) {
			return nil
		}
		if loadErr := db.LoadFontFile(path); loadErr != nil {
			db.skipped++
		}
		return nil
	})
	_ = walkErr //nolint:errcheck // walk callback never fails
}

// LoadFontFile adds the faces of the font file at path that parse. Faces
// that do not parse are counted as skipped; a file with no usable face is an
// error.
func (db *Database) LoadFontFile(path string) error {
	f, err := db.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open font %s: %w", path, err)
	}
	defer f.Close()

	indices, bad, err := parseFaces(f)
	if err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	db.skipped += bad
	db.push(Source{Kind: SourceFile, Path: path}, indices)
	return nil
}

// LoadFontData adds the usable faces of an in-memory font file. The data is
// copied.
func (db *Database) LoadFontData(data []byte) error {
	indices, bad, err := parseFaces(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("font data: %w", err)
	}
	db.skipped += bad
	db.push(Source{Kind: SourceBinary, Data: source.NewBytes(data)}, indices)
	return nil
}

// LoadSystemFonts scans the conventional font directories of the host.
func (db *Database) LoadSystemFonts() {
	db.LoadDirs(SystemFontDirs())
}

// LoadDirs scans every directory in order.
func (db *Database) LoadDirs(dirs []string) {
	for _, dir := range dirs {
		db.LoadFontsDir(dir)
	}
}

// WithFaceData opens the source of face id and passes a reader over the whole
// font file together with the face index to fn.
func (db *Database) WithFaceData(id ID, fn func(r io.ReaderAt, index uint32) error) error {
	face, ok := db.Face(id)
	if !ok {
		return fmt.Errorf("face %d: no such face", id)
	}
	switch face.Source.Kind {
	case SourceBinary:
		return fn(bytes.NewReader(face.Source.Data.Slice()), face.Index)
	case SourceFile:
		f, err := db.fs.Open(face.Source.Path)
		if err != nil {
			return fmt.Errorf("open font %s: %w", face.Source.Path, err)
		}
		defer f.Close()
		return fn(f, face.Index)
	default:
		return fmt.Errorf("face %d: unknown source kind %d", id, face.Source.Kind)
	}
}

func (db *Database) push(src Source, indices []uint32) {
	for _, idx := range indices {
		id, err := safecast.Conv[ID](len(db.faces))
		if err != nil {
			return
		}
		db.faces = append(db.faces, Face{ID: id, Source: src, Index: idx})
	}
}

var errNoFaces = errors.New("no usable faces")

// parseFaces returns the indices of the faces in r whose tables parse and
// the number of faces that do not. sfnt panics on some truncated inputs;
// that is reported as an error like any other parse failure.
func parseFaces(r io.ReaderAt) (indices []uint32, bad int, err error) {
	defer func() {
		if p := recover(); p != nil {
			indices, bad = nil, 0
			err = fmt.Errorf("malformed font: %v", p)
		}
	}()

	coll, err := sfnt.ParseCollectionReaderAt(r)
	if err != nil {
		return nil, 0, err
	}
	for i := range coll.NumFonts() {
		if _, ferr := coll.Font(i); ferr != nil {
			bad++
			continue
		}
		idx, cerr := safecast.Conv[uint32](i)
		if cerr != nil {
			bad++
			continue
		}
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return nil, bad, errNoFaces
	}
	return indices, bad, nil
}

func hasFontExtension(path string) bool {
	_, ok := fontExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
