// Package bundle packs a main document and its auxiliary files into one
// msgpack envelope, so a document set can travel as a single file.
package bundle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"

	"vellum/internal/source"
)

// SchemaVersion is bumped whenever the envelope layout changes.
const SchemaVersion uint16 = 1

var (
	// ErrSchema reports an envelope written by an incompatible version.
	ErrSchema = errors.New("unsupported bundle schema")
	// ErrCorrupt reports a digest mismatch or a structurally broken envelope.
	ErrCorrupt = errors.New("corrupt bundle")
)

// Entry is one named document.
type Entry struct {
	Name   string   `msgpack:"name"`
	Data   []byte   `msgpack:"data"`
	Digest [32]byte `msgpack:"sha256"`
}

// Bundle is a document set; the first document is always the main one.
type Bundle struct {
	Schema uint16  `msgpack:"schema"`
	Main   Entry   `msgpack:"main"`
	Files  []Entry `msgpack:"files"`
}

func newEntry(name string, data []byte) Entry {
	return Entry{Name: name, Data: data, Digest: sha256.Sum256(data)}
}

// New builds a bundle from in-memory documents.
func New(main source.Document, others ...source.Document) Bundle {
	b := Bundle{
		Schema: SchemaVersion,
		Main:   newEntry(main.ID.Path(), main.Data.Slice()),
	}
	for _, doc := range others {
		b.Files = append(b.Files, newEntry(doc.ID.Path(), doc.Data.Slice()))
	}
	return b
}

// Load reads main and others from fs. Every document is named by its path
// relative to the directory of main, which becomes the virtual root.
func Load(fs afero.Fs, main string, others []string) (Bundle, error) {
	root := filepath.Dir(main)
	read := func(p string) (Entry, error) {
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return Entry{}, err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		return newEntry(source.NewFileID(rel).Path(), data), nil
	}

	m, err := read(main)
	if err != nil {
		return Bundle{}, err
	}
	b := Bundle{Schema: SchemaVersion, Main: m}
	for _, p := range others {
		e, err := read(p)
		if err != nil {
			return Bundle{}, err
		}
		b.Files = append(b.Files, e)
	}
	return b, nil
}

// Documents returns the main document and the auxiliary ones, ready for a
// world.
func (b Bundle) Documents() (source.Document, []source.Document) {
	main := source.NewDocument(b.Main.Name, b.Main.Data)
	others := make([]source.Document, 0, len(b.Files))
	for _, f := range b.Files {
		others = append(others, source.NewDocument(f.Name, f.Data))
	}
	return main, others
}

// Size is the total payload in bytes.
func (b Bundle) Size() int {
	n := len(b.Main.Data)
	for _, f := range b.Files {
		n += len(f.Data)
	}
	return n
}

// Encode writes b to w.
func Encode(w io.Writer, b Bundle) error {
	if b.Schema == 0 {
		b.Schema = SchemaVersion
	}
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(b Bundle) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a bundle from r and verifies its schema and digests.
func Decode(r io.Reader) (Bundle, error) {
	var b Bundle
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if b.Schema != SchemaVersion {
		return Bundle{}, fmt.Errorf("%w: version %d, want %d", ErrSchema, b.Schema, SchemaVersion)
	}
	if b.Main.Name == "" {
		return Bundle{}, fmt.Errorf("%w: no main document", ErrCorrupt)
	}
	for _, e := range append([]Entry{b.Main}, b.Files...) {
		if sha256.Sum256(e.Data) != e.Digest {
			return Bundle{}, fmt.Errorf("%w: digest mismatch for %s", ErrCorrupt, e.Name)
		}
	}
	return b, nil
}
