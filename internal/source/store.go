package source

import (
	"slices"
	"strings"
)

// Store is the closed set of documents available to one compilation.
// It is immutable after NewStore returns.
type Store struct {
	main  FileID
	files map[FileID]Bytes
}

// NewStore builds a Store from the main document followed by the auxiliary
// documents. Identifiers are keys, not positions: a later document with the
// same identifier replaces an earlier one, the main document included.
func NewStore(main Document, others ...Document) *Store {
	files := make(map[FileID]Bytes, len(others)+1)
	files[main.ID] = main.Data
	for _, doc := range others {
		files[doc.ID] = doc.Data
	}
	return &Store{main: main.ID, files: files}
}

// Main returns the identifier of the entry point.
func (s *Store) Main() FileID {
	return s.main
}

// Len returns the number of distinct documents.
func (s *Store) Len() int {
	return len(s.files)
}

// IDs returns every identifier in path order.
func (s *Store) IDs() []FileID {
	ids := make([]FileID, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b FileID) int {
		return strings.Compare(a.path, b.path)
	})
	return ids
}

// File returns the raw payload for id. Every call hands out the same shared
// buffer.
func (s *Store) File(id FileID) (Bytes, error) {
	data, ok := s.files[id]
	if !ok {
		return Bytes{}, &FileError{Kind: FileNotFound, Path: id.Path()}
	}
	return data, nil
}

// Source decodes the payload for id as UTF-8 text with any leading
// byte-order mark removed. Malformed UTF-8 panics; see DecodeUTF8.
func (s *Store) Source(id FileID) (*Source, error) {
	data, err := s.File(id)
	if err != nil {
		return nil, err
	}
	return NewSource(id, DecodeUTF8(data.Slice())), nil
}
