package source

import "errors"

// ErrNotFound is matched by lookups for identifiers absent from a Store.
var ErrNotFound = errors.New("no such file")

// FileErrorKind classifies a FileError.
type FileErrorKind uint8

const (
	// FileNotFound means the identifier is not part of the document set.
	FileNotFound FileErrorKind = iota + 1
)

// FileError reports a failed document lookup.
type FileError struct {
	Kind FileErrorKind
	Path string
}

func (e *FileError) Error() string {
	return "file not found: " + e.Path
}

// Is lets errors.Is(err, ErrNotFound) match not-found lookups.
func (e *FileError) Is(target error) bool {
	return target == ErrNotFound && e.Kind == FileNotFound
}
