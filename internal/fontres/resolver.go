// Package fontres builds the font catalog for one compilation and loads
// faces on first use.
//
// Scanning reads only metadata. The bytes of a face are read the first time
// the compiler asks for it, and the outcome (including failure) is kept for
// the lifetime of the Resolver.
package fontres

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"vellum/internal/font"
	"vellum/internal/fontdb"
	"vellum/internal/memo"
	"vellum/internal/source"
	"vellum/internal/trace"
)

// Options controls which fonts a scan discovers.
type Options struct {
	// FontDir is scanned first, recursively. Empty means none.
	FontDir string
	// SkipSystemFonts disables the host font directories.
	SkipSystemFonts bool
	// SystemDirs replaces fontdb.SystemFontDirs when non-nil.
	SystemDirs []string
	// FS is the filesystem fonts are read from; nil means the OS.
	FS afero.Fs
	// Workers bounds parallel metadata extraction; 0 means GOMAXPROCS.
	Workers int
}

// descriptor is the recipe for loading one catalog entry.
type descriptor struct {
	path  string
	index uint32
	slot  memo.Cell[*font.Font]
}

// Resolver hands out decoded fonts by catalog index.
type Resolver struct {
	fs     afero.Fs
	fonts  []descriptor
	tracer trace.Tracer
	parent uint64
}

// New scans the configured directories and returns the catalog together with
// a resolver whose descriptor i backs book entry i.
//
// A face that the scan listed but whose metadata cannot be read is a corrupt
// font environment and panics. Faces without usable metadata are dropped;
// faces registered from memory are never listed.
func New(ctx context.Context, opts Options) (*font.Book, *Resolver) {
	tracer := trace.FromContext(ctx)
	span, _ := trace.StartSpan(ctx, trace.ScopePass, "font_scan")

	db := fontdb.New(opts.FS)
	if opts.FontDir != "" {
		db.LoadFontsDir(opts.FontDir)
	}
	switch {
	case opts.SkipSystemFonts:
	case opts.SystemDirs != nil:
		db.LoadDirs(opts.SystemDirs)
	default:
		db.LoadSystemFonts()
	}

	faces := make([]fontdb.Face, 0, db.Len())
	for _, face := range db.Faces() {
		if face.Source.Kind != fontdb.SourceFile {
			continue
		}
		faces = append(faces, face)
	}

	infos, err := extractInfos(db, faces, opts.Workers)
	if err != nil {
		span.Fail(err)
		panic(fmt.Errorf("font metadata unreadable: %w", err))
	}

	book := font.NewBook()
	res := &Resolver{
		fs:     db.FS(),
		fonts:  make([]descriptor, 0, len(faces)),
		tracer: tracer,
		parent: span.ID(),
	}
	for k, info := range infos {
		if info == nil {
			continue
		}
		book.Push(*info)
		res.fonts = append(res.fonts, descriptor{
			path:  faces[k].Source.Path,
			index: faces[k].Index,
		})
	}

	span.WithExtra("faces", strconv.Itoa(len(res.fonts))).
		WithExtra("skipped", strconv.Itoa(db.Skipped()+len(faces)-len(res.fonts))).
		End("")
	return book, res
}

// extractInfos reads metadata for every face in parallel. Result k belongs
// to faces[k].
func extractInfos(db *fontdb.Database, faces []fontdb.Face, workers int) ([]*font.Info, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	infos := make([]*font.Info, len(faces))

	var g errgroup.Group
	g.SetLimit(workers)
	for k := range faces {
		g.Go(func() error {
			face := faces[k]
			return db.WithFaceData(face.ID, func(r io.ReaderAt, index uint32) error {
				info, err := font.NewInfo(r, index)
				if err != nil {
					return fmt.Errorf("%s#%d: %w", face.Source.Path, index, err)
				}
				infos[k] = info
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Len returns the number of catalog entries.
func (r *Resolver) Len() int {
	return len(r.fonts)
}

// Path returns the file backing entry i, or "" when i is out of range.
func (r *Resolver) Path(i int) string {
	if i < 0 || i >= len(r.fonts) {
		return ""
	}
	return r.fonts[i].path
}

// Font returns the decoded face for entry i. The first call reads the whole
// font file; the result is remembered, so a file that could not be read or
// decoded yields nil on every call.
func (r *Resolver) Font(i int) *font.Font {
	if i < 0 || i >= len(r.fonts) {
		return nil
	}
	d := &r.fonts[i]
	return d.slot.GetOrInit(func() *font.Font {
		return r.load(d)
	})
}

// Loaded reports whether entry i has been resolved already.
func (r *Resolver) Loaded(i int) bool {
	if i < 0 || i >= len(r.fonts) {
		return false
	}
	return r.fonts[i].slot.Filled()
}

func (r *Resolver) load(d *descriptor) *font.Font {
	span := trace.Begin(r.tracer, trace.ScopeModule, "font_load", r.parent).
		WithExtra("path", d.path).
		WithExtra("index", strconv.FormatUint(uint64(d.index), 10))

	data, err := afero.ReadFile(r.fs, d.path)
	if err != nil {
		span.End("unreadable: " + err.Error())
		return nil
	}
	f := font.New(source.TakeBytes(data), d.index)
	if f == nil {
		span.End("undecodable")
		return nil
	}
	span.End(f.Info().Family)
	return f
}
