// Package world supplies the typesetting compiler with everything outside
// the markup itself: documents, fonts, the standard library and the clock.
//
// An Adapter is built for exactly one compilation and discarded afterwards.
// It never touches the network or any file outside the font directories.
package world

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"vellum/internal/clock"
	"vellum/internal/font"
	"vellum/internal/fontres"
	"vellum/internal/source"
	"vellum/internal/trace"
	"vellum/internal/typeset"
)

// Options configures an Adapter.
type Options struct {
	// FontDir is an extra directory scanned before the system fonts.
	FontDir string
	// SkipSystemFonts disables the host font directories.
	SkipSystemFonts bool
	// SystemDirs replaces the platform font directories when non-nil.
	SystemDirs []string
	// FS is where fonts are read from; nil means the OS filesystem.
	FS afero.Fs
	// Now is the clock source; nil means time.Now.
	Now func() time.Time
	// Location is the zone documents see as local; nil means the host's.
	Location *time.Location
	// Library overrides the shared default library.
	Library *typeset.Library
}

// Adapter is the World of one compilation.
type Adapter struct {
	id     uuid.UUID
	store  *source.Store
	book   *font.Book
	fonts  *fontres.Resolver
	clock  *clock.Clock
	lib    *typeset.Library
	tracer trace.Tracer
	parent uint64
}

var _ typeset.World = (*Adapter)(nil)

// New assembles an adapter over main and others. The font catalog is
// scanned from scratch; faces are loaded lazily as the compiler asks.
func New(ctx context.Context, main source.Document, others []source.Document, opts Options) *Adapter {
	tracer := trace.FromContext(ctx)
	id := uuid.New()

	ctx = trace.WithWorld(ctx, id.String())
	span, ctx := trace.StartSpan(ctx, trace.ScopePass, "world")

	book, fonts := fontres.New(ctx, fontres.Options{
		FontDir:         opts.FontDir,
		SkipSystemFonts: opts.SkipSystemFonts,
		SystemDirs:      opts.SystemDirs,
		FS:              opts.FS,
	})

	lib := opts.Library
	if lib == nil {
		lib = typeset.DefaultLibrary()
	}
	a := &Adapter{
		id:     id,
		store:  source.NewStore(main, others...),
		book:   book,
		fonts:  fonts,
		clock:  clock.New(opts.Now).In(opts.Location),
		lib:    lib,
		tracer: tracer,
		parent: span.ID(),
	}
	span.WithExtra("documents", fmt.Sprint(a.store.Len())).End("")
	return a
}

// ID identifies this adapter in trace output.
func (a *Adapter) ID() uuid.UUID { return a.id }

// MainID returns the identifier of the main document.
func (a *Adapter) MainID() source.FileID { return a.store.Main() }

// Store exposes the document set.
func (a *Adapter) Store() *source.Store { return a.store }

// Fonts exposes the lazy font resolver backing Book.
func (a *Adapter) Fonts() *fontres.Resolver { return a.fonts }

// Moment returns the instant this compilation treats as "now".
func (a *Adapter) Moment() time.Time { return a.clock.Moment() }

func (a *Adapter) Library() *typeset.Library { return a.lib }

func (a *Adapter) Book() *font.Book { return a.book }

// Main returns the entry-point source. A store always holds its main
// document, so failure here is a broken invariant and panics.
func (a *Adapter) Main() *source.Source {
	src, err := a.Source(a.store.Main())
	if err != nil {
		panic(fmt.Errorf("main document unavailable: %w", err))
	}
	return src
}

func (a *Adapter) Source(id source.FileID) (*source.Source, error) {
	span := trace.Begin(a.tracer, trace.ScopeModule, "source_read", a.parent).
		WithExtra("path", id.Path())
	src, err := a.store.Source(id)
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	span.End("")
	return src, nil
}

func (a *Adapter) File(id source.FileID) (source.Bytes, error) {
	return a.store.File(id)
}

func (a *Adapter) Font(index int) *font.Font {
	return a.fonts.Font(index)
}

func (a *Adapter) Now() (typeset.Datetime, bool) {
	return a.clock.Now()
}

func (a *Adapter) Today(offset *int64) (typeset.Datetime, bool) {
	return a.clock.Today(offset)
}
