// Package typeset is the markup compiler vellum drives. It turns .vel
// sources into a laid-out Document, asking a World for every resource it
// needs: sources, binary files, fonts and the current date.
package typeset

import (
	"sync"

	"vellum/internal/font"
	"vellum/internal/source"
)

// World is everything the compiler may ask of its environment.
type World interface {
	// Library returns the standard definitions.
	Library() *Library
	// Book returns the catalog of selectable fonts.
	Book() *font.Book
	// Main returns the entry-point source.
	Main() *source.Source
	// Source returns the decoded text of id.
	Source(id source.FileID) (*source.Source, error)
	// File returns the raw bytes of id.
	File(id source.FileID) (source.Bytes, error)
	// Font returns the face for book entry index, or nil if it cannot be
	// loaded.
	Font(index int) *font.Font
	// Now returns the current local date and time.
	Now() (Datetime, bool)
	// Today returns the current date; see clock.Clock.Today for offset.
	Today(offset *int64) (Datetime, bool)
}

// Library holds the standard definitions every compilation starts from.
// It is never modified after construction.
type Library struct {
	// Page geometry in millimetres.
	PageWidth  float64
	PageHeight float64
	Margin     float64

	// Type sizes in points.
	BaseSize     float64
	MinSize      float64
	MaxSize      float64
	LineHeight   float64
	HeadingScale [maxHeadingLevel]float64

	// DefaultFamilies are tried in order when a document sets no font.
	DefaultFamilies []string

	MaxIncludeDepth int
}

// DefaultLibrary returns the shared standard library, built on first use.
var DefaultLibrary = sync.OnceValue(func() *Library {
	return &Library{
		PageWidth:    210,
		PageHeight:   297,
		Margin:       25,
		BaseSize:     11,
		MinSize:      4,
		MaxSize:      96,
		LineHeight:   1.35,
		HeadingScale: [maxHeadingLevel]float64{2.0, 1.6, 1.35, 1.2, 1.1, 1.0},
		DefaultFamilies: []string{
			"Go",
			"DejaVu Sans",
			"Liberation Sans",
			"Noto Sans",
			"Arial",
		},
		MaxIncludeDepth: 32,
	}
})

// ContentWidth is the usable line width in millimetres.
func (l *Library) ContentWidth() float64 {
	return l.PageWidth - 2*l.Margin
}
