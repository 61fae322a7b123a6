package diag

import (
	"fmt"
	"sort"
	"strings"

	"vellum/internal/source"
)

// SourceLookup resolves identifiers to decoded text; *source.Store
// satisfies it.
type SourceLookup interface {
	Source(id source.FileID) (*source.Source, error)
}

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatShortDiagnostics renders diagnostics one per line as
// "severity CODE path:line:col message", sorted deterministically. Paths are
// shown relative to the virtual root. Diagnostics whose file cannot be
// resolved are dropped.
func FormatShortDiagnostics(diags []*Diagnostic, files SourceLookup, includeNotes bool) string {
	return formatDiagnostics(diags, files, includeNotes)
}

func formatDiagnostics(diags []*Diagnostic, files SourceLookup, includeNotes bool) string {
	if files == nil || len(diags) == 0 {
		return ""
	}

	rendered := make([]goldenDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = appendDiagnostic(rendered, d, files, includeNotes)
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendDiagnostic(out []goldenDiagnostic, d *Diagnostic, files SourceLookup, includeNotes bool) []goldenDiagnostic {
	loc, ok := resolveSpan(files, d.Primary)
	if ok {
		out = append(out, goldenDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Path:     loc.Path,
			Line:     loc.Line,
			Column:   loc.Column,
			Message:  sanitizeMessage(d.Message),
		})
	}

	if includeNotes {
		for _, note := range d.Notes {
			nloc, nok := resolveSpan(files, note.Span)
			if !nok {
				continue
			}
			out = append(out, goldenDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Path:     nloc.Path,
				Line:     nloc.Line,
				Column:   nloc.Column,
				Message:  sanitizeMessage(note.Msg),
			})
		}
	}

	return out
}

type resolvedSpan struct {
	Path   string
	Line   uint32
	Column uint32
}

func resolveSpan(files SourceLookup, span source.Span) (loc resolvedSpan, ok bool) {
	// битый UTF-8 паникует в Source; такую диагностику просто не печатаем
	defer func() {
		if recover() != nil {
			loc = resolvedSpan{}
			ok = false
		}
	}()

	src, err := files.Source(span.File)
	if err != nil {
		return resolvedSpan{}, false
	}
	start := src.Position(span.Start)
	return resolvedSpan{
		Path:   strings.TrimPrefix(span.File.Path(), "/"),
		Line:   start.Line,
		Column: start.Col,
	}, true
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
