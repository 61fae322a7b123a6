package diag

import (
	"fmt"

	"vellum/internal/source"
)

// New builds a diagnostic without reporting it.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

// WithNote points at a second place in the markup, e.g. the #include that
// opened the file an error sits in.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithFix(title string, edits ...FixEdit) Diagnostic {
	d.Fixes = append(d.Fixes, Fix{Title: title, Edits: edits})
	return d
}

// WithReplacement adds a fix that rewrites sp to text.
func (d Diagnostic) WithReplacement(sp source.Span, text string) Diagnostic {
	return d.WithFix(fmt.Sprintf("replace with %q", text), FixEdit{Span: sp, NewText: text})
}
