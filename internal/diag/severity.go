package diag

// Severity ranks a diagnostic. Any error withholds the PDF; warnings and
// infos are printed next to a finished document.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityLabels = [...]string{
	SevInfo:    "info",
	SevWarning: "warning",
	SevError:   "error",
}

// String returns the lowercase label used in rendered diagnostics.
func (s Severity) String() string {
	if int(s) < len(severityLabels) {
		return severityLabels[s]
	}
	return "unknown"
}

// Blocking reports whether s stops a compilation from producing output.
func (s Severity) Blocking() bool { return s >= SevError }
