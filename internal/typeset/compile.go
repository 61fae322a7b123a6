package typeset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"vellum/internal/diag"
	"vellum/internal/font"
	"vellum/internal/source"
)

// ErrFailed is wrapped by every error Compile returns.
var ErrFailed = errors.New("compilation failed")

// Compile typesets the main source of w. Findings go to reporter (which may
// be nil); if any of them is an error, Compile returns an error wrapping
// ErrFailed and no document.
func Compile(w World, reporter diag.Reporter) (*Document, error) {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	counter := &countingReporter{next: diag.NewDedupReporter(reporter)}
	lib := w.Library()
	c := &compiler{
		world: w,
		lib:   lib,
		rep:   counter,
		doc: &Document{
			Page: PageSetup{
				Width:   lib.PageWidth,
				Height:  lib.PageHeight,
				Margin:  lib.Margin,
				Leading: lib.LineHeight,
			},
		},
		fonts:     make(map[fontKey]*font.Font),
		fallbacks: make(map[fallbackKey]*font.Font),
	}
	c.style = textStyle{variant: font.RegularVariant, size: lib.BaseSize}

	main := w.Main()
	c.file(main)

	if counter.errors > 0 {
		return nil, fmt.Errorf("%w: %d error(s)", ErrFailed, counter.errors)
	}
	return c.doc, nil
}

type countingReporter struct {
	next   diag.Reporter
	errors int
}

func (r *countingReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixes []diag.Fix) {
	if sev.Blocking() {
		r.errors++
	}
	r.next.Report(code, sev, primary, msg, notes, fixes)
}

// textStyle is the style requested by #set, before font resolution.
type textStyle struct {
	family  string // "" means library defaults
	variant font.Variant
	size    float64
}

type fontKey struct {
	family  string
	variant font.Variant
}

type fallbackKey struct {
	r       rune
	variant font.Variant
}

type compiler struct {
	world     World
	lib       *Library
	rep       diag.Reporter
	doc       *Document
	style     textStyle
	stack     []source.FileID
	fonts     map[fontKey]*font.Font
	fallbacks map[fallbackKey]*font.Font
}

func (c *compiler) file(src *source.Source) {
	c.stack = append(c.stack, src.ID)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	for _, n := range parse(src, c.rep) {
		switch n.kind {
		case nodeParagraph:
			c.text(BlockParagraph, 0, n)
		case nodeHeading:
			c.text(BlockHeading, n.level, n)
		case nodeDirective:
			c.directive(n)
		}
	}
}

func (c *compiler) text(kind BlockKind, level int, n node) {
	parts := make([]string, 0, len(n.lines))
	for _, seg := range n.lines {
		if s := strings.TrimSpace(c.expand(seg, n.span.File)); s != "" {
			parts = append(parts, s)
		}
	}
	text := strings.Join(parts, " ")
	if text == "" {
		return
	}

	size := c.style.size
	variant := c.style.variant
	if kind == BlockHeading {
		size *= c.lib.HeadingScale[level-1]
		if variant.Weight < font.WeightBold {
			variant.Weight = font.WeightBold
		}
	}
	style := c.resolveStyle(variant, size, n.span)
	runs := c.shape(style, text, n.span)

	c.doc.Blocks = append(c.doc.Blocks, Block{
		Kind:  kind,
		Level: level,
		Text:  text,
		Style: style,
		Runs:  runs,
		Span:  n.span,
	})
}

// expand resolves escapes and inline directives in one line of text.
func (c *compiler) expand(seg segment, file source.FileID) string {
	var sb strings.Builder
	s := seg.text
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '#' {
			sb.WriteByte('#')
			i += 2
			continue
		}
		if s[i] != '#' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		name := directiveName(s[i+1:])
		if _, ok := inlineDirectives[name]; !ok {
			sb.WriteByte('#')
			i++
			continue
		}
		start := i
		i += 1 + len(name)
		var offset *int64
		if name == "today" && i < len(s) && s[i] == '(' {
			end := strings.IndexByte(s[i:], ')')
			sp := source.Span{File: file, Start: seg.offset + u32(start), End: seg.offset + u32(len(s))}
			if end < 0 {
				diag.ReportError(c.rep, diag.SynBadArgument, sp, "#today( is missing its closing parenthesis").Emit()
				return sb.String()
			}
			raw := s[i+1 : i+end]
			h, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				sp.End = seg.offset + u32(i+end+1)
				diag.ReportError(c.rep, diag.SynBadArgument, sp, fmt.Sprintf("hour offset %q is not an integer", raw)).Emit()
				i += end + 1
				continue
			}
			offset = &h
			i += end + 1
		}
		sp := source.Span{File: file, Start: seg.offset + u32(start), End: seg.offset + u32(i)}
		sb.WriteString(c.date(name, offset, sp))
	}
	return sb.String()
}

func (c *compiler) date(name string, offset *int64, sp source.Span) string {
	var (
		d  Datetime
		ok bool
	)
	if name == "now" {
		d, ok = c.world.Now()
	} else {
		d, ok = c.world.Today(offset)
	}
	if !ok {
		diag.ReportWarning(c.rep, diag.ResDateUnavailable, sp, "the current date is not available").Emit()
		return ""
	}
	return d.String()
}

func (c *compiler) directive(n node) {
	switch n.name {
	case "set":
		c.set(n)
	case "include":
		c.include(n)
	case "image":
		c.image(n)
	case "pagebreak":
		if len(n.args) > 0 {
			diag.ReportError(c.rep, diag.SynUnexpectedArgument, n.args[0].span, "#pagebreak takes no arguments").Emit()
			return
		}
		c.doc.Blocks = append(c.doc.Blocks, Block{Kind: BlockPageBreak, Span: n.span})
	}
}

func (c *compiler) set(n node) {
	if len(n.args) == 0 {
		diag.ReportError(c.rep, diag.SynBadArgument, n.span, "#set needs a setting name").Emit()
		return
	}
	key, rest := n.args[0], n.args[1:]
	switch key.text {
	case "font":
		c.setFont(n, rest)
	case "size":
		if len(rest) != 1 {
			diag.ReportError(c.rep, diag.SynBadArgument, n.span, "#set size takes one number").Emit()
			return
		}
		v, err := strconv.ParseFloat(rest[0].text, 64)
		if err != nil || v < c.lib.MinSize || v > c.lib.MaxSize {
			diag.ReportError(c.rep, diag.SynBadArgument, rest[0].span,
				fmt.Sprintf("size must be a number between %g and %g", c.lib.MinSize, c.lib.MaxSize)).Emit()
			return
		}
		c.style.size = v
	case "title", "author":
		s, ok := c.oneString(n, rest)
		if !ok {
			return
		}
		if key.text == "title" {
			c.doc.Title = s
		} else {
			c.doc.Author = s
		}
	default:
		b := diag.ReportError(c.rep, diag.SynUnknownSetting, key.span, "unknown setting "+strconv.Quote(key.text))
		if lower := strings.ToLower(key.text); settingNames[lower] {
			b = b.WithReplacement(key.span, lower)
		}
		b.Emit()
	}
}

// settingNames are the keys #set accepts; matching is case-sensitive.
var settingNames = map[string]bool{"font": true, "size": true, "title": true, "author": true}

var variantFlags = map[string]func(*font.Variant){
	"regular": func(v *font.Variant) { *v = font.RegularVariant },
	"bold":    func(v *font.Variant) { v.Weight = font.WeightBold },
	"light":   func(v *font.Variant) { v.Weight = font.WeightLight },
	"medium":  func(v *font.Variant) { v.Weight = font.WeightMedium },
	"black":   func(v *font.Variant) { v.Weight = font.WeightBlack },
	"italic":  func(v *font.Variant) { v.Style = font.StyleItalic },
	"oblique": func(v *font.Variant) { v.Style = font.StyleOblique },
	"condensed": func(v *font.Variant) {
		v.Stretch = font.StretchCondensed
	},
	"expanded": func(v *font.Variant) {
		v.Stretch = font.StretchExpanded
	},
}

func (c *compiler) setFont(n node, args []arg) {
	if len(args) == 0 || !args[0].quoted {
		sp := n.span
		if len(args) > 0 {
			sp = args[0].span
		}
		diag.ReportError(c.rep, diag.SynExpectString, sp, `#set font expects a quoted family name`).Emit()
		return
	}
	variant := font.RegularVariant
	for _, a := range args[1:] {
		apply, ok := variantFlags[strings.ToLower(a.text)]
		if a.quoted || !ok {
			diag.ReportError(c.rep, diag.SynBadArgument, a.span, "unknown font flag "+strconv.Quote(a.text)).Emit()
			return
		}
		apply(&variant)
	}
	family := strings.TrimSpace(args[0].text)
	if _, ok := c.world.Book().Select(family, variant); !ok {
		diag.ReportWarning(c.rep, diag.ResFontNotFound, args[0].span,
			fmt.Sprintf("font family %q is not installed; using the default", family)).Emit()
	}
	c.style.family = family
	c.style.variant = variant
}

func (c *compiler) oneString(n node, args []arg) (string, bool) {
	if len(args) != 1 || !args[0].quoted {
		diag.ReportError(c.rep, diag.SynExpectString, n.span, "expected one quoted string").Emit()
		return "", false
	}
	return args[0].text, true
}

func (c *compiler) include(n node) {
	p, ok := c.oneString(n, n.args)
	if !ok {
		return
	}
	cur := c.stack[len(c.stack)-1]
	id := cur.Join(p)
	for _, open := range c.stack {
		if open == id {
			diag.ReportError(c.rep, diag.ResIncludeCycle, n.span, "include cycle through "+id.Path()).Emit()
			return
		}
	}
	if len(c.stack) >= c.lib.MaxIncludeDepth {
		diag.ReportError(c.rep, diag.ResIncludeTooDeep, n.span,
			fmt.Sprintf("includes nested deeper than %d", c.lib.MaxIncludeDepth)).Emit()
		return
	}
	src, err := c.world.Source(id)
	if err != nil {
		diag.ReportError(c.rep, diag.ResFileNotFound, n.span, err.Error()).Emit()
		return
	}

	// #set внутри включённого файла действует только до его конца
	saved := c.style
	c.file(src)
	c.style = saved
}

// resolveStyle picks a concrete face for the current family and variant,
// falling back to the library defaults.
func (c *compiler) resolveStyle(variant font.Variant, size float64, sp source.Span) Style {
	families := c.lib.DefaultFamilies
	if c.style.family != "" {
		families = append([]string{c.style.family}, families...)
	}
	for _, family := range families {
		key := fontKey{family: strings.ToLower(family), variant: variant}
		f, seen := c.fonts[key]
		if !seen {
			f = c.loadFont(family, variant, sp)
			c.fonts[key] = f
		}
		if f != nil {
			return Style{Family: f.Info().Family, Variant: f.Info().Variant, Size: size, Font: f}
		}
	}
	return Style{Family: c.style.family, Variant: variant, Size: size}
}

func (c *compiler) loadFont(family string, variant font.Variant, sp source.Span) *font.Font {
	idx, ok := c.world.Book().Select(family, variant)
	if !ok {
		return nil
	}
	f := c.world.Font(idx)
	if f == nil {
		diag.ReportWarning(c.rep, diag.ResFontUnavailable, sp,
			fmt.Sprintf("font %q (%s) could not be loaded", family, variant)).Emit()
	}
	return f
}

// shape splits text into runs of the chosen face and of fallback faces for
// the characters it cannot draw, and warns about characters no cataloged
// face covers. It returns nil when the chosen face draws everything.
func (c *compiler) shape(style Style, text string, sp source.Span) []Run {
	var (
		runs    []Run
		missing []rune
		start   int
		cur     = style.Font
	)
	seen := make(map[rune]struct{})
	for i, r := range text {
		f := style.Font
		switch {
		case r == ' ' || r == '\t':
			f = cur
		case !canDraw(style.Font, r):
			if fb := c.fallback(r, style.Variant); fb != nil {
				f = fb
				break
			}
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				missing = append(missing, r)
			}
		}
		if f != cur {
			if i > start {
				runs = append(runs, Run{Text: text[start:i], Font: cur})
			}
			start, cur = i, f
		}
	}
	runs = append(runs, Run{Text: text[start:], Font: cur})

	if len(missing) > 0 {
		name := style.Family
		if style.Font == nil || !style.Font.Embeddable() {
			name = "built-in Helvetica"
		}
		diag.ReportWarning(c.rep, diag.ResMissingGlyph, sp,
			fmt.Sprintf("%s has no glyph for %q", name, string(missing))).Emit()
	}
	if len(runs) == 1 && runs[0].Font == style.Font {
		return nil
	}
	return runs
}

// fallback returns an embeddable face covering r, nearest to variant, or
// nil. Book coverage is trusted as probed at scan time.
func (c *compiler) fallback(r rune, variant font.Variant) *font.Font {
	key := fallbackKey{r: r, variant: variant}
	if f, ok := c.fallbacks[key]; ok {
		return f
	}
	var f *font.Font
	if idx, ok := c.world.Book().SelectFallback(r, variant); ok {
		if cand := c.world.Font(idx); cand != nil && cand.Embeddable() {
			f = cand
		}
	}
	c.fallbacks[key] = f
	return f
}

// canDraw reports whether r can be drawn with f. Faces the PDF writer
// cannot embed are replaced by the built-in face, so only its encoding
// counts for them.
func canDraw(f *font.Font, r rune) bool {
	if f != nil && f.Embeddable() {
		return f.HasGlyph(r)
	}
	_, ok := charmap.Windows1252.EncodeRune(r)
	return ok
}
