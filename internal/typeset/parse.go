package typeset

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"vellum/internal/diag"
	"vellum/internal/source"
)

type nodeKind uint8

const (
	nodeParagraph nodeKind = iota + 1
	nodeHeading
	nodeDirective
)

// segment is one source line of running text with its byte offset.
type segment struct {
	text   string
	offset uint32
}

// arg is a directive argument; quoted arguments have their escapes resolved.
type arg struct {
	text   string
	quoted bool
	span   source.Span
}

type node struct {
	kind  nodeKind
	level int       // heading
	lines []segment // paragraph, heading
	name  string    // directive
	args  []arg
	span  source.Span
}

// blockDirectives are recognized only at the start of a line.
var blockDirectives = map[string]struct{}{
	"set":       {},
	"include":   {},
	"image":     {},
	"pagebreak": {},
}

// inlineDirectives may appear anywhere in running text.
var inlineDirectives = map[string]struct{}{
	"today": {},
	"now":   {},
}

const maxHeadingLevel = 6

// parse splits src into nodes. Syntax problems are reported and the offending
// line is dropped.
func parse(src *source.Source, rep diag.Reporter) []node {
	p := &parser{src: src, rep: rep}
	p.run()
	return p.nodes
}

type parser struct {
	src   *source.Source
	rep   diag.Reporter
	nodes []node
	para  []segment
}

func (p *parser) run() {
	text := p.src.Text
	for off := 0; off <= len(text); {
		end := strings.IndexByte(text[off:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += off
		}
		line := strings.TrimSuffix(text[off:end], "\r")
		p.line(line, p.offset(off))
		off = end + 1
	}
	p.flush()
}

func (p *parser) offset(off int) uint32 {
	return u32(off)
}

// u32 narrows a byte offset; sources are far below 4 GiB.
func u32(n int) uint32 {
	o, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("source offset overflow: %w", err))
	}
	return o
}

func (p *parser) span(start uint32, length int) source.Span {
	return source.Span{File: p.src.ID, Start: start, End: start + p.offset(length)}
}

func (p *parser) line(line string, off uint32) {
	trimmed := strings.TrimLeft(line, " \t")
	lead := p.offset(len(line) - len(trimmed))
	off += lead

	switch {
	case strings.TrimSpace(trimmed) == "":
		p.flush()
	case strings.HasPrefix(trimmed, "//"):
		// комментарий не разрывает абзац
	case strings.HasPrefix(trimmed, "="):
		p.flush()
		p.heading(trimmed, off)
	case strings.HasPrefix(trimmed, "#"):
		name := directiveName(trimmed[1:])
		if _, ok := blockDirectives[name]; ok {
			p.flush()
			p.directive(trimmed, off, name)
			return
		}
		if _, ok := inlineDirectives[name]; !ok && name != "" {
			p.flush()
			sp := p.span(off, len(trimmed))
			diag.ReportError(p.rep, diag.SynUnknownDirective, sp, "unknown directive #"+name).
				WithFix("escape the hash", diag.FixEdit{Span: p.span(off, 0), NewText: `\`}).
				Emit()
			return
		}
		p.para = append(p.para, segment{text: trimmed, offset: off})
	default:
		p.para = append(p.para, segment{text: trimmed, offset: off})
	}
}

func (p *parser) flush() {
	if len(p.para) == 0 {
		return
	}
	first, last := p.para[0], p.para[len(p.para)-1]
	p.nodes = append(p.nodes, node{
		kind:  nodeParagraph,
		lines: p.para,
		span: source.Span{
			File:  p.src.ID,
			Start: first.offset,
			End:   last.offset + p.offset(len(last.text)),
		},
	})
	p.para = nil
}

func (p *parser) heading(line string, off uint32) {
	level := 0
	for level < len(line) && line[level] == '=' {
		level++
	}
	sp := p.span(off, len(line))
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		// "==>" и подобное: обычный текст
		p.para = append(p.para, segment{text: line, offset: off})
		return
	}
	if level > maxHeadingLevel {
		diag.ReportError(p.rep, diag.SynHeadingTooDeep, sp, "headings go at most 6 levels deep").Emit()
		return
	}
	body := strings.TrimSpace(rest)
	if body == "" {
		diag.ReportError(p.rep, diag.SynEmptyHeading, sp, "heading has no text").Emit()
		return
	}
	bodyOff := off + p.offset(strings.Index(line, body))
	p.nodes = append(p.nodes, node{
		kind:  nodeHeading,
		level: level,
		lines: []segment{{text: body, offset: bodyOff}},
		span:  sp,
	})
}

func (p *parser) directive(line string, off uint32, name string) {
	sp := p.span(off, len(line))
	argsOff := 1 + len(name)
	args, ok := p.splitArgs(line[argsOff:], off+p.offset(argsOff))
	if !ok {
		return
	}
	p.nodes = append(p.nodes, node{
		kind: nodeDirective,
		name: name,
		args: args,
		span: sp,
	})
}

// splitArgs tokenizes space-separated arguments. Quoted arguments may contain
// spaces and the escapes \" and \\.
func (p *parser) splitArgs(s string, off uint32) ([]arg, bool) {
	var out []arg
	i := 0
	for i < len(s) {
		if s[i] == ' ' || s[i] == '\t' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], "//") {
			break
		}
		start := i
		if s[i] != '"' {
			for i < len(s) && s[i] != ' ' && s[i] != '\t' {
				i++
			}
			out = append(out, arg{text: s[start:i], span: p.span(off+p.offset(start), i-start)})
			continue
		}

		var sb strings.Builder
		i++
		closed := false
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
				sb.WriteByte(s[i+1])
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			sb.WriteByte(c)
			i++
		}
		sp := p.span(off+p.offset(start), i-start)
		if !closed {
			diag.ReportError(p.rep, diag.SynUnclosedString, sp, "string is missing its closing quote").Emit()
			return nil, false
		}
		out = append(out, arg{text: sb.String(), quoted: true, span: sp})
	}
	return out, true
}

// directiveName returns the identifier at the start of s.
func directiveName(s string) string {
	end := 0
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		if !unicode.IsLetter(r) && r != '_' {
			break
		}
		end += size
	}
	return s[:end]
}
