// Package pdf writes compiled documents as PDF files.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/jung-kurt/gofpdf"

	"vellum/internal/font"
	"vellum/internal/typeset"
)

// ErrExport wraps every failure reported by the PDF writer.
var ErrExport = errors.New("pdf export failed")

const (
	ptToMM = 25.4 / 72
	pxToMM = 25.4 / 96

	builtinFamily = "Helvetica"
	producer      = "vellum"
)

// sentinelDate is written as both document dates when the caller omits
// the creation date. Its tokens are then blanked out of the finished file.
var sentinelDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

var sentinelToken = regexp.MustCompile(`/(?:Creation|Mod)Date \(D:` + sentinelDate.Format("20060102150405") + `[^)]*\)`)

// Export renders doc. The modification date always equals the creation
// date; a nil created leaves both out of the file entirely.
func Export(doc *typeset.Document, created *typeset.Datetime) (out []byte, err error) {
	defer func() {
		// разбор шрифта внутри gofpdf может паниковать на битых таблицах
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrExport, r)
		}
	}()

	w := newWriter(doc, created)
	w.embedFonts(doc.Fonts())
	w.pdf.AddPage()
	for i := range doc.Blocks {
		w.block(i, &doc.Blocks[i])
		if w.pdf.Err() {
			break
		}
	}

	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	data := buf.Bytes()
	if created == nil {
		data = blankDates(data)
	}
	return data, nil
}

// blankDates overwrites the sentinel dates with spaces of the same length
// so the cross-reference offsets stay valid.
func blankDates(data []byte) []byte {
	for _, loc := range sentinelToken.FindAllIndex(data, -1) {
		for i := loc[0]; i < loc[1]; i++ {
			data[i] = ' '
		}
	}
	return data
}

type writer struct {
	pdf   *gofpdf.Fpdf
	page  typeset.PageSetup
	faces map[*font.Font]string
	tr    func(string) string
}

func newWriter(doc *typeset.Document, created *typeset.Datetime) *writer {
	page := doc.Page
	if page.Leading <= 0 {
		page.Leading = 1.2
	}
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	p.SetMargins(page.Margin, page.Margin, page.Margin)
	p.SetAutoPageBreak(true, page.Margin)
	p.SetProducer(producer, false)
	p.SetCreator(producer, false)
	if doc.Title != "" {
		p.SetTitle(doc.Title, true)
	}
	if doc.Author != "" {
		p.SetAuthor(doc.Author, true)
	}
	stamp := sentinelDate
	if created != nil {
		stamp = created.WallTime()
	}
	// без явной даты gofpdf подставит time.Now()
	p.SetCreationDate(stamp)
	p.SetModificationDate(stamp)
	return &writer{
		pdf:   p,
		page:  page,
		faces: make(map[*font.Font]string),
		tr:    p.UnicodeTranslatorFromDescriptor(""),
	}
}

// embedFonts registers every embeddable face. Collections and CFF-flavored
// faces are not supported by the writer; blocks using them fall back to the
// built-in face.
func (w *writer) embedFonts(fonts []*font.Font) {
	for _, f := range fonts {
		if !f.Embeddable() {
			continue
		}
		name := fmt.Sprintf("vf%d", len(w.faces))
		w.pdf.AddUTF8FontFromBytes(name, "", f.Data().Slice())
		w.faces[f] = name
	}
}

// setStyle selects the face for st and returns the text encoder to use
// with it.
func (w *writer) setStyle(st typeset.Style) func(string) string {
	size := st.Size
	if size <= 0 {
		size = 11
	}
	if name, ok := w.faces[st.Font]; ok && st.Font != nil {
		w.pdf.SetFont(name, "", size)
		return func(s string) string { return s }
	}
	style := ""
	if st.Variant.Weight >= font.WeightSemiBold {
		style += "B"
	}
	if st.Variant.Style != font.StyleNormal {
		style += "I"
	}
	w.pdf.SetFont(builtinFamily, style, size)
	return w.tr
}

func (w *writer) lineHeight(size float64) float64 {
	return size * ptToMM * w.page.Leading
}

func (w *writer) atTop() bool {
	return w.pdf.GetY() <= w.page.Margin+0.01
}

func (w *writer) block(i int, b *typeset.Block) {
	switch b.Kind {
	case typeset.BlockParagraph:
		h := w.lineHeight(b.Style.Size)
		w.text(b, h)
		w.pdf.Ln(h / 2)
	case typeset.BlockHeading:
		h := w.lineHeight(b.Style.Size)
		if !w.atTop() {
			w.pdf.Ln(h / 3)
		}
		w.text(b, h)
		w.pdf.Ln(h / 4)
	case typeset.BlockPageBreak:
		w.pdf.AddPage()
	case typeset.BlockImage:
		w.image(i, b.Image)
	}
}

// text draws the block's text with line height h. Blocks with fallback runs
// are flowed run by run, switching faces in between.
func (w *writer) text(b *typeset.Block, h float64) {
	if len(b.Runs) == 0 {
		enc := w.setStyle(b.Style)
		w.pdf.MultiCell(0, h, enc(b.Text), "", "L", false)
		return
	}
	for _, run := range b.Runs {
		st := b.Style
		st.Font = run.Font
		enc := w.setStyle(st)
		w.pdf.Write(h, enc(run.Text))
	}
	w.pdf.Ln(h)
}

func (w *writer) image(i int, img *typeset.Image) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return
	}
	contentW := w.page.Width - 2*w.page.Margin
	contentH := w.page.Height - 2*w.page.Margin

	width := img.WidthMM
	if width <= 0 {
		width = math.Min(float64(img.Width)*pxToMM, contentW)
	}
	height := width * float64(img.Height) / float64(img.Width)
	if height > contentH {
		width *= contentH / height
		height = contentH
	}

	opts := gofpdf.ImageOptions{ImageType: img.Format}
	name := fmt.Sprintf("img%d", i)
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data.Slice()))
	if w.pdf.Err() {
		return
	}

	if w.pdf.GetY()+height > w.page.Height-w.page.Margin && !w.atTop() {
		w.pdf.AddPage()
	}
	y := w.pdf.GetY()
	w.pdf.ImageOptions(name, w.page.Margin, y, width, height, false, opts, 0, "")
	w.pdf.SetY(y + height)
	w.pdf.Ln(w.lineHeight(11) / 2)
}
