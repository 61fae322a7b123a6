package typeset

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strconv"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"vellum/internal/diag"
	"vellum/internal/source"
)

// imageFormat describes one accepted raster format. Formats without a
// native exporter form are converted to PNG.
type imageFormat struct {
	name   string
	magic  [][]byte
	config func([]byte) (image.Config, error)
	decode func([]byte) (image.Image, error)
	native string // exporter format, "" if conversion is needed
}

func configOf(f func(io.Reader) (image.Config, error)) func([]byte) (image.Config, error) {
	return func(b []byte) (image.Config, error) { return f(bytes.NewReader(b)) }
}

func decodeOf(f func(io.Reader) (image.Image, error)) func([]byte) (image.Image, error) {
	return func(b []byte) (image.Image, error) { return f(bytes.NewReader(b)) }
}

var imageFormats = []imageFormat{
	{
		name:   "png",
		magic:  [][]byte{[]byte("\x89PNG\r\n\x1a\n")},
		config: configOf(png.DecodeConfig),
		native: "PNG",
	},
	{
		name:   "jpeg",
		magic:  [][]byte{{0xFF, 0xD8, 0xFF}},
		config: configOf(jpeg.DecodeConfig),
		native: "JPG",
	},
	{
		name:   "gif",
		magic:  [][]byte{[]byte("GIF87a"), []byte("GIF89a")},
		config: configOf(gif.DecodeConfig),
		native: "GIF",
	},
	{
		name:   "bmp",
		magic:  [][]byte{[]byte("BM")},
		config: configOf(bmp.DecodeConfig),
		decode: decodeOf(bmp.Decode),
	},
	{
		name:   "tiff",
		magic:  [][]byte{[]byte("II*\x00"), []byte("MM\x00*")},
		config: configOf(tiff.DecodeConfig),
		decode: decodeOf(tiff.Decode),
	},
	{
		name:   "webp",
		magic:  [][]byte{[]byte("RIFF")},
		config: configOf(webp.DecodeConfig),
		decode: decodeOf(webp.Decode),
	},
}

func sniffImage(data []byte) (imageFormat, bool) {
	for _, f := range imageFormats {
		for _, m := range f.magic {
			if bytes.HasPrefix(data, m) {
				return f, true
			}
		}
	}
	return imageFormat{}, false
}

// loadImage reads, sniffs and measures the picture at id.
func loadImage(w World, id source.FileID) (*Image, diag.Code, error) {
	raw, err := w.File(id)
	if err != nil {
		return nil, diag.ResFileNotFound, err
	}
	data := raw.Slice()
	format, ok := sniffImage(data)
	if !ok {
		return nil, diag.ResImageUnsupported, fmt.Errorf("%s is not a PNG, JPEG, GIF, BMP, TIFF or WebP image", id.Path())
	}
	cfg, err := format.config(data)
	if err != nil {
		return nil, diag.ResImageDecode, fmt.Errorf("%s: %w", id.Path(), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, diag.ResImageDecode, fmt.Errorf("%s: empty image", id.Path())
	}

	img := &Image{Path: id.Path(), Format: format.native, Data: raw, Width: cfg.Width, Height: cfg.Height}
	if format.native != "" {
		return img, 0, nil
	}

	// BMP/TIFF/WebP: PDF-писатель понимает только PNG/JPEG/GIF
	decoded, err := format.decode(data)
	if err != nil {
		return nil, diag.ResImageDecode, fmt.Errorf("%s: %w", id.Path(), err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, diag.ResImageDecode, fmt.Errorf("%s: re-encode %s as png: %w", id.Path(), format.name, err)
	}
	img.Format = "PNG"
	img.Data = source.TakeBytes(buf.Bytes())
	return img, 0, nil
}

func (c *compiler) image(n node) {
	if len(n.args) == 0 || len(n.args) > 2 || !n.args[0].quoted {
		diag.ReportError(c.rep, diag.SynExpectString, n.span, `#image expects "path" and an optional width in mm`).Emit()
		return
	}
	widthMM := 0.0
	if len(n.args) == 2 {
		v, err := strconv.ParseFloat(n.args[1].text, 64)
		if err != nil || v <= 0 || v > c.lib.ContentWidth() {
			diag.ReportError(c.rep, diag.SynBadArgument, n.args[1].span,
				fmt.Sprintf("image width must be between 0 and %g mm", c.lib.ContentWidth())).Emit()
			return
		}
		widthMM = v
	}

	id := c.stack[len(c.stack)-1].Join(n.args[0].text)
	img, code, err := loadImage(c.world, id)
	if err != nil {
		diag.ReportError(c.rep, code, n.span, err.Error()).Emit()
		return
	}
	img.WidthMM = widthMM
	c.doc.Blocks = append(c.doc.Blocks, Block{Kind: BlockImage, Image: img, Span: n.span})
}
