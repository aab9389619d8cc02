// Package export encodes captured regions and delivers them to files, the
// clipboard or a stream.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/bmp"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
	PDF  Format = "pdf"
)

const DefaultJPEGQuality = 90

// ParseFormat accepts a format name or a file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	case "pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatForPath picks the format from the file extension of path.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// Options controls encoding.
type Options struct {
	Format Format
	// Quality applies to JPEG and to the image embedded in a PDF.
	Quality int
}

func (o Options) quality() int {
	if o.Quality <= 0 || o.Quality > 100 {
		return DefaultJPEGQuality
	}
	return o.Quality
}

// Encode writes img to w in the requested format.
func Encode(w io.Writer, img image.Image, opts Options) error {
	switch opts.Format {
	case PNG, "":
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: opts.quality()})
	case BMP:
		return bmp.Encode(w, img)
	case PDF:
		return encodePDF(w, img, opts.quality())
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
}

// DefaultName is the file name used when no output path is given.
func DefaultName(t time.Time, f Format) string {
	return "screenshot-" + t.Format("2006-01-02-15-04-05.000") + "." + f.Ext()
}

// PDF pages are sized to the image at 96 DPI.
const (
	pixelsPerInch = 96
	mmPerInch     = 25.4
)

func pixelsToMm(pixels int) float64 {
	return float64(pixels) * mmPerInch / pixelsPerInch
}

func encodePDF(w io.Writer, img image.Image, quality int) error {
	b := img.Bounds()
	if b.Empty() {
		return errors.New("pdf: image is empty")
	}

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("pdf: failed to encode page image: %w", err)
	}

	// "L" would swap the custom size, so wide pages stay "P".
	wMm, hMm := pixelsToMm(b.Dx()), pixelsToMm(b.Dy())
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: wMm, Ht: hMm},
	})
	pdf.SetTitle("screen-select capture", true)

	opt := gofpdf.ImageOptions{ImageType: "JPEG"}
	pdf.RegisterImageOptionsReader("capture", opt, &jpg)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()
	pdf.ImageOptions("capture", 0, 0, pageW, pageH, false, opt, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	return pdf.Output(w)
}
