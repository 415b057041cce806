package docutils

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/pkg/errors"
)

// FitzBackend renders pages in-process with MuPDF.
type FitzBackend struct {
	DPI     float64
	Quality int
}

func (f FitzBackend) Name() string {
	return "fitz"
}

// Available is always true, MuPDF is linked into the binary.
func (f FitzBackend) Available() bool {
	return true
}

func (f FitzBackend) Render(doc string, pageIndex int, dstDir string, format string) (string, error) {
	// MuPDF aborts the process on negative page numbers
	if pageIndex < 0 {
		return "", errors.Wrapf(ErrRenderFailed, "page %d", pageIndex)
	}

	dpi := f.DPI
	if dpi <= 0 {
		dpi = 120
	}

	fitzDoc, err := fitz.New(doc)
	if err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "opening %s: %v", doc, err)
	}
	defer fitzDoc.Close()

	var pageImg image.Image
	pageImg, err = fitzDoc.ImageDPI(pageIndex, dpi)
	if err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "page %d: %v", pageIndex, err)
	}

	dst := filepath.Join(dstDir, OutputName(doc, pageIndex, format))
	if err := WriteImage(pageImg, dst, format, f.Quality); err != nil {
		return "", errors.Wrapf(ErrRenderFailed, "writing %s: %v", dst, err)
	}

	return dst, nil
}

// WriteImage encodes img to name as jpg or png.
func WriteImage(img image.Image, name string, format string, quality int) error {
	if format == "jpg" {
		return writeJPGImage(img, name, quality)
	}

	return writePNGImage(img, name)
}

func writeJPGImage(img image.Image, name string, quality int) error {
	if quality <= 0 {
		quality = 90
	}

	fd, err := os.Create(name)
	if err != nil {
		return err
	}

	defer fd.Close()
	return jpeg.Encode(fd, img, &jpeg.Options{Quality: quality})
}

func writePNGImage(img image.Image, name string) error {
	fd, err := os.Create(name)
	if err != nil {
		return err
	}

	defer fd.Close()
	return png.Encode(fd, img)
}
