package docutils

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedExtensions lists the document types offered for loading.
var SupportedExtensions = []string{"pdf", "djvu"}

// IsSupported reports whether path has one of SupportedExtensions.
func IsSupported(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}

	return false
}

// ListDocuments returns the supported documents directly inside dir, sorted
// by name.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}

	docs := []string{}
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		docs = append(docs, filepath.Join(dir, e.Name()))
	}
	sort.Strings(docs)

	return docs, nil
}

// PageCounter counts document pages. PDFs are read with unipdf, DjVu
// documents are counted by ImageMagick and anything else by MuPDF.
type PageCounter struct {
	Magick MagickBackend
}

// CountPages returns the number of pages in doc.
func (c PageCounter) CountPages(doc string) (int, error) {
	switch strings.ToLower(filepath.Ext(doc)) {
	case ".pdf":
		return countPDFPages(doc)
	case ".djvu":
		return c.Magick.CountPages(doc)
	}

	fitzDoc, err := fitz.New(doc)
	if err != nil {
		return 0, errors.Wrapf(err, "opening %s", doc)
	}
	defer fitzDoc.Close()

	return fitzDoc.NumPage(), nil
}

func countPDFPages(doc string) (int, error) {
	f, err := os.Open(doc)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s", doc)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return 0, errors.Wrapf(err, "counting pages of %s", doc)
	}

	return numPages, nil
}

// ImageSize returns the pixel dimensions of the image file at path.
func ImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "decoding %s", path)
	}

	return cfg.Width, cfg.Height, nil
}
