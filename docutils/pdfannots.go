package docutils

import (
	"math"
	"os"

	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"
)

// SquareRegion is a rectangle annotation found in a PDF, in page-relative
// coordinates with the origin at the top left.
type SquareRegion struct {
	PageIndex int
	Rect      r2.Rect
}

// ApplyPageRotation maps rect, given as [llx lly urx ury], into the
// coordinate system of the page as displayed.
func ApplyPageRotation(page *model.PdfPage, rect []float64) []float64 {
	if page.Rotate == nil {
		return rect
	}

	angle := *page.Rotate
	if angle == 0 {
		return rect
	}

	width := page.MediaBox.Width()
	height := page.MediaBox.Height()

	if angle == 90 {
		return []float64{rect[1], width - rect[2], rect[3], width - rect[0]}
	}

	if angle == 270 {
		return []float64{height - rect[3], rect[0], height - rect[1], rect[2]}
	}

	// 180
	return []float64{width - rect[2], height - rect[3], width - rect[0], height - rect[1]}
}

func displaySize(page *model.PdfPage) (float64, float64) {
	width := page.MediaBox.Width()
	height := page.MediaBox.Height()

	if page.Rotate != nil && (*page.Rotate == 90 || *page.Rotate == 270) {
		width, height = height, width
	}

	return width, height
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// NormalizeRect converts a PDF rectangle on page to page-relative
// coordinates, clamped to the page.
func NormalizeRect(page *model.PdfPage, rect []float64) r2.Rect {
	rotated := ApplyPageRotation(page, rect)
	width, height := displaySize(page)

	// PDF y grows upwards
	return r2.RectFromPoints(
		r2.Point{X: clampUnit(rotated[0] / width), Y: clampUnit((height - rotated[1]) / height)},
		r2.Point{X: clampUnit(rotated[2] / width), Y: clampUnit((height - rotated[3]) / height)},
	)
}

// SquareRegions returns the square annotations of every page of the PDF doc.
func SquareRegions(doc string) ([]SquareRegion, error) {
	f, err := os.Open(doc)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", doc)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, err
	}

	regions := []SquareRegion{}
	for i := 0; i < numPages; i++ {
		page, err := pdfReader.GetPage(i + 1)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", i+1)
		}
		if page.MediaBox == nil {
			continue
		}

		annotations, err := page.GetAnnotations()
		if err != nil {
			return nil, errors.Wrapf(err, "annotations of page %d", i+1)
		}

		for _, annotation := range annotations {
			if _, ok := annotation.GetContext().(*model.PdfAnnotationSquare); !ok {
				continue
			}

			objArr, ok := annotation.Rect.(*core.PdfObjectArray)
			if !ok {
				continue
			}
			annotRect, err := objArr.ToFloat64Array()
			if err != nil || len(annotRect) != 4 {
				continue
			}

			regions = append(regions, SquareRegion{PageIndex: i, Rect: NormalizeRect(page, annotRect)})
		}
	}

	return regions, nil
}
