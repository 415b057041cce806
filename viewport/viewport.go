// Package viewport maps the pixel space of a rendered page image onto a
// fixed-size canvas and back.
//
// Canvas coordinates have their origin at the top left with y growing
// downwards. Positions of the image centre are given as fractions of the
// canvas size, and zoom is the number of canvas pixels per image pixel.
package viewport

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// DefaultMargin is the share of the canvas a fitted image occupies along its
// limiting axis.
const DefaultMargin = 0.9

// ErrNotLoaded is returned when geometry is requested before an image size
// and a position have been set.
var ErrNotLoaded = errors.New("viewport: no image positioned")

// Viewport holds the transform between canvas and image pixel space. The zero
// value is not usable, create one with New.
type Viewport struct {
	canvas r2.Point

	size    r2.Point
	hasSize bool

	center     r2.Point
	zoom       float64
	positioned bool
}

// New returns a viewport for a canvas of the given size in pixels.
func New(canvasWidth, canvasHeight float64) *Viewport {
	if canvasWidth <= 0 || canvasHeight <= 0 {
		panic(fmt.Sprintf("viewport: invalid canvas size %gx%g", canvasWidth, canvasHeight))
	}

	return &Viewport{canvas: r2.Point{X: canvasWidth, Y: canvasHeight}}
}

// Canvas returns the canvas size.
func (v *Viewport) Canvas() r2.Point {
	return v.canvas
}

// Center returns the image centre in canvas-fraction units.
func (v *Viewport) Center() r2.Point {
	return v.center
}

// Zoom returns the number of canvas pixels per image pixel.
func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// Loaded reports whether an image size is known and a transform was set.
func (v *Viewport) Loaded() bool {
	return v.hasSize && v.positioned
}

// Fit scales an image of the given pixel size so that its limiting axis spans
// margin of the canvas, and centres it.
func (v *Viewport) Fit(width, height int, margin float64) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("viewport: invalid image size %dx%d", width, height)
	}
	if !(margin > 0 && margin <= 1) {
		panic(fmt.Sprintf("viewport: margin %g outside (0, 1]", margin))
	}

	w := float64(width)
	h := float64(height)

	var zoom float64
	if w/v.canvas.X < h/v.canvas.Y {
		zoom = v.canvas.Y / h
	} else {
		zoom = v.canvas.X / w
	}

	v.size = r2.Point{X: w, Y: h}
	v.hasSize = true
	v.SetPosition(0.5, 0.5, zoom*margin)

	return nil
}

// SetPosition places the image centre at (centerX, centerY) canvas fractions
// with the given zoom.
func (v *Viewport) SetPosition(centerX, centerY, zoom float64) {
	if !(zoom > 0) || math.IsInf(zoom, 1) {
		panic(fmt.Sprintf("viewport: zoom must be positive, got %g", zoom))
	}

	v.center = r2.Point{X: centerX, Y: centerY}
	v.zoom = zoom
	v.positioned = true
}

// Move pans by (dx, dy) canvas fractions and multiplies the zoom by relZoom.
// Nothing is clamped.
func (v *Viewport) Move(dx, dy, relZoom float64) {
	v.SetPosition(v.center.X+dx, v.center.Y+dy, v.zoom*relZoom)
}

// BoundingBox returns the rectangle the image occupies on the canvas.
func (v *Viewport) BoundingBox() (r2.Rect, error) {
	if !v.Loaded() {
		return r2.EmptyRect(), ErrNotLoaded
	}

	size := v.size.Mul(v.zoom)
	x := v.canvas.X*v.center.X - size.X*0.5
	y := v.canvas.Y*v.center.Y - size.Y*0.5

	return r2.Rect{
		X: r1.Interval{Lo: x, Hi: x + size.X},
		Y: r1.Interval{Lo: y, Hi: y + size.Y},
	}, nil
}

// ToNormalized maps a canvas point to image-relative coordinates, where the
// image spans [0,1]². ok is false when no image is positioned.
func (v *Viewport) ToNormalized(canvasX, canvasY float64) (p r2.Point, ok bool) {
	box, err := v.BoundingBox()
	if err != nil {
		return r2.Point{}, false
	}

	size := box.Size()
	return r2.Point{
		X: (canvasX - box.X.Lo) / size.X,
		Y: (canvasY - box.Y.Lo) / size.Y,
	}, true
}

// ToCanvas maps an image-relative point to canvas coordinates.
func (v *Viewport) ToCanvas(p r2.Point) (r2.Point, error) {
	box, err := v.BoundingBox()
	if err != nil {
		return r2.Point{}, err
	}

	size := box.Size()
	return r2.Point{
		X: box.X.Lo + p.X*size.X,
		Y: box.Y.Lo + p.Y*size.Y,
	}, nil
}

// CanvasRect maps a rectangle given by two image-relative corners, in any
// order, to the canvas.
func (v *Viewport) CanvasRect(c1, c2 r2.Point) (r2.Rect, error) {
	norm := r2.RectFromPoints(c1, c2)

	lo, err := v.ToCanvas(norm.Lo())
	if err != nil {
		return r2.EmptyRect(), err
	}
	hi, err := v.ToCanvas(norm.Hi())
	if err != nil {
		return r2.EmptyRect(), err
	}

	return r2.RectFromPoints(lo, hi), nil
}
