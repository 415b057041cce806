// Package annotate turns pairs of clicks on a page image into labelled
// rectangles and keeps them in per-image JSON sidecar files.
package annotate

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mapper converts a rectangle given by two corners in image-relative
// coordinates to canvas coordinates.
type Mapper interface {
	CanvasRect(c1, c2 r2.Point) (r2.Rect, error)
}

// Overlay is a record together with the canvas box it is drawn at.
type Overlay struct {
	Record Record
	Box    r2.Rect
}

// Selector pairs clicks into rectangles for the image it was last loaded
// with. It is not safe for concurrent use.
type Selector struct {
	store  Store
	mapper Mapper
	log    logrus.FieldLogger

	label    int
	pending  *r2.Point
	identity string
	overlays []Overlay
}

// NewSelector returns a selector persisting to store and drawing through
// mapper.
func NewSelector(store Store, mapper Mapper, log logrus.FieldLogger) *Selector {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Selector{store: store, mapper: mapper, log: log}
}

// SetLabel sets the label given to the following rectangles.
func (s *Selector) SetLabel(label int) {
	s.label = label
}

// Label returns the label given to new rectangles.
func (s *Selector) Label() int {
	return s.label
}

// Pending returns the first corner of an unfinished rectangle.
func (s *Selector) Pending() (r2.Point, bool) {
	if s.pending == nil {
		return r2.Point{}, false
	}
	return *s.pending, true
}

// Identity returns the image file name the overlays belong to.
func (s *Selector) Identity() string {
	return s.identity
}

// Overlays returns the currently drawn rectangles in record order.
func (s *Selector) Overlays() []Overlay {
	out := make([]Overlay, len(s.overlays))
	copy(out, s.overlays)
	return out
}

// Reset drops the pending corner and all overlays.
func (s *Selector) Reset() {
	s.pending = nil
	s.identity = ""
	s.overlays = nil
}

// Cancel drops the pending corner.
func (s *Selector) Cancel() {
	s.pending = nil
}

// Load reads the sidecar for identity and draws its records. Records are not
// written back.
func (s *Selector) Load(identity string) error {
	records, err := s.store.Load(identity)
	if err != nil {
		return err
	}

	return s.Show(identity, records)
}

// Show draws records for identity as if they had been loaded from its
// sidecar.
func (s *Selector) Show(identity string, records []Record) error {
	overlays := make([]Overlay, 0, len(records))
	for _, rec := range records {
		box, err := s.mapper.CanvasRect(rec.C1.Point(), rec.C2.Point())
		if err != nil {
			return errors.Wrap(err, "drawing record")
		}
		overlays = append(overlays, Overlay{Record: rec, Box: box})
	}

	s.identity = identity
	s.overlays = overlays

	s.log.WithFields(logrus.Fields{
		"image":   identity,
		"records": len(records),
	}).Debug("loaded regions")

	return nil
}

// Redraw recomputes the canvas boxes of all overlays.
func (s *Selector) Redraw() error {
	for i := range s.overlays {
		rec := s.overlays[i].Record
		box, err := s.mapper.CanvasRect(rec.C1.Point(), rec.C2.Point())
		if err != nil {
			return errors.Wrap(err, "drawing record")
		}
		s.overlays[i].Box = box
	}

	return nil
}

// Click handles a click at p in image-relative coordinates on the image
// identified by identity. The first click of a pair is remembered, the second
// completes a rectangle which is drawn and appended to the sidecar. The
// returned record is nil after a first click.
func (s *Selector) Click(identity string, p r2.Point) (*Record, error) {
	if identity != s.identity {
		s.pending = nil
		s.identity = identity
		s.overlays = nil
	}

	if s.pending == nil {
		s.pending = &p
		return nil, nil
	}

	rec := Record{
		Label: s.label,
		C1:    CornerFromPoint(*s.pending),
		C2:    CornerFromPoint(p),
	}

	box, err := s.mapper.CanvasRect(rec.C1.Point(), rec.C2.Point())
	if err != nil {
		return nil, errors.Wrap(err, "drawing record")
	}

	records, err := s.store.Load(identity)
	if err != nil {
		return nil, err
	}
	records = append(records, rec)
	if err := s.store.Save(identity, records); err != nil {
		return nil, err
	}

	s.pending = nil
	s.overlays = append(s.overlays, Overlay{Record: rec, Box: box})

	s.log.WithFields(logrus.Fields{
		"image": identity,
		"label": rec.Label,
		"c1":    rec.C1,
		"c2":    rec.C2,
	}).Info("saved region")

	return &rec, nil
}
