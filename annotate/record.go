package annotate

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// RecordVersion identifies the sidecar schema written by this package. The
// files carry no version field, so any change to Record is a breaking change.
const RecordVersion = 1

// ErrInvalidSidecar is returned when a sidecar file does not match the
// record schema.
var ErrInvalidSidecar = errors.New("annotate: invalid sidecar")

// Corner is a point relative to the page image, x and y in [0,1].
type Corner [2]float64

// Point returns the corner as an r2.Point.
func (c Corner) Point() r2.Point {
	return r2.Point{X: c[0], Y: c[1]}
}

// CornerFromPoint converts an r2.Point to a Corner.
func CornerFromPoint(p r2.Point) Corner {
	return Corner{p.X, p.Y}
}

// Record is one marked region. C1 and C2 are stored in click order, not
// sorted.
type Record struct {
	Label int    `json:"label"`
	C1    Corner `json:"c1"`
	C2    Corner `json:"c2"`
}

// Rect returns the normalized bounding box of the record.
func (r Record) Rect() r2.Rect {
	return r2.RectFromPoints(r.C1.Point(), r.C2.Point())
}

type rawRecord struct {
	Label *int       `json:"label"`
	C1    *[]float64 `json:"c1"`
	C2    *[]float64 `json:"c2"`
}

func decodeCorner(field string, raw *[]float64) (Corner, error) {
	if raw == nil {
		return Corner{}, errors.Wrapf(ErrInvalidSidecar, "missing %q", field)
	}
	if len(*raw) != 2 {
		return Corner{}, errors.Wrapf(ErrInvalidSidecar, "%q has %d values, want 2", field, len(*raw))
	}

	c := Corner{(*raw)[0], (*raw)[1]}
	for _, v := range c {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return Corner{}, errors.Wrapf(ErrInvalidSidecar, "%q value %g outside [0,1]", field, v)
		}
	}

	return c, nil
}

func (r *rawRecord) record() (Record, error) {
	if r.Label == nil {
		return Record{}, errors.Wrap(ErrInvalidSidecar, `missing "label"`)
	}

	c1, err := decodeCorner("c1", r.C1)
	if err != nil {
		return Record{}, err
	}
	c2, err := decodeCorner("c2", r.C2)
	if err != nil {
		return Record{}, err
	}

	return Record{Label: *r.Label, C1: c1, C2: c2}, nil
}

// MarshalRecords encodes records in the sidecar format.
func MarshalRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}

	return json.Marshal(records)
}
