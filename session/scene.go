package session

import (
	"fmt"
	"html"
	"strings"

	"github.com/mgmeyers/dlaregions/docutils"
)

// Scene returns the SVG elements drawn over the canvas: the page image at its
// current position, one rectangle per region and a marker at a pending
// corner. href is the URL the image is served from.
func (s *Session) Scene(href string) string {
	box, err := s.view.BoundingBox()
	if err != nil || s.image == nil {
		return ""
	}

	var b strings.Builder
	size := box.Size()
	fmt.Fprintf(&b, "<image href='%s' x='%g' y='%g' width='%g' height='%g' />",
		html.EscapeString(href), box.X.Lo, box.Y.Lo, size.X, size.Y)

	for _, o := range s.sel.Overlays() {
		r := o.Box.Size()
		fmt.Fprintf(&b, "<rect x='%g' y='%g' width='%g' height='%g' fill='none' stroke='%s' stroke-width='3' data-label='%d' />",
			o.Box.X.Lo, o.Box.Y.Lo, r.X, r.Y, docutils.LabelColor(o.Record.Label), o.Record.Label)
	}

	if p, ok := s.sel.Pending(); ok {
		if c, err := s.view.ToCanvas(p); err == nil {
			fmt.Fprintf(&b, "<circle cx='%g' cy='%g' r='8' fill='%s' />",
				c.X, c.Y, docutils.LabelColor(s.sel.Label()))
		}
	}

	return b.String()
}
