package session

import (
	"strconv"

	"github.com/mgmeyers/dlaregions/annotate"
)

// Pan and zoom steps applied per key press.
const (
	PanStep = 0.05
	ZoomIn  = 1.1
	ZoomOut = 0.9
)

// Router turns key presses and pointer clicks into session commands.
type Router struct {
	s *Session
}

func NewRouter(s *Session) *Router {
	return &Router{s: s}
}

// Key handles a key-down event. Keys use the DOM KeyboardEvent.key names.
// handled is false for keys without a binding.
func (r *Router) Key(key string) (handled bool, err error) {
	switch key {
	case "w", "ArrowUp":
		return true, r.s.Move(0, -PanStep, 1)
	case "s", "ArrowDown":
		return true, r.s.Move(0, PanStep, 1)
	case "a", "ArrowLeft":
		return true, r.s.Move(-PanStep, 0, 1)
	case "d", "ArrowRight":
		return true, r.s.Move(PanStep, 0, 1)
	case "=", "+":
		return true, r.s.Move(0, 0, ZoomIn)
	case "-":
		return true, r.s.Move(0, 0, ZoomOut)
	case "Escape":
		r.s.sel.Cancel()
		return true, nil
	case "n", "PageDown":
		return true, r.step(1)
	case "p", "PageUp":
		return true, r.step(-1)
	case "f":
		return true, r.s.LoadPage()
	}

	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		label, _ := strconv.Atoi(key)
		r.s.sel.SetLabel(label)
		return true, nil
	}

	return false, nil
}

// step moves by delta pages, staying within the document.
func (r *Router) step(delta int) error {
	next := r.s.page + delta
	if next < 1 || next > r.s.pageCount {
		return nil
	}

	return r.s.SetPage(next)
}

// Click handles a pointer click at canvas coordinates.
func (r *Router) Click(canvasX, canvasY float64) (*annotate.Record, error) {
	return r.s.Click(canvasX, canvasY)
}
