// Package session keeps track of which document page is displayed and keeps
// the viewport and the region selector in step with it.
package session

import (
	"os"
	"path/filepath"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/dlaregions/annotate"
	"github.com/mgmeyers/dlaregions/config"
	"github.com/mgmeyers/dlaregions/docutils"
	"github.com/mgmeyers/dlaregions/viewport"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoDocument       = errors.New("no document loaded")
)

// Renderer renders page pageIndex, counted from zero, of doc to an image
// file and returns its path.
type Renderer interface {
	Render(doc string, pageIndex int) (string, error)
}

// PageCounter returns the number of pages of a document.
type PageCounter interface {
	CountPages(doc string) (int, error)
}

// PageCounterFunc adapts a function to PageCounter.
type PageCounterFunc func(doc string) (int, error)

func (f PageCounterFunc) CountPages(doc string) (int, error) {
	return f(doc)
}

// PageImage is a rendered page.
type PageImage struct {
	Document string
	Index    int
	Path     string
	Width    int
	Height   int
}

// Name identifies the image to the annotation store.
func (p *PageImage) Name() string {
	return filepath.Base(p.Path)
}

// Options configures a Session.
type Options struct {
	Renderer Renderer
	Counter  PageCounter
	Store    annotate.Store

	// Canvas size, config.RenderWidth by config.RenderHeight when zero.
	CanvasWidth  float64
	CanvasHeight float64

	// ImageSize reads the pixel size of a rendered image,
	// docutils.ImageSize when nil.
	ImageSize func(path string) (int, int, error)

	Log logrus.FieldLogger
}

// Session is the state of one viewer. It is not safe for concurrent use.
type Session struct {
	renderer  Renderer
	counter   PageCounter
	store     annotate.Store
	imageSize func(string) (int, int, error)
	log       logrus.FieldLogger

	view *viewport.Viewport
	sel  *annotate.Selector

	selected  string
	doc       string
	page      int
	pageCount int
	image     *PageImage
}

// New returns a session with no document.
func New(opts Options) *Session {
	if opts.CanvasWidth == 0 {
		opts.CanvasWidth = config.RenderWidth
	}
	if opts.CanvasHeight == 0 {
		opts.CanvasHeight = config.RenderHeight
	}
	if opts.ImageSize == nil {
		opts.ImageSize = docutils.ImageSize
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	view := viewport.New(opts.CanvasWidth, opts.CanvasHeight)

	return &Session{
		renderer:  opts.Renderer,
		counter:   opts.Counter,
		store:     opts.Store,
		imageSize: opts.ImageSize,
		log:       opts.Log,
		view:      view,
		sel:       annotate.NewSelector(opts.Store, view, opts.Log),
	}
}

func (s *Session) Viewport() *viewport.Viewport { return s.view }
func (s *Session) Selector() *annotate.Selector { return s.sel }

// Document returns the selected document.
func (s *Session) Document() string { return s.selected }

// Loaded returns the document pages are currently rendered from.
func (s *Session) Loaded() string { return s.doc }

// Page returns the displayed page number, counted from one.
func (s *Session) Page() int { return s.page }

func (s *Session) PageCount() int { return s.pageCount }

// Image returns the displayed page image, nil before the first load.
func (s *Session) Image() *PageImage { return s.image }

// SetDocument selects the document the next Load opens.
func (s *Session) SetDocument(path string) {
	s.selected = path
}

// DocumentExists reports whether the selected document is present on disk.
func (s *Session) DocumentExists() bool {
	if s.selected == "" {
		return false
	}
	_, err := os.Stat(s.selected)
	return err == nil
}

// Load opens the selected document and displays its first page.
func (s *Session) Load() error {
	if !s.DocumentExists() {
		return errors.Wrapf(ErrDocumentNotFound, "%q", s.selected)
	}

	doc := s.selected
	count, err := s.counter.CountPages(doc)
	if err != nil {
		return errors.Wrapf(err, "counting pages of %s", doc)
	}

	if err := s.show(doc, 1); err != nil {
		return err
	}
	s.pageCount = count

	s.log.WithFields(logrus.Fields{
		"document": doc,
		"pages":    count,
	}).Info("loaded document")

	return nil
}

// LoadPage renders and displays the current page again.
func (s *Session) LoadPage() error {
	if s.doc == "" {
		return ErrNoDocument
	}

	return s.show(s.doc, s.page)
}

// SetPage displays page n, counted from one. n is not checked against the
// page count.
func (s *Session) SetPage(n int) error {
	if s.doc == "" {
		return ErrNoDocument
	}

	return s.show(s.doc, n)
}

// show renders page of doc and switches the display to it. On failure the
// previous page stays displayed.
func (s *Session) show(doc string, page int) error {
	log := s.log.WithFields(logrus.Fields{"document": doc, "page": page})

	path, err := s.renderer.Render(doc, page-1)
	if err != nil {
		log.WithError(err).Warn("render failed")
		return docutils.MarkRenderFailed(err)
	}
	if _, err := os.Stat(path); err != nil {
		log.WithField("image", path).Warn("render produced no file")
		return errors.Wrapf(docutils.ErrRenderFailed, "no image at %s", path)
	}

	width, height, err := s.imageSize(path)
	if err != nil {
		return errors.Wrap(err, "reading image size")
	}

	img := &PageImage{Document: doc, Index: page - 1, Path: path, Width: width, Height: height}

	records, err := s.store.Load(img.Name())
	if err != nil {
		return err
	}

	if err := s.view.Fit(width, height, viewport.DefaultMargin); err != nil {
		return err
	}

	s.sel.Reset()
	if err := s.sel.Show(img.Name(), records); err != nil {
		return err
	}

	s.doc = doc
	s.page = page
	s.image = img

	log.WithFields(logrus.Fields{
		"image":  img.Name(),
		"width":  width,
		"height": height,
	}).Debug("displayed page")

	return nil
}

// Move pans by (dx, dy) canvas fractions and scales the zoom by relZoom.
func (s *Session) Move(dx, dy, relZoom float64) error {
	if s.image == nil {
		return viewport.ErrNotLoaded
	}

	s.view.Move(dx, dy, relZoom)
	return s.sel.Redraw()
}

var unitSquare = r2.Rect{X: r1.Interval{Lo: 0, Hi: 1}, Y: r1.Interval{Lo: 0, Hi: 1}}

// Click feeds a pointer click at canvas coordinates to the region selector.
// Clicks before a page is displayed or outside the page image are ignored.
// A record is returned when the click completed a rectangle.
func (s *Session) Click(canvasX, canvasY float64) (*annotate.Record, error) {
	if s.image == nil {
		return nil, nil
	}

	p, ok := s.view.ToNormalized(canvasX, canvasY)
	if !ok {
		return nil, nil
	}
	if !unitSquare.ContainsPoint(p) {
		s.log.WithFields(logrus.Fields{"x": canvasX, "y": canvasY}).Debug("click outside page")
		return nil, nil
	}

	return s.sel.Click(s.image.Name(), p)
}
