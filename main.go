package main

import (
	"context"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mgmeyers/dlaregions/annotate"
	"github.com/mgmeyers/dlaregions/config"
	"github.com/mgmeyers/dlaregions/docutils"
	"github.com/mgmeyers/dlaregions/session"
)

type Globals struct {
	DocsPath   string `name:"docs" type:"path" env:"DLA_GEN_DOCS_PATH" help:"Directory of source documents"`
	OutputPath string `name:"output" type:"path" env:"DLA_GEN_OUTPUT_PATH" help:"Directory for rendered pages and annotations"`

	ImageFormat  string `short:"f" enum:"png,jpg" default:"png" help:"Image format of rendered pages. Supports png and jpg"`
	ImageDPI     int    `short:"d" default:"120" help:"Render DPI of the fitz backend"`
	ImageQuality int    `short:"q" default:"90" help:"Image quality. Only applies to jpg images"`
	MagickPath   string `default:"magick" help:"Path to the ImageMagick executable"`

	LogLevel  string `enum:"debug,info,warn,error" default:"info" help:"Log level"`
	LogFormat string `enum:"text,json" default:"text" help:"Log format"`
}

var cli struct {
	Globals

	Serve       ServeCmd       `cmd:"" help:"Start the annotation viewer"`
	Render      RenderCmd      `cmd:"" help:"Render one page and print its image path and size"`
	Pages       PagesCmd       `cmd:"" help:"Print the page count of a document"`
	Documents   DocumentsCmd   `cmd:"" help:"List documents available for annotation"`
	Prerender   PrerenderCmd   `cmd:"" help:"Render every page of a document into the cache"`
	Annotations AnnotationsCmd `cmd:"" help:"Print stored regions"`
	Import      ImportCmd      `cmd:"" help:"Append the square annotations of a PDF to the page sidecars"`
}

func (g *Globals) paths() (*config.Paths, error) {
	return config.Resolve(g.DocsPath, g.OutputPath)
}

func (g *Globals) logger() *logrus.Logger {
	return newLogger(g.LogLevel, g.LogFormat)
}

func (g *Globals) counter() docutils.PageCounter {
	return docutils.PageCounter{Magick: docutils.MagickBackend{Path: g.MagickPath}}
}

func (g *Globals) gateway(paths *config.Paths, log logrus.FieldLogger) (*docutils.Gateway, error) {
	gw, err := docutils.NewGateway(
		paths.Cache,
		g.ImageFormat,
		docutils.MagickBackend{Path: g.MagickPath},
		docutils.FitzBackend{DPI: float64(g.ImageDPI), Quality: g.ImageQuality},
	)
	if err != nil {
		return nil, err
	}

	log.WithField("backend", gw.Backend().Name()).Debug("selected render backend")
	return gw, nil
}

func (g *Globals) session(log logrus.FieldLogger) (*session.Session, *config.Paths, error) {
	paths, err := g.paths()
	if err != nil {
		return nil, nil, err
	}

	gw, err := g.gateway(paths, log)
	if err != nil {
		return nil, nil, err
	}

	s := session.New(session.Options{
		Renderer: gw,
		Counter:  g.counter(),
		Store:    annotate.Store{Dir: paths.ElementsGen},
		Log:      log,
	})

	return s, paths, nil
}

// resolveDocument accepts a path or a file name inside the docs directory.
func resolveDocument(paths *config.Paths, doc string) string {
	if filepath.IsAbs(doc) || filepath.Dir(doc) != "." {
		return doc
	}
	return filepath.Join(paths.Docs, doc)
}

type ServeCmd struct {
	Addr     string `short:"a" default:"127.0.0.1:8080" help:"Listen address"`
	Document string `arg:"" optional:"" help:"Document to open on start"`
}

func (c *ServeCmd) Run(g *Globals) error {
	log := g.logger()

	s, paths, err := g.session(log)
	if err != nil {
		return err
	}

	docs, err := docutils.ListDocuments(paths.Docs)
	if err != nil {
		return err
	}

	switch {
	case c.Document != "":
		s.SetDocument(resolveDocument(paths, c.Document))
	case len(docs) > 0:
		s.SetDocument(docs[0])
	}

	if s.DocumentExists() {
		if err := s.Load(); err != nil {
			log.WithError(err).Error("initial load failed")
		}
	}

	return newServer(s, paths, log).listen(c.Addr)
}

type RenderCmd struct {
	Page     int    `short:"p" default:"1" help:"Page number, counted from one"`
	Document string `arg:"" name:"document" help:"Document to render"`
}

func (c *RenderCmd) Run(g *Globals) error {
	log := g.logger()

	paths, err := g.paths()
	if err != nil {
		return err
	}
	gw, err := g.gateway(paths, log)
	if err != nil {
		return err
	}

	path, err := gw.Render(resolveDocument(paths, c.Document), c.Page-1)
	if err != nil {
		return err
	}
	width, height, err := docutils.ImageSize(path)
	if err != nil {
		return err
	}

	logOutput(struct {
		Path   string `json:"path"`
		Page   int    `json:"page"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}{path, c.Page, width, height})

	return nil
}

type PagesCmd struct {
	Document string `arg:"" name:"document" help:"Document to inspect"`
}

func (c *PagesCmd) Run(g *Globals) error {
	paths, err := g.paths()
	if err != nil {
		return err
	}

	count, err := g.counter().CountPages(resolveDocument(paths, c.Document))
	if err != nil {
		return err
	}

	logOutput(count)
	return nil
}

type DocumentsCmd struct{}

func (c *DocumentsCmd) Run(g *Globals) error {
	paths, err := g.paths()
	if err != nil {
		return err
	}

	docs, err := docutils.ListDocuments(paths.Docs)
	if err != nil {
		return err
	}

	logOutput(docs)
	return nil
}

type PrerenderCmd struct {
	Jobs     int    `short:"j" default:"4" help:"Pages rendered at once"`
	Document string `arg:"" name:"document" help:"Document to render"`
}

func (c *PrerenderCmd) Run(g *Globals) error {
	if c.Jobs < 1 {
		return errors.Errorf("--jobs must be at least 1, got %d", c.Jobs)
	}

	log := g.logger()

	paths, err := g.paths()
	if err != nil {
		return err
	}
	gw, err := g.gateway(paths, log)
	if err != nil {
		return err
	}

	doc := resolveDocument(paths, c.Document)
	numPages, err := g.counter().CountPages(doc)
	if err != nil {
		return err
	}

	grp, ctx := errgroup.WithContext(context.Background())
	sem := semaphore.NewWeighted(int64(c.Jobs))

	for i := 0; i < numPages; i++ {
		pageIndex := i
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		grp.Go(func() error {
			defer sem.Release(1)

			path, err := gw.Render(doc, pageIndex)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"document": doc,
				"page":     pageIndex + 1,
				"image":    path,
			}).Info("rendered page")
			return nil
		})
	}

	return grp.Wait()
}

type AnnotationsCmd struct {
	Image string `arg:"" optional:"" help:"Page image file name, all images when empty"`
}

func (c *AnnotationsCmd) Run(g *Globals) error {
	paths, err := g.paths()
	if err != nil {
		return err
	}

	store := annotate.Store{Dir: paths.ElementsGen}

	ids := []string{c.Image}
	if c.Image == "" {
		if ids, err = store.Identities(); err != nil {
			return err
		}
	}

	out := map[string][]annotate.Record{}
	for _, id := range ids {
		records, err := store.Load(id)
		if err != nil {
			return err
		}
		out[filepath.Base(id)] = records
	}

	logOutput(out)
	return nil
}

type ImportCmd struct {
	Label    int    `short:"l" default:"0" help:"Label given to imported regions"`
	Document string `arg:"" name:"document" help:"PDF to read annotations from"`
}

func (c *ImportCmd) Run(g *Globals) error {
	log := g.logger()

	paths, err := g.paths()
	if err != nil {
		return err
	}

	doc := resolveDocument(paths, c.Document)
	regions, err := docutils.SquareRegions(doc)
	if err != nil {
		return err
	}

	store := annotate.Store{Dir: paths.ElementsGen}
	imported, err := importRegions(store, doc, g.ImageFormat, c.Label, regions)
	for _, im := range imported {
		log.WithFields(logrus.Fields{
			"image":   im.Image,
			"regions": im.Regions,
		}).Info("imported regions")
	}

	return err
}

type importedImage struct {
	Image   string
	Regions int
}

// importRegions appends regions to the sidecars of the page images of doc,
// in the order their pages first appear. Existing records are kept.
func importRegions(store annotate.Store, doc, format string, label int, regions []docutils.SquareRegion) ([]importedImage, error) {
	byImage := map[string][]annotate.Record{}
	order := []string{}
	for _, r := range regions {
		id := docutils.OutputName(doc, r.PageIndex, format)
		if _, ok := byImage[id]; !ok {
			order = append(order, id)
		}
		byImage[id] = append(byImage[id], annotate.Record{
			Label: label,
			C1:    annotate.CornerFromPoint(r.Rect.Lo()),
			C2:    annotate.CornerFromPoint(r.Rect.Hi()),
		})
	}

	imported := make([]importedImage, 0, len(order))
	for _, id := range order {
		records, err := store.Load(id)
		if err != nil {
			return imported, err
		}
		if err := store.Save(id, append(records, byImage[id]...)); err != nil {
			return imported, err
		}

		imported = append(imported, importedImage{Image: id, Regions: len(byImage[id])})
	}

	return imported, nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("dlaregions"),
		kong.Description("Mark rectangular regions on document pages"),
		kong.UsageOnError(),
	)

	endIfErr(ctx.Run(&cli.Globals))
}
