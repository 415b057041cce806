// Package docutils renders document pages to image files and answers simple
// questions about documents and rendered images.
package docutils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultFormat is the image format pages are rendered to.
const DefaultFormat = "png"

var (
	ErrRenderFailed = errors.New("render failed")
	ErrNoBackend    = errors.New("no render backend available")
)

// Backend renders one page of a document into dstDir.
type Backend interface {
	Name() string
	Available() bool
	Render(doc string, pageIndex int, dstDir string, format string) (string, error)
}

// RenderError describes a failed external render command.
type RenderError struct {
	Command []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf(
		"%s: %v\nstdout: %s\nstderr: %s\ncommand: %s",
		ErrRenderFailed,
		e.Err,
		e.Stdout,
		e.Stderr,
		strings.Join(e.Command, " "),
	)
}

func (e *RenderError) Unwrap() error {
	return ErrRenderFailed
}

type renderFailure struct {
	err error
}

func (e *renderFailure) Error() string {
	return ErrRenderFailed.Error() + ": " + e.err.Error()
}

func (e *renderFailure) Unwrap() error {
	return e.err
}

func (e *renderFailure) Is(target error) bool {
	return target == ErrRenderFailed
}

// MarkRenderFailed returns err as a render failure that still unwraps to err.
// Errors that already match ErrRenderFailed are returned unchanged.
func MarkRenderFailed(err error) error {
	if err == nil || errors.Is(err, ErrRenderFailed) {
		return err
	}
	return &renderFailure{err: err}
}

// NoBackendError lists the backends probed when none was available.
type NoBackendError struct {
	Checked []string
}

func (e *NoBackendError) Error() string {
	return fmt.Sprintf("%s, checked: [%s]", ErrNoBackend, strings.Join(e.Checked, ", "))
}

func (e *NoBackendError) Unwrap() error {
	return ErrNoBackend
}

// OutputName returns the file name a page is rendered to. It depends only on
// the document's base name, the page and the format, so rendering the same
// page twice reuses the file.
func OutputName(doc string, pageIndex int, format string) string {
	base := filepath.Base(doc)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return fmt.Sprintf("%s-%d.%s", stem, pageIndex, format)
}

// Gateway renders pages with the first available backend, chosen once when
// the gateway is created.
type Gateway struct {
	backend Backend
	dstDir  string
	format  string
}

// NewGateway probes backends in order and keeps the first available one.
func NewGateway(dstDir string, format string, backends ...Backend) (*Gateway, error) {
	if format == "" {
		format = DefaultFormat
	}

	checked := []string{}
	for _, b := range backends {
		if b.Available() {
			return &Gateway{backend: b, dstDir: dstDir, format: format}, nil
		}
		checked = append(checked, b.Name())
	}

	return nil, &NoBackendError{Checked: checked}
}

// Backend returns the selected backend.
func (g *Gateway) Backend() Backend {
	return g.backend
}

// Render renders page pageIndex, counted from zero, of doc and returns the
// path of the image file.
func (g *Gateway) Render(doc string, pageIndex int) (string, error) {
	path, err := g.backend.Render(doc, pageIndex, g.dstDir, g.format)
	if err != nil {
		return "", errors.Wrapf(err, "%s: page %d of %s", g.backend.Name(), pageIndex, doc)
	}

	return path, nil
}
