// Package config resolves the directories the viewer works in.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Canvas size in logical pixels.
const (
	RenderWidth  = 1920
	RenderHeight = 1920
)

// Environment variables the directories are read from.
const (
	DocsEnv   = "DLA_GEN_DOCS_PATH"
	OutputEnv = "DLA_GEN_OUTPUT_PATH"
)

var ErrPathMissing = errors.New("configuration path does not exist")

// Paths holds the resolved working directories.
type Paths struct {
	Docs   string
	Output string

	// Cache receives rendered page images.
	Cache string
	// Elements holds exported element crops.
	Elements string
	// ElementsGen holds the per-image annotation sidecars.
	ElementsGen string
}

// Resolve checks that docs and output exist and creates the
// subdirectories of output.
func Resolve(docs, output string) (*Paths, error) {
	for _, p := range []struct{ env, path string }{{DocsEnv, docs}, {OutputEnv, output}} {
		if p.path == "" {
			return nil, errors.Wrapf(ErrPathMissing, "%s is not configured", p.env)
		}
		info, err := os.Stat(p.path)
		if err != nil || !info.IsDir() {
			return nil, errors.Wrapf(ErrPathMissing, "%s=%s", p.env, p.path)
		}
	}

	paths := &Paths{
		Docs:        docs,
		Output:      output,
		Cache:       filepath.Join(output, "cache"),
		Elements:    filepath.Join(output, "elements"),
		ElementsGen: filepath.Join(output, "elem_gen"),
	}

	for _, dir := range []string{paths.Cache, paths.Elements, paths.ElementsGen} {
		if err := os.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
			return nil, errors.Wrapf(err, "creating %s", dir)
		}
	}

	return paths, nil
}
