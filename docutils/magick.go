package docutils

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MagickBackend renders pages with the ImageMagick command line tool.
type MagickBackend struct {
	// Path is the magick executable, looked up in PATH when empty.
	Path string
}

func (m MagickBackend) bin() string {
	if m.Path == "" {
		return "magick"
	}
	return m.Path
}

func (m MagickBackend) Name() string {
	return "imagemagick"
}

func (m MagickBackend) Available() bool {
	_, err := exec.LookPath(m.bin())
	return err == nil
}

// Command returns the destination path and the command line used to render
// a page.
func (m MagickBackend) Command(doc string, pageIndex int, dstDir string, format string) (string, []string) {
	src := doc
	if abs, err := filepath.Abs(doc); err == nil {
		src = abs
	}

	dst := filepath.Join(dstDir, OutputName(doc, pageIndex, format))
	return dst, []string{m.bin(), fmt.Sprintf("%s[%d]", src, pageIndex), dst}
}

func (m MagickBackend) Render(doc string, pageIndex int, dstDir string, format string) (string, error) {
	dst, command := m.Command(doc, pageIndex, dstDir, format)

	cmd := exec.Command(command[0], command[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &RenderError{
			Command: command,
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}

	return dst, nil
}

// IdentifyCommand returns the command line that prints the frame count of doc
// once per frame.
func (m MagickBackend) IdentifyCommand(doc string) []string {
	src := doc
	if abs, err := filepath.Abs(doc); err == nil {
		src = abs
	}

	return []string{m.bin(), "identify", "-format", "%n\n", src}
}

// CountPages returns the number of frames ImageMagick finds in doc.
func (m MagickBackend) CountPages(doc string) (int, error) {
	if !m.Available() {
		return 0, errors.Wrapf(ErrNoBackend, "counting pages of %s needs %s", doc, m.bin())
	}

	command := m.IdentifyCommand(doc)
	cmd := exec.Command(command[0], command[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, errors.Wrapf(err, "counting pages of %s: %s", doc, strings.TrimSpace(stderr.String()))
	}

	first := strings.TrimSpace(strings.SplitN(stdout.String(), "\n", 2)[0])
	n, err := strconv.Atoi(first)
	if err != nil || n < 1 {
		return 0, errors.Errorf("counting pages of %s: unexpected output %q", doc, first)
	}

	return n, nil
}
