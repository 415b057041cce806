package docutils

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name      string
	available bool
	calls     int
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Render(doc string, pageIndex int, dstDir string, format string) (string, error) {
	f.calls++
	return filepath.Join(dstDir, OutputName(doc, pageIndex, format)), nil
}

func TestGatewayPicksFirstAvailable(t *testing.T) {
	a := &fakeBackend{name: "a"}
	b := &fakeBackend{name: "b", available: true}
	c := &fakeBackend{name: "c", available: true}

	g, err := NewGateway("/cache", "", a, b, c)
	require.NoError(t, err)
	assert.Equal(t, "b", g.Backend().Name())

	path, err := g.Render("/docs/book.pdf", 4)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cache", "book-4.png"), path)
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls)
}

func TestGatewayNoBackend(t *testing.T) {
	_, err := NewGateway("/cache", "png", &fakeBackend{name: "imagemagick"}, &fakeBackend{name: "ghostscript"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBackend))
	assert.Contains(t, err.Error(), "imagemagick")
	assert.Contains(t, err.Error(), "ghostscript")
}

func TestOutputNameIsDeterministic(t *testing.T) {
	assert.Equal(t, "scan-0.png", OutputName("/a/b/scan.pdf", 0, "png"))
	assert.Equal(t, "scan-0.png", OutputName("scan.pdf", 0, "png"))
	assert.Equal(t, "my.book-12.jpg", OutputName("/x/my.book.djvu", 12, "jpg"))
}

func TestMagickCommand(t *testing.T) {
	dst, cmd := MagickBackend{}.Command("/docs/book.djvu", 3, "/cache", "png")

	assert.Equal(t, filepath.Join("/cache", "book-3.png"), dst)
	assert.Equal(t, []string{"magick", "/docs/book.djvu[3]", dst}, cmd)
}

func TestMagickRenderFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-magick")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho converting\necho broken page >&2\nexit 3\n"), 0o755))

	m := MagickBackend{Path: script}
	require.True(t, m.Available())

	_, err := m.Render("/docs/book.pdf", 1, dir, "png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRenderFailed))

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "converting\n", renderErr.Stdout)
	assert.Equal(t, "broken page\n", renderErr.Stderr)
	assert.Equal(t, script, renderErr.Command[0])
	assert.Contains(t, err.Error(), "book.pdf[1]")
}

func TestMagickUnavailable(t *testing.T) {
	m := MagickBackend{Path: filepath.Join(t.TempDir(), "no-such-magick")}
	assert.False(t, m.Available())
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	fd, err := os.Create(path)
	require.NoError(t, err)
	defer fd.Close()
	require.NoError(t, png.Encode(fd, image.NewGray(image.Rect(0, 0, w, h))))
}

func TestImageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	writePNG(t, path, 800, 1000)

	w, h, err := ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 800, w)
	assert.Equal(t, 1000, h)

	_, _, err = ImageSize(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestWriteImageJPG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.jpg")
	require.NoError(t, WriteImage(image.NewRGBA(image.Rect(0, 0, 30, 20)), path, "jpg", 0))

	w, h, err := ImageSize(path)
	require.NoError(t, err)
	assert.Equal(t, [2]int{30, 20}, [2]int{w, h})
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.DJVU", "notes.txt", "c.epub"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	docs, err := ListDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.DJVU"), filepath.Join(dir, "b.pdf")}, docs)
}

func TestLabelColor(t *testing.T) {
	hex := regexp.MustCompile(`^#[0-9a-f]{6}$`)

	seen := map[string]bool{}
	for label := 0; label < 10; label++ {
		c := LabelColor(label)
		assert.Regexp(t, hex, c)
		assert.Equal(t, c, LabelColor(label))
		assert.False(t, seen[c], "label %d reuses colour %s", label, c)
		seen[c] = true
	}
	assert.Regexp(t, hex, LabelColor(-3))
}

func TestNormalizeRect(t *testing.T) {
	rot := func(a int64) *int64 { return &a }
	box := &model.PdfRectangle{Llx: 0, Lly: 0, Urx: 600, Ury: 800}
	rect := []float64{60, 700, 300, 760}

	tests := []struct {
		name   string
		rotate *int64
		want   r2.Rect
	}{
		{"unrotated", nil, r2.Rect{X: r1.Interval{Lo: 0.1, Hi: 0.5}, Y: r1.Interval{Lo: 0.05, Hi: 0.125}}},
		{"zero", rot(0), r2.Rect{X: r1.Interval{Lo: 0.1, Hi: 0.5}, Y: r1.Interval{Lo: 0.05, Hi: 0.125}}},
		{"quarter turn", rot(90), r2.Rect{X: r1.Interval{Lo: 0.875, Hi: 0.95}, Y: r1.Interval{Lo: 0.1, Hi: 0.5}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeRect(&model.PdfPage{MediaBox: box, Rotate: tc.rotate}, rect)
			assert.True(t, got.ApproxEqual(tc.want), "got %v, want %v", got, tc.want)
		})
	}
}

func TestNormalizeRectClamps(t *testing.T) {
	page := &model.PdfPage{MediaBox: &model.PdfRectangle{Urx: 100, Ury: 100}}

	got := NormalizeRect(page, []float64{-10, -10, 150, 50})
	assert.Equal(t, r2.Rect{X: r1.Interval{Lo: 0, Hi: 1}, Y: r1.Interval{Lo: 0.5, Hi: 1}}, got)
}

func TestMarkRenderFailed(t *testing.T) {
	assert.NoError(t, MarkRenderFailed(nil))

	cause := errors.New("exit status 1")
	err := MarkRenderFailed(cause)
	assert.True(t, errors.Is(err, ErrRenderFailed))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "render failed: exit status 1", err.Error())

	tagged := errors.Wrap(ErrRenderFailed, "page 3")
	assert.Equal(t, tagged, MarkRenderFailed(tagged))
}

const onePagePDF = `%PDF-1.4
1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj
2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj
3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 200 300] >> endobj
trailer << /Root 1 0 R >>
%%EOF
`

func TestFitzRejectsNegativePage(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "one.pdf")
	require.NoError(t, os.WriteFile(doc, []byte(onePagePDF), 0o644))

	_, err := FitzBackend{}.Render(doc, -1, dir, "png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRenderFailed))

	_, err = os.Stat(filepath.Join(dir, OutputName(doc, -1, "png")))
	assert.True(t, os.IsNotExist(err))
}

func fakeMagick(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	script := filepath.Join(t.TempDir(), "fake-magick")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"+body), 0o755))
	return script
}

func TestIdentifyCommand(t *testing.T) {
	cmd := MagickBackend{}.IdentifyCommand("/docs/book.djvu")
	assert.Equal(t, []string{"magick", "identify", "-format", "%n\n", "/docs/book.djvu"}, cmd)
}

func TestCountDjVuPagesWithMagick(t *testing.T) {
	script := fakeMagick(t, `[ "$1" = identify ] || exit 2
printf '3\n3\n3\n'
`)

	n, err := PageCounter{Magick: MagickBackend{Path: script}}.CountPages("/docs/book.DJVU")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountDjVuPagesFailures(t *testing.T) {
	counter := PageCounter{Magick: MagickBackend{Path: filepath.Join(t.TempDir(), "no-such-magick")}}
	_, err := counter.CountPages("/docs/book.djvu")
	assert.True(t, errors.Is(err, ErrNoBackend), "got %v", err)

	counter.Magick.Path = fakeMagick(t, "echo 'no decode delegate' >&2\nexit 1\n")
	_, err = counter.CountPages("/docs/book.djvu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decode delegate")

	counter.Magick.Path = fakeMagick(t, "echo garbage\n")
	_, err = counter.CountPages("/docs/book.djvu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected output")
}
