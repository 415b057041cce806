package session

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgmeyers/dlaregions/viewport"
)

func TestRouterPanAndZoom(t *testing.T) {
	f := newFixture(t)
	r := NewRouter(f.s)

	handled, err := r.Key("d")
	assert.True(t, handled)
	assert.True(t, errors.Is(err, viewport.ErrNotLoaded))

	require.NoError(t, f.s.Load())
	zoom := f.s.Viewport().Zoom()

	for _, k := range []string{"d", "d", "s", "=", "-"} {
		handled, err := r.Key(k)
		require.NoError(t, err)
		assert.True(t, handled, k)
	}

	c := f.s.Viewport().Center()
	assert.InDelta(t, 0.5+2*PanStep, c.X, 1e-12)
	assert.InDelta(t, 0.5+PanStep, c.Y, 1e-12)
	assert.InDelta(t, zoom*ZoomIn*ZoomOut, f.s.Viewport().Zoom(), 1e-12)

	handled, err = r.Key("x")
	assert.False(t, handled)
	assert.NoError(t, err)
}

func TestRouterLabelsAndCancel(t *testing.T) {
	f := newFixture(t)
	r := NewRouter(f.s)
	require.NoError(t, f.s.Load())

	_, err := r.Key("7")
	require.NoError(t, err)
	assert.Equal(t, 7, f.s.Selector().Label())

	_, err = r.Click(canvasPoint(t, f.s, 0.5, 0.5))
	require.NoError(t, err)
	_, pending := f.s.Selector().Pending()
	require.True(t, pending)

	_, err = r.Key("Escape")
	require.NoError(t, err)
	_, pending = f.s.Selector().Pending()
	assert.False(t, pending)
}

func TestRouterPagesStayInDocument(t *testing.T) {
	f := newFixture(t)
	r := NewRouter(f.s)
	require.NoError(t, f.s.Load())

	_, err := r.Key("p")
	require.NoError(t, err)
	assert.Equal(t, 1, f.s.Page())

	for i := 0; i < 5; i++ {
		_, err := r.Key("PageDown")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.s.Page())
	assert.Equal(t, []int{0, 1, 2}, f.renderer.calls)
}
