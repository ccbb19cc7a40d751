package editor

import (
	"fmt"
	"testing"

	"post-editor-be/pkg/lexical"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageEditor(t *testing.T) (*Editor, lexical.NodeKey) {
	t.Helper()
	e := newTestEditor(t, hiDocument)
	require.True(t, e.Dispatch(CommandInsertImage, InsertImagePayload{Src: "x.png", Width: 400, Height: 300}))
	sel, ok := e.Selection().(*NodeSelection)
	require.True(t, ok)
	e.Blur(false)
	return e, sel.Keys[0]
}

func TestResizerStateMachine(t *testing.T) {
	e, img := newImageEditor(t)
	r := NewImageResizer(e)
	assert.Equal(t, ResizeIdle, r.State())

	assert.False(t, r.PointerDown(DirectionEast, 0, 0, 400, 300), "idle ignores pointer down")

	require.NoError(t, r.Click(img, false))
	assert.Equal(t, ResizeSelected, r.State())
	assert.True(t, e.IsNodeSelected(img))

	require.True(t, r.PointerDown(DirectionEast, 100, 100, 400, 300))
	assert.Equal(t, ResizeResizing, r.State())

	// clicks and blur do not interrupt a drag
	require.NoError(t, r.Click(img, false))
	r.Blur()
	assert.Equal(t, ResizeResizing, r.State())

	w, h := r.PointerMove(150, 100, false)
	assert.Equal(t, 450, w)
	assert.Equal(t, 300, h)

	undoBefore, _ := e.History().Depth()
	require.NoError(t, r.PointerUp())
	assert.Equal(t, ResizeSelected, r.State())

	n, _ := e.Document().Get(img)
	assert.Equal(t, 450, n.Width)
	assert.Equal(t, 300, n.Height)
	undoAfter, _ := e.History().Depth()
	assert.Equal(t, undoBefore+1, undoAfter, "a drag commits one history entry")

	r.Blur()
	assert.Equal(t, ResizeIdle, r.State())
}

func TestResizerShiftClickDeselects(t *testing.T) {
	e, img := newImageEditor(t)
	r := NewImageResizer(e)

	require.NoError(t, r.Click(img, false))
	require.NoError(t, r.Click(img, true))
	assert.Equal(t, ResizeIdle, r.State())
	assert.False(t, e.IsNodeSelected(img))

	assert.Error(t, r.Click(textAt(t, e, 0), false))
}

func TestResizerStaysWithinBounds(t *testing.T) {
	deltas := []struct{ dx, dy float64 }{
		{0, 0},
		{50, 40},
		{-50, -40},
		{5000, 5000},
		{-5000, -5000},
		{5000, -5000},
		{-5000, 5000},
		{1199.5, -239.9},
		{-319.9, 899.1},
	}
	dirs := []Direction{
		DirectionEast,
		DirectionWest,
		DirectionNorth,
		DirectionSouth,
		DirectionNorth | DirectionEast,
		DirectionSouth | DirectionEast,
		DirectionSouth | DirectionWest,
		DirectionNorth | DirectionWest,
	}

	for _, dir := range dirs {
		for _, d := range deltas {
			for _, shift := range []bool{false, true} {
				t.Run(fmt.Sprintf("dir=%d dx=%v dy=%v shift=%v", dir, d.dx, d.dy, shift), func(t *testing.T) {
					e, img := newImageEditor(t)
					r := NewImageResizer(e)
					require.NoError(t, r.Click(img, false))
					require.True(t, r.PointerDown(dir, 500, 500, 400, 300))

					w, h := r.PointerMove(500+d.dx, 500+d.dy, shift)
					assert.GreaterOrEqual(t, w, MinImageWidth)
					assert.LessOrEqual(t, w, MaxImageWidth)
					assert.GreaterOrEqual(t, h, MinImageHeight)
					assert.LessOrEqual(t, h, MaxImageHeight)

					require.NoError(t, r.PointerUp())
					n, _ := e.Document().Get(img)
					assert.Equal(t, w, n.Width)
					assert.Equal(t, h, n.Height)
				})
			}
		}
	}
}

func TestResizerMoveDirections(t *testing.T) {
	tests := []struct {
		name  string
		dir   Direction
		dx    float64
		dy    float64
		wantW int
		wantH int
	}{
		{"east grows right", DirectionEast, 100, 80, 500, 300},
		{"west grows left", DirectionWest, -100, 80, 500, 300},
		{"south grows down", DirectionSouth, 100, 80, 400, 380},
		{"north grows up", DirectionNorth, 100, -80, 400, 380},
		{"corner", DirectionSouth | DirectionEast, -100, -50, 300, 250},
		{"clamped low", DirectionSouth | DirectionEast, -1000, -1000, MinImageWidth, MinImageHeight},
		{"clamped high", DirectionSouth | DirectionEast, 9000, 9000, MaxImageWidth, MaxImageHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, img := newImageEditor(t)
			r := NewImageResizer(e)
			require.NoError(t, r.Click(img, false))
			require.True(t, r.PointerDown(tt.dir, 0, 0, 400, 300))

			w, h := r.PointerMove(tt.dx, tt.dy, false)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestResizerShiftKeepsAspectRatio(t *testing.T) {
	e, img := newImageEditor(t)
	r := NewImageResizer(e)
	require.NoError(t, r.Click(img, false))
	require.True(t, r.PointerDown(DirectionEast, 0, 0, 400, 300))

	w, h := r.PointerMove(200, 0, true)
	assert.InDelta(t, 600, w, 1)
	assert.InDelta(t, 4.0/3.0, float64(w)/float64(h), 0.01)
}

func TestResizerKeyDeleteRemovesImage(t *testing.T) {
	e, img := newImageEditor(t)
	r := NewImageResizer(e)

	handled, err := r.KeyDelete()
	require.NoError(t, err)
	assert.False(t, handled, "nothing selected")

	require.NoError(t, r.Click(img, false))
	handled, err = r.KeyDelete()
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, ResizeIdle, r.State())
	assert.False(t, e.Document().IsAttached(img))
}

func TestClampImageSize(t *testing.T) {
	w, h := ClampImageSize(10, 5000)
	assert.Equal(t, MinImageWidth, w)
	assert.Equal(t, MaxImageHeight, h)

	w, h = ClampImageSize(640, 480)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}
