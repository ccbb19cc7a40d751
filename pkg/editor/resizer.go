package editor

import (
	"fmt"

	"post-editor-be/pkg/lexical"

	"go.uber.org/zap"
)

// ResizeState is the phase of the image resize interaction.
type ResizeState int

const (
	ResizeIdle ResizeState = iota
	ResizeSelected
	ResizeResizing
)

func (s ResizeState) String() string {
	switch s {
	case ResizeSelected:
		return "selected"
	case ResizeResizing:
		return "resizing"
	}
	return "idle"
}

// Direction is the bitmask of the dragged handle.
type Direction int

const (
	DirectionEast  Direction = 1 << 0
	DirectionSouth Direction = 1 << 1
	DirectionWest  Direction = 1 << 2
	DirectionNorth Direction = 1 << 3
)

// ImageResizer drives the idle -> selected -> resizing -> selected cycle of one editor.
// The only way out of resizing is PointerUp.
type ImageResizer struct {
	ed    *Editor
	state ResizeState
	key   lexical.NodeKey

	dir            Direction
	startX, startY float64
	startW, startH int
	width, height  int
	ratio          float64
}

// NewImageResizer binds a resizer to ed.
func NewImageResizer(ed *Editor) *ImageResizer {
	return &ImageResizer{ed: ed}
}

// State returns the current phase.
func (r *ImageResizer) State() ResizeState {
	return r.state
}

// Key returns the image being handled, if any.
func (r *ImageResizer) Key() lexical.NodeKey {
	return r.key
}

// Size returns the live size while resizing, or the size at the last pointer-up.
func (r *ImageResizer) Size() (int, int) {
	return r.width, r.height
}

// Click selects the image; shift toggles it in the node selection.
func (r *ImageResizer) Click(key lexical.NodeKey, shift bool) error {
	if r.state == ResizeResizing {
		return nil
	}
	if err := r.ed.image(key); err != nil {
		return err
	}
	if err := r.ed.SelectNode(key, shift); err != nil {
		return err
	}
	if r.ed.IsNodeSelected(key) {
		r.state, r.key = ResizeSelected, key
	} else {
		r.reset()
	}
	return nil
}

// PointerDown starts resizing from a handle. width and height are the rendered size.
func (r *ImageResizer) PointerDown(dir Direction, x, y float64, width, height int) bool {
	if r.state != ResizeSelected || dir == 0 {
		return false
	}
	if !r.ed.IsNodeSelected(r.key) {
		r.reset()
		return false
	}
	w, h := ClampImageSize(width, height)
	r.dir = dir
	r.startX, r.startY = x, y
	r.startW, r.startH = w, h
	r.width, r.height = w, h
	r.ratio = float64(w) / float64(h)
	r.state = ResizeResizing
	return true
}

// PointerMove recomputes the size from the pointer delta. With shift the aspect ratio at
// PointerDown is kept. The result always lies within the bounds.
func (r *ImageResizer) PointerMove(x, y float64, shift bool) (int, int) {
	if r.state != ResizeResizing {
		return r.width, r.height
	}
	horizontal := r.dir&(DirectionEast|DirectionWest) != 0
	vertical := r.dir&(DirectionNorth|DirectionSouth) != 0

	w, h := r.startW, r.startH
	if horizontal {
		dx := x - r.startX
		if r.dir&DirectionWest != 0 {
			dx = -dx
		}
		w = clamp(r.startW+int(dx), MinImageWidth, MaxImageWidth)
	}
	if vertical {
		dy := y - r.startY
		if r.dir&DirectionNorth != 0 {
			dy = -dy
		}
		h = clamp(r.startH+int(dy), MinImageHeight, MaxImageHeight)
	}

	if shift {
		if horizontal {
			h = clamp(int(float64(w)/r.ratio), MinImageHeight, MaxImageHeight)
			w = clamp(int(float64(h)*r.ratio), MinImageWidth, MaxImageWidth)
		} else {
			w = clamp(int(float64(h)*r.ratio), MinImageWidth, MaxImageWidth)
			h = clamp(int(float64(w)/r.ratio), MinImageHeight, MaxImageHeight)
		}
	}
	r.width, r.height = w, h
	return w, h
}

// PointerUp ends resizing and commits the size as one RESIZE_IMAGE.
func (r *ImageResizer) PointerUp() error {
	if r.state != ResizeResizing {
		return nil
	}
	r.state = ResizeSelected
	_, err := r.ed.DispatchCommand(CommandResizeImage, ResizeImagePayload{Key: r.key, Width: r.width, Height: r.height})
	if err != nil {
		return fmt.Errorf("commit resize of %q: %w", r.key, err)
	}
	r.ed.logger.Debug("image resized", zap.String("key", string(r.key)), zap.Int("width", r.width), zap.Int("height", r.height))
	return nil
}

// KeyDelete removes the selected image on Backspace/Delete and returns to idle.
func (r *ImageResizer) KeyDelete() (bool, error) {
	if r.state != ResizeSelected {
		return false, nil
	}
	handled, err := r.ed.DispatchCommand(CommandKeyDelete, nil)
	if err != nil {
		return handled, err
	}
	r.reset()
	return handled, nil
}

// Blur returns to idle unless a resize is in progress.
func (r *ImageResizer) Blur() {
	if r.state != ResizeResizing {
		r.reset()
	}
}

func (r *ImageResizer) reset() {
	r.state = ResizeIdle
	r.key = ""
	r.dir = 0
}
