package editor

import (
	"fmt"

	"post-editor-be/pkg/lexical"
)

// Image size bounds enforced while resizing.
const (
	MinImageWidth  = 80
	MaxImageWidth  = 1600
	MinImageHeight = 60
	MaxImageHeight = 1200
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampImageSize forces a size into the resize bounds.
func ClampImageSize(width, height int) (int, int) {
	return clamp(width, MinImageWidth, MaxImageWidth), clamp(height, MinImageHeight, MaxImageHeight)
}

// insertImage places a new image and node-selects it. Without a selection the image is appended
// to the root's last block; a range selection receives it at the caret; a node selection gets it
// after its first node.
func (e *Editor) insertImage(p InsertImagePayload) (bool, error) {
	img, err := e.doc.CreateImage(lexical.ImageAttrs{
		Src:     p.Src,
		AltText: p.AltText,
		Width:   p.Width,
		Height:  p.Height,
	})
	if err != nil {
		return true, fmt.Errorf("insert image: %w", err)
	}

	placed := false
	switch sel := e.selection.(type) {
	case *RangeSelection:
		if !sel.IsCollapsed() {
			if err := e.deleteRange(sel); err != nil {
				return true, err
			}
		}
		if err := e.insertInlineAt(sel.Anchor, img); err != nil {
			return true, err
		}
		placed = true
	case *NodeSelection:
		if len(sel.Keys) > 0 && e.doc.IsAttached(sel.Keys[0]) {
			parent := e.doc.Parent(sel.Keys[0])
			if lexical.Accepts(e.doc.TypeOf(parent), lexical.TypeImage) {
				if err := e.doc.InsertAfter(sel.Keys[0], img); err != nil {
					return true, err
				}
				placed = true
			}
		}
	}
	if !placed {
		block, err := e.lastInlineContainer()
		if err != nil {
			return true, err
		}
		if err := e.doc.Append(block, img); err != nil {
			return true, err
		}
	}
	e.selection = NewNodeSelection(img)
	return true, nil
}

func (e *Editor) image(key lexical.NodeKey) error {
	if e.doc.TypeOf(key) != lexical.TypeImage || !e.doc.IsAttached(key) {
		return fmt.Errorf("image %q: %w", key, ErrNoSuchNode)
	}
	return nil
}

// resizeImage applies a committed resize, clamped to the bounds.
func (e *Editor) resizeImage(p ResizeImagePayload) (bool, error) {
	if err := e.image(p.Key); err != nil {
		return true, err
	}
	if p.Width <= 0 || p.Height <= 0 {
		return true, fmt.Errorf("image size %dx%d: %w", p.Width, p.Height, ErrInvalidPayload)
	}
	w, h := ClampImageSize(p.Width, p.Height)
	return true, e.doc.SetImageSize(p.Key, w, h)
}

// dragDropImage moves an image to the drop point within one edit and node-selects it.
func (e *Editor) dragDropImage(p DragDropImagePayload) (bool, error) {
	if err := e.image(p.Key); err != nil {
		return true, err
	}
	if err := validatePoint(e.doc, p.Target); err != nil {
		return true, err
	}
	target := p.Target
	if target.Key == p.Key {
		return true, fmt.Errorf("drop image onto itself: %w", ErrInvalidSelection)
	}
	parent, idx := e.doc.Parent(p.Key), e.doc.IndexInParent(p.Key)
	if err := e.doc.Detach(p.Key); err != nil {
		return true, err
	}
	if target.Key == parent && idx < target.Offset {
		target.Offset--
	}
	if err := e.insertInlineAt(target, p.Key); err != nil {
		return true, err
	}
	e.selection = NewNodeSelection(p.Key)
	return true, nil
}
