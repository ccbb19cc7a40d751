package editor

import (
	"post-editor-be/pkg/lexical"
)

func (e *Editor) linkOf(key lexical.NodeKey) lexical.NodeKey {
	return e.doc.Nearest(key, func(t lexical.NodeType) bool { return t == lexical.TypeLink })
}

// toggleLink wraps the covered text in a link, or updates the links it already sits in. An
// empty URL unwraps every link the selection touches.
func (e *Editor) toggleLink(p ToggleLinkPayload) (bool, error) {
	sel, ok := e.selection.(*RangeSelection)
	if !ok {
		return false, nil
	}
	attrs := lexical.LinkAttrs{Rel: p.Rel, Target: p.Target, Title: p.Title}

	if p.URL == "" {
		return e.unlink(sel)
	}

	if sel.IsCollapsed() {
		link := e.linkOf(sel.Anchor.Key)
		if link == "" {
			return false, nil
		}
		if err := e.doc.SetLinkURL(link, p.URL); err != nil {
			return true, err
		}
		return true, e.doc.SetLinkAttrs(link, attrs)
	}

	pieces, err := e.isolateSelection(sel)
	if err != nil {
		return true, err
	}
	if len(pieces) == 0 {
		return false, nil
	}

	var group []lexical.NodeKey
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		defer func() { group = group[:0] }()
		link, err := e.doc.CreateLink(p.URL)
		if err != nil {
			return err
		}
		_ = e.doc.SetLinkAttrs(link, attrs)
		if err := e.doc.InsertBefore(group[0], link); err != nil {
			return err
		}
		for _, k := range group {
			if err := e.doc.Detach(k); err != nil {
				return err
			}
			if err := e.doc.Append(link, k); err != nil {
				return err
			}
		}
		return nil
	}

	updated := make(map[lexical.NodeKey]bool)
	for _, k := range pieces {
		parent := e.doc.Parent(k)
		switch {
		case e.doc.TypeOf(parent) == lexical.TypeLink:
			if err := flush(); err != nil {
				return true, err
			}
			if !updated[parent] {
				if err := e.doc.SetLinkURL(parent, p.URL); err != nil {
					return true, err
				}
				_ = e.doc.SetLinkAttrs(parent, attrs)
				updated[parent] = true
			}
		case !lexical.Accepts(e.doc.TypeOf(parent), lexical.TypeLink):
			// code blocks keep their text unlinked
			if err := flush(); err != nil {
				return true, err
			}
		default:
			if len(group) > 0 {
				prev := group[len(group)-1]
				if e.doc.Parent(prev) != parent || e.doc.IndexInParent(prev)+1 != e.doc.IndexInParent(k) {
					if err := flush(); err != nil {
						return true, err
					}
				}
			}
			group = append(group, k)
		}
	}
	if err := flush(); err != nil {
		return true, err
	}
	return true, nil
}

// unlink replaces each link touched by sel with its children.
func (e *Editor) unlink(sel *RangeSelection) (bool, error) {
	var links []lexical.NodeKey
	add := func(k lexical.NodeKey) {
		if l := e.linkOf(k); l != "" && indexOf(links, l) < 0 {
			links = append(links, l)
		}
	}
	add(sel.Anchor.Key)
	add(sel.Focus.Key)
	for _, seg := range newTextLayout(e.doc).covered(sel) {
		add(seg.key)
	}
	if len(links) == 0 {
		return false, nil
	}
	for _, link := range links {
		for _, c := range e.doc.Children(link) {
			if err := e.doc.Detach(c); err != nil {
				return true, err
			}
			if err := e.doc.InsertBefore(link, c); err != nil {
				return true, err
			}
		}
		if err := e.doc.Remove(link); err != nil {
			return true, err
		}
	}
	return true, nil
}

// LinkAt returns the url of the link around the selection anchor, for toolbar state.
func (e *Editor) LinkAt() (string, bool) {
	sel, ok := e.selection.(*RangeSelection)
	if !ok {
		return "", false
	}
	link := e.linkOf(sel.Anchor.Key)
	if link == "" {
		return "", false
	}
	n, _ := e.doc.Get(link)
	return n.URL, true
}
