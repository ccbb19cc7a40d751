package editor

import (
	"errors"
	"fmt"
	"time"

	"post-editor-be/pkg/lexical"

	"go.uber.org/zap"
)

var (
	ErrNoSuchNode       = errors.New("editor: no such node")
	ErrInvalidSelection = errors.New("editor: invalid selection")
	ErrInvalidPayload   = errors.New("editor: invalid command payload")
	ErrEditPanicked     = errors.New("editor: edit panicked")
)

// Update tags carried by UpdateEvent.Tags.
const (
	TagHistoric     = "historic"
	TagHistoryMerge = "history-merge"
	TagRollback     = "rollback"
)

// UpdateEvent is sent to listeners once per committed outermost edit.
type UpdateEvent struct {
	JSON      string
	Dirty     bool
	CanUndo   bool
	CanRedo   bool
	Tags      []string
	Selection Selection
}

// UpdateListener receives committed updates.
type UpdateListener func(UpdateEvent)

// Editor owns one document, its selection, command bus and history.
// It is single-threaded: callers serialize access.
type Editor struct {
	doc       *lexical.Document
	selection Selection
	json      string

	commands      map[CommandType][]registeredHandler
	nextHandlerID int

	listeners      map[int]UpdateListener
	listenerOrder  []int
	nextListenerID int

	history *History
	edit    *Edit

	logger      *zap.Logger
	now         func() time.Time
	mergeWindow time.Duration
	historyCap  int
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces time.Now, which drives history coalescing.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// WithMergeWindow sets how long consecutive typing keeps merging into one history entry.
func WithMergeWindow(d time.Duration) Option {
	return func(e *Editor) { e.mergeWindow = d }
}

// WithHistoryLimit caps the undo stack; zero keeps everything.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.historyCap = n }
}

// DefaultMergeWindow is the coalescing window for typing.
const DefaultMergeWindow = time.Second

// New mounts an editor on initial, a Lexical JSON string. Content that cannot be decoded is
// loaded as plain text; an empty string gives the empty editor.
func New(initial string, opts ...Option) *Editor {
	return NewWithDocument(lexical.Deserialize(initial), opts...)
}

// NewWithDocument mounts an editor on doc, which it takes ownership of.
func NewWithDocument(doc *lexical.Document, opts ...Option) *Editor {
	e := &Editor{
		doc:         doc,
		commands:    make(map[CommandType][]registeredHandler),
		listeners:   make(map[int]UpdateListener),
		logger:      zap.NewNop(),
		now:         time.Now,
		mergeWindow: DefaultMergeWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(doc.Children(doc.Root())) == 0 {
		e.doc = lexical.NewDocumentWithParagraph()
	}
	e.json, _ = lexical.Serialize(e.doc)
	e.history = newHistory(e.snapshot(""), e.mergeWindow, e.historyCap)
	return e
}

// Document returns the live document. Mutate it only through commands or Update.
func (e *Editor) Document() *lexical.Document {
	return e.doc
}

// Selection returns a copy of the current selection, or nil.
func (e *Editor) Selection() Selection {
	return cloneSelection(e.selection)
}

// JSON returns the serialized document as of the last commit.
func (e *Editor) JSON() string {
	return e.json
}

// PlainText returns the text content joined by spaces.
func (e *Editor) PlainText() string {
	return lexical.PlainText(e.doc)
}

// CanUndo reports whether UNDO would change anything.
func (e *Editor) CanUndo() bool {
	return e.history.CanUndo()
}

// CanRedo reports whether REDO would change anything.
func (e *Editor) CanRedo() bool {
	return e.history.CanRedo()
}

// Undo dispatches UNDO.
func (e *Editor) Undo() bool {
	return e.Dispatch(CommandUndo, nil)
}

// Redo dispatches REDO.
func (e *Editor) Redo() bool {
	return e.Dispatch(CommandRedo, nil)
}

// RegisterUpdateListener subscribes fn to committed updates and returns the unsubscribe func.
func (e *Editor) RegisterUpdateListener(fn UpdateListener) func() {
	e.nextListenerID++
	id := e.nextListenerID
	e.listeners[id] = fn
	e.listenerOrder = append(e.listenerOrder, id)
	return func() {
		delete(e.listeners, id)
		for i, lid := range e.listenerOrder {
			if lid == id {
				e.listenerOrder = append(e.listenerOrder[:i:i], e.listenerOrder[i+1:]...)
				break
			}
		}
	}
}

func (e *Editor) notify(ev UpdateEvent) {
	for _, id := range append([]int(nil), e.listenerOrder...) {
		if fn, ok := e.listeners[id]; ok {
			fn(ev)
		}
	}
}

// Selection management

// SetSelection replaces the selection after checking its keys and offsets.
func (e *Editor) SetSelection(s Selection) error {
	if err := validateSelection(e.doc, s); err != nil {
		return err
	}
	e.selection = cloneSelection(s)
	return nil
}

// Select sets a range selection whose pending format and style follow the anchor text node.
func (e *Editor) Select(anchor, focus Point) error {
	sel := &RangeSelection{Anchor: anchor, Focus: focus}
	if n, ok := e.doc.Get(anchor.Key); ok && n.Type == lexical.TypeText {
		sel.Format = n.Format
		sel.Style = n.Style
	}
	return e.SetSelection(sel)
}

// SelectNode selects key. With shift it toggles key in an existing node selection instead.
func (e *Editor) SelectNode(key lexical.NodeKey, shift bool) error {
	if key == e.doc.Root() || !e.doc.IsAttached(key) {
		return fmt.Errorf("select %q: %w", key, ErrNoSuchNode)
	}
	current, ok := e.selection.(*NodeSelection)
	if !shift || !ok {
		e.selection = NewNodeSelection(key)
		return nil
	}
	next := current.clone().(*NodeSelection)
	if next.Has(key) {
		next.Delete(key)
	} else {
		next.Add(key)
	}
	if len(next.Keys) == 0 {
		e.selection = nil
		return nil
	}
	e.selection = next
	return nil
}

// Blur drops the selection unless preserve is set.
func (e *Editor) Blur(preserve bool) {
	if !preserve {
		e.selection = nil
	}
}

// IsNodeSelected reports whether key is part of the node selection.
func (e *Editor) IsNodeSelected(key lexical.NodeKey) bool {
	s, ok := e.selection.(*NodeSelection)
	return ok && s.Has(key)
}

// dropStaleSelection clears a selection that points at detached nodes.
func (e *Editor) dropStaleSelection() {
	if e.selection == nil {
		return
	}
	if err := validateSelection(e.doc, e.selection); err != nil {
		e.logger.Debug("selection dropped after edit", zap.Error(err))
		e.selection = nil
	}
}

func (e *Editor) snapshot(kind string) HistoryEntry {
	return HistoryEntry{
		Document:  e.doc.Clone(),
		Selection: cloneSelection(e.selection),
		JSON:      e.json,
		Kind:      kind,
		At:        e.now(),
	}
}

func (e *Editor) restore(h HistoryEntry) {
	e.doc = h.Document.Clone()
	e.selection = cloneSelection(h.Selection)
}

// Edit transactions

// EditOptions controls how a committed edit is recorded.
type EditOptions struct {
	// Tag names the edit; it is the coalescing kind for merge edits.
	Tag string
	// Merge lets the edit coalesce into a recent merge entry of the same kind.
	Merge bool
	// SkipHistory commits without touching the undo stack.
	SkipHistory bool
}

// Edit is one update transaction. Nested edits join the outermost one, which alone commits.
type Edit struct {
	ed    *Editor
	root  *Edit
	opts  EditOptions
	tags  []string
	err   error
	quiet bool
	done  bool

	before    *lexical.Document
	beforeSel Selection
}

// BeginEdit opens an edit. It must be paired with Commit on every path.
func (e *Editor) BeginEdit(opts EditOptions) *Edit {
	if e.edit != nil {
		x := &Edit{ed: e, root: e.edit, opts: opts}
		if opts.Tag != "" {
			e.edit.tags = append(e.edit.tags, opts.Tag)
		}
		return x
	}
	x := &Edit{
		ed:        e,
		opts:      opts,
		before:    e.doc.Clone(),
		beforeSel: cloneSelection(e.selection),
	}
	x.root = x
	if opts.Tag != "" {
		x.tags = append(x.tags, opts.Tag)
	}
	e.edit = x
	return x
}

// Fail marks the edit so that the outermost commit restores the pre-edit state.
func (x *Edit) Fail(err error) {
	if err == nil {
		return
	}
	if x.err == nil {
		x.err = err
	}
	if x.root != x && x.root.err == nil {
		x.root.err = err
	}
}

// Err returns the failure recorded on the edit.
func (x *Edit) Err() error {
	return x.err
}

// Commit closes the edit. Only the outermost commit has effect: it rolls back a failed edit,
// otherwise pushes at most one history entry and notifies listeners once.
func (x *Edit) Commit() error {
	if x.done {
		return x.err
	}
	x.done = true
	if x.root != x {
		return x.err
	}

	e := x.ed
	e.edit = nil
	if x.err != nil {
		e.doc, e.selection = x.before, x.beforeSel
		e.notify(e.event(false, append(x.tags, TagRollback)))
		return x.err
	}

	e.dropStaleSelection()
	out, err := lexical.Serialize(e.doc)
	if err != nil {
		x.err = err
		e.doc, e.selection = x.before, x.beforeSel
		e.notify(e.event(false, append(x.tags, TagRollback)))
		return err
	}
	dirty := out != e.json
	e.json = out

	tags := x.tags
	if dirty && !x.opts.SkipHistory {
		entry := e.snapshot(x.opts.Tag)
		entry.Merge = x.opts.Merge
		if e.history.push(entry) {
			tags = append(tags, TagHistoryMerge)
		}
	}
	if x.quiet && !dirty {
		return nil
	}
	e.notify(e.event(dirty, tags))
	return nil
}

func (e *Editor) event(dirty bool, tags []string) UpdateEvent {
	return UpdateEvent{
		JSON:      e.json,
		Dirty:     dirty,
		CanUndo:   e.history.CanUndo(),
		CanRedo:   e.history.CanRedo(),
		Tags:      append([]string(nil), tags...),
		Selection: cloneSelection(e.selection),
	}
}

// Update runs fn inside an edit. An error or panic from fn rolls the document and selection
// back; a panic is returned as ErrEditPanicked.
func (e *Editor) Update(opts EditOptions, fn func() error) error {
	return e.run(opts, func(*Edit) error { return fn() })
}

func (e *Editor) run(opts EditOptions, fn func(*Edit) error) (err error) {
	x := e.BeginEdit(opts)
	defer func() {
		if r := recover(); r != nil {
			x.Fail(fmt.Errorf("%v: %w", r, ErrEditPanicked))
		}
		err = x.Commit()
	}()
	x.Fail(fn(x))
	return nil
}
