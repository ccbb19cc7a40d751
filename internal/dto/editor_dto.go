package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OpenSessionRequest struct {
	PostId       *uuid.UUID `json:"post_id"`
	Title        string     `json:"title" validate:"omitempty,max=255"`
	Content      string     `json:"content"` // initial Lexical JSON for a new post
	DiscardDraft bool       `json:"discard_draft"`
}

type PointDTO struct {
	Key    string `json:"key" validate:"required"`
	Offset int    `json:"offset" validate:"gte=0"`
}

type SelectionDTO struct {
	Type   string    `json:"type" validate:"required,oneof=range node none"`
	Anchor *PointDTO `json:"anchor,omitempty" validate:"required_if=Type range,omitempty"`
	Focus  *PointDTO `json:"focus,omitempty" validate:"required_if=Type range,omitempty"`
	Keys   []string  `json:"keys,omitempty" validate:"required_if=Type node,dive,required"`
	Format []string  `json:"format,omitempty"`
}

type DispatchCommandRequest struct {
	Type    string          `json:"type" validate:"required,oneof=INSERT_TEXT KEY_BACKSPACE KEY_DELETE FORMAT_TEXT PATCH_TEXT_STYLE TOGGLE_LINK INSERT_LIST REMOVE_LIST TOGGLE_CHECKED FORMAT_ELEMENT INDENT_CONTENT OUTDENT_CONTENT SET_BLOCK_TYPE INSERT_HORIZONTAL_RULE INSERT_IMAGE RESIZE_IMAGE DRAG_DROP_IMAGE UNDO REDO CLEAR_EDITOR"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command payloads, decoded from DispatchCommandRequest.Payload.

type InsertTextPayload struct {
	Text string `validate:"max=10000"`
}

type FormatTextPayload struct {
	Format string `validate:"required,oneof=bold italic strikethrough underline code subscript superscript"`
}

type PatchTextStylePayload struct {
	Style map[string]string `validate:"required,min=1,dive,keys,oneof=color background-color font-size font-family,endkeys,max=100,excludesall=;:\"<>{}\\"`
}

type LinkPayload struct {
	URL    string `json:"url" validate:"omitempty,url,max=2048"`
	Target string `json:"target" validate:"omitempty,oneof=_blank _self _parent _top"`
	Rel    string `json:"rel" validate:"omitempty,max=100"`
	Title  string `json:"title" validate:"omitempty,max=255"`
}

type ListPayload struct {
	Kind string `validate:"required,oneof=bullet number check"`
}

type NodeKeyPayload struct {
	Key string `validate:"required"`
}

type ElementFormatPayload struct {
	Format string `validate:"omitempty,oneof=left center right justify"`
}

type BlockTypePayload struct {
	BlockType string `validate:"required,oneof=paragraph h1 h2 h3 quote code"`
}

type InsertImagePayload struct {
	Src     string `json:"src" validate:"required,max=2048"`
	AltText string `json:"alt_text" validate:"max=500"`
	Width   int    `json:"width" validate:"gte=0"`
	Height  int    `json:"height" validate:"gte=0"`
}

type ResizeImagePayload struct {
	Key    string `json:"key" validate:"required"`
	Width  int    `json:"width" validate:"required,gt=0"`
	Height int    `json:"height" validate:"required,gt=0"`
}

type DragDropImagePayload struct {
	Key    string   `json:"key" validate:"required"`
	Target PointDTO `json:"target" validate:"required"`
}

type ResizerRequest struct {
	Event     string   `json:"event" validate:"required,oneof=click pointer_down pointer_move pointer_up key_delete blur"`
	Key       string   `json:"key" validate:"required_if=Event click"`
	Shift     bool     `json:"shift"`
	Direction []string `json:"direction" validate:"required_if=Event pointer_down,dive,oneof=north south east west"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Width     int      `json:"width" validate:"gte=0"`
	Height    int      `json:"height" validate:"gte=0"`
}

type ResizerResponse struct {
	State   string `json:"state"`
	Key     string `json:"key,omitempty"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Handled bool   `json:"handled"`
}

type SavePostRequest struct {
	Force bool `json:"force"` // overwrite a newer revision saved from another session
}

type SavePostResponse struct {
	PostId   uuid.UUID `json:"post_id"`
	Revision int       `json:"revision"`
	SavedAt  time.Time `json:"saved_at"`
}

type OutlineNode struct {
	Key      string        `json:"key"`
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	Format   int           `json:"format,omitempty"`
	Children []OutlineNode `json:"children,omitempty"`
}

type SessionStateResponse struct {
	SessionId     string        `json:"session_id"`
	PostId        uuid.UUID     `json:"post_id"`
	Revision      int           `json:"revision"`
	Stale         bool          `json:"stale"`
	RestoredDraft bool          `json:"restored_draft,omitempty"`
	Content       string        `json:"content"`
	PlainText     string        `json:"plain_text"`
	Markdown      string        `json:"markdown,omitempty"`
	CanUndo       bool          `json:"can_undo"`
	CanRedo       bool          `json:"can_redo"`
	Selection     *SelectionDTO `json:"selection,omitempty"`
	Outline       []OutlineNode `json:"outline,omitempty"`
}

type DispatchCommandResponse struct {
	Handled bool                  `json:"handled"`
	State   *SessionStateResponse `json:"state"`
}

// DocumentChangedMessage is published on the change topic after every dirty commit.
type DocumentChangedMessage struct {
	SessionId  string    `json:"session_id"`
	PostId     uuid.UUID `json:"post_id"`
	UserId     uuid.UUID `json:"user_id"`
	Seq        uint64    `json:"seq"`
	Revision   int       `json:"revision"`
	Content    string    `json:"content"`
	CanUndo    bool      `json:"can_undo"`
	CanRedo    bool      `json:"can_redo"`
	Tags       []string  `json:"tags,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SocketFrame is a client frame on the editor websocket.
type SocketFrame struct {
	Type      string                  `json:"type" validate:"required,oneof=command selection resizer state"`
	Command   *DispatchCommandRequest `json:"command,omitempty" validate:"required_if=Type command,omitempty"`
	Selection *SelectionDTO           `json:"selection,omitempty" validate:"required_if=Type selection,omitempty"`
	Resizer   *ResizerRequest         `json:"resizer,omitempty" validate:"required_if=Type resizer,omitempty"`
}
