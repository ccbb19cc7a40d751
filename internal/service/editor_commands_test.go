package service

import (
	"encoding/json"
	"testing"

	"post-editor-be/internal/dto"
	"post-editor-be/internal/pkg/serverutils"
	"post-editor-be/pkg/editor"
	"post-editor-be/pkg/lexical"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.DispatchCommandRequest
		want    interface{}
		wantErr bool
	}{
		{name: "no payload", req: dto.DispatchCommandRequest{Type: "KEY_BACKSPACE"}, want: nil},
		{name: "text", req: dto.DispatchCommandRequest{Type: "INSERT_TEXT", Payload: json.RawMessage(`"abc"`)}, want: "abc"},
		{name: "text missing", req: dto.DispatchCommandRequest{Type: "INSERT_TEXT"}, wantErr: true},
		{name: "format", req: dto.DispatchCommandRequest{Type: "FORMAT_TEXT", Payload: json.RawMessage(`"bold"`)}, want: lexical.FormatBold},
		{name: "format unknown", req: dto.DispatchCommandRequest{Type: "FORMAT_TEXT", Payload: json.RawMessage(`"blink"`)}, wantErr: true},
		{name: "link string", req: dto.DispatchCommandRequest{Type: "TOGGLE_LINK", Payload: json.RawMessage(`"https://example.com"`)}, want: editor.ToggleLinkPayload{URL: "https://example.com"}},
		{name: "link object", req: dto.DispatchCommandRequest{Type: "TOGGLE_LINK", Payload: json.RawMessage(`{"url":"https://example.com","target":"_blank"}`)}, want: editor.ToggleLinkPayload{URL: "https://example.com", Target: "_blank"}},
		{name: "link removal", req: dto.DispatchCommandRequest{Type: "TOGGLE_LINK", Payload: json.RawMessage(`null`)}, want: nil},
		{name: "link bad url", req: dto.DispatchCommandRequest{Type: "TOGGLE_LINK", Payload: json.RawMessage(`"not a url"`)}, wantErr: true},
		{name: "style", req: dto.DispatchCommandRequest{Type: "PATCH_TEXT_STYLE", Payload: json.RawMessage(`{"color":"#ff0000"}`)}, want: map[string]string{"color": "#ff0000"}},
		{name: "style value with declaration", req: dto.DispatchCommandRequest{Type: "PATCH_TEXT_STYLE", Payload: json.RawMessage(`{"font-family":"Arial; color: red"}`)}, wantErr: true},
		{name: "style unknown property", req: dto.DispatchCommandRequest{Type: "PATCH_TEXT_STYLE", Payload: json.RawMessage(`{"position":"fixed"}`)}, wantErr: true},
		{name: "list", req: dto.DispatchCommandRequest{Type: "INSERT_LIST", Payload: json.RawMessage(`"bullet"`)}, want: editor.ListBullet},
		{name: "block", req: dto.DispatchCommandRequest{Type: "SET_BLOCK_TYPE", Payload: json.RawMessage(`"h1"`)}, want: editor.BlockH1},
		{name: "block unknown", req: dto.DispatchCommandRequest{Type: "SET_BLOCK_TYPE", Payload: json.RawMessage(`"h9"`)}, wantErr: true},
		{name: "align reset", req: dto.DispatchCommandRequest{Type: "FORMAT_ELEMENT"}, want: lexical.AlignNone},
		{name: "checked", req: dto.DispatchCommandRequest{Type: "TOGGLE_CHECKED", Payload: json.RawMessage(`"k1"`)}, want: lexical.NodeKey("k1")},
		{name: "image", req: dto.DispatchCommandRequest{Type: "INSERT_IMAGE", Payload: json.RawMessage(`{"src":"a.png","width":10}`)}, want: editor.InsertImagePayload{Src: "a.png", Width: 10}},
		{name: "resize zero", req: dto.DispatchCommandRequest{Type: "RESIZE_IMAGE", Payload: json.RawMessage(`{"key":"k","width":0,"height":5}`)}, wantErr: true},
		{name: "unknown", req: dto.DispatchCommandRequest{Type: "EXPLODE"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, payload, err := decodeCommand(&tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, serverutils.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload)
		})
	}
}

func TestApplySelection(t *testing.T) {
	ed := editor.New(hiDocument)
	text := ed.Document().TextNodes()[0]

	require.NoError(t, applySelection(ed, caret(string(text), 1)))
	sel := selectionDTO(ed)
	require.NotNil(t, sel)
	assert.Equal(t, "range", sel.Type)
	assert.Equal(t, 1, sel.Anchor.Offset)

	err := applySelection(ed, caret("missing", 0))
	assert.ErrorIs(t, err, serverutils.ErrValidation)

	require.NoError(t, applySelection(ed, &dto.SelectionDTO{Type: "none"}))
	assert.Nil(t, selectionDTO(ed))
}

func TestOutline(t *testing.T) {
	ed := editor.New(`{"root":{"children":[{"type":"heading","tag":"h1","children":[{"type":"text","text":"T"}]},{"type":"paragraph","children":[]}]}}`)

	out := outline(ed.Document(), ed.Document().Root())
	require.Len(t, out, 2)
	assert.Equal(t, "heading", out[0].Type)
	require.Len(t, out[0].Children, 1)
	assert.Equal(t, "T", out[0].Children[0].Text)
	assert.Empty(t, out[1].Children)
}
