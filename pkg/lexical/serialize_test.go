package lexical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRichDocument exercises every node kind through the factories and setters.
func buildRichDocument(t *testing.T) *Document {
	t.Helper()
	d := NewDocument()
	root := d.Root()

	p := d.CreateParagraph()
	require.NoError(t, d.Append(root, p))
	require.NoError(t, d.SetElementFormat(p, AlignCenter))
	require.NoError(t, d.SetIndent(p, 2))
	bold := d.CreateText("Hello ")
	require.NoError(t, d.Append(p, bold))
	require.NoError(t, d.SetFormat(bold, FormatBold|FormatUnderline))
	require.NoError(t, d.SetStyle(bold, TextStyle{Color: "#f97316", FontSize: "15px"}))
	link, err := d.CreateLink("https://example.com")
	require.NoError(t, err)
	require.NoError(t, d.Append(p, link))
	require.NoError(t, d.Append(link, d.CreateText("world")))

	h, err := d.CreateHeading(2)
	require.NoError(t, err)
	require.NoError(t, d.Append(root, h))
	require.NoError(t, d.Append(h, d.CreateText("Title")))

	list := d.CreateList(true)
	require.NoError(t, d.Append(root, list))
	item := d.CreateListItem()
	require.NoError(t, d.Append(list, item))
	require.NoError(t, d.Append(item, d.CreateText("first")))
	nested := d.CreateCheckList()
	require.NoError(t, d.Append(item, nested))
	nestedItem := d.CreateListItem()
	require.NoError(t, d.Append(nested, nestedItem))
	require.NoError(t, d.SetChecked(nestedItem, true))
	require.NoError(t, d.Append(nestedItem, d.CreateText("done")))

	q := d.CreateQuote()
	require.NoError(t, d.Append(root, q))
	require.NoError(t, d.Append(q, d.CreateText("quoted")))

	code := d.CreateCode("go")
	require.NoError(t, d.Append(root, code))
	require.NoError(t, d.Append(code, d.CreateText("fmt.Println()")))

	img, err := d.CreateImage(ImageAttrs{Src: "x.png", AltText: "x", Width: 320, Height: 200})
	require.NoError(t, err)
	require.NoError(t, d.Append(root, img))
	require.NoError(t, d.Append(root, d.CreateHorizontalRule()))
	return d
}

func TestSerializeRoundTrip(t *testing.T) {
	d := buildRichDocument(t)

	out, err := Serialize(d)
	require.NoError(t, err)

	back, err := Parse(out)
	require.NoError(t, err)
	assert.True(t, Equal(d, back))
	assert.True(t, Equal(d, Deserialize(out)))

	again, err := Serialize(back)
	require.NoError(t, err)
	assert.JSONEq(t, out, again)
}

func TestSerializeWireShape(t *testing.T) {
	d := NewDocumentWithParagraph()
	p := d.Children(d.Root())[0]
	text := d.CreateText("Hi")
	require.NoError(t, d.Append(p, text))
	require.NoError(t, d.SetFormat(text, FormatBold))

	out, err := Serialize(d)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	root := raw["root"].(map[string]interface{})
	assert.Equal(t, "root", root["type"])
	para := root["children"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "paragraph", para["type"])
	assert.Equal(t, "", para["format"])
	leaf := para["children"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "text", leaf["type"])
	assert.Equal(t, float64(1), leaf["format"])
	assert.Equal(t, "normal", leaf["mode"])
}

func TestDeserializeFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "not json", input: "not json", want: "not json"},
		{name: "missing root", input: `{"foo":1}`, want: `{"foo":1}`},
		{name: "invalid tree", input: `{"root":{"type":"root","children":[{"type":"text","text":"loose"}]}}`,
			want: `{"root":{"type":"root","children":[{"type":"text","text":"loose"}]}}`},
		{name: "unknown node", input: `{"root":{"children":[{"type":"table","children":[]}]}}`,
			want: `{"root":{"children":[{"type":"table","children":[]}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Deserialize(tt.input)
			blocks := d.Children(d.Root())
			require.Len(t, blocks, 1)
			assert.Equal(t, TypeParagraph, d.TypeOf(blocks[0]))
			texts := d.TextNodes()
			require.Len(t, texts, 1)
			n, _ := d.Get(texts[0])
			assert.Equal(t, tt.want, n.Text)
		})
	}
}

func TestDeserializeEmptyIsCanonicalEditor(t *testing.T) {
	d := Deserialize("")
	assert.True(t, Equal(NewDocumentWithParagraph(), d))
}

func TestParseReportsReason(t *testing.T) {
	_, err := Parse(`{"nope":true}`)
	assert.ErrorIs(t, err, ErrMissingRoot)

	_, err = Parse(`{"root":{"children":[{"type":"list","listType":"bullet","children":[{"type":"paragraph"}]}]}}`)
	assert.ErrorIs(t, err, ErrInvalidStructure)

	_, err = Parse(`{"root":{"children":[{"type":"heading","tag":"h5","children":[]}]}}`)
	assert.ErrorIs(t, err, ErrInvalidStructure)

	_, err = Parse(`{"root":{"children":[{"type":"paragraph","format":"middle","children":[]}]}}`)
	assert.ErrorIs(t, err, ErrInvalidStructure)
}

func TestParseLexicalEditorState(t *testing.T) {
	content := `{"root":{"children":[
		{"children":[{"detail":0,"format":3,"mode":"normal","style":"color: #F97316;","text":"Hi","type":"text","version":1}],
		 "direction":"ltr","format":"right","indent":0,"type":"paragraph","version":1},
		{"children":[{"children":[{"text":"a","type":"text","format":0}],"type":"listitem","value":1,"checked":false,"version":1}],
		 "listType":"number","start":3,"tag":"ol","type":"list","version":1,"format":"","indent":0},
		{"type":"image","src":"a.png","altText":"A","width":"inherit","height":240,"version":1}
	],"direction":"ltr","format":"","indent":0,"type":"root","version":1}}`

	d, err := Parse(content)
	require.NoError(t, err)

	blocks := d.Children(d.Root())
	require.Len(t, blocks, 3)

	para, _ := d.Get(blocks[0])
	assert.Equal(t, AlignRight, para.ElementFormat)
	assert.Equal(t, "ltr", para.Direction)
	text, _ := d.Get(para.Children[0])
	assert.True(t, text.Format.Has(FormatBold|FormatItalic))
	assert.Equal(t, "#F97316", text.Style.Color)

	list, _ := d.Get(blocks[1])
	assert.True(t, list.Ordered)
	assert.Equal(t, 3, list.Start)

	img, _ := d.Get(blocks[2])
	assert.Equal(t, 0, img.Width)
	assert.Equal(t, 240, img.Height)
}

func TestDocumentJSONMarshalers(t *testing.T) {
	d := buildRichDocument(t)
	data, err := json.Marshal(d)
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equal(d, &back))

	var bad Document
	assert.Error(t, json.Unmarshal([]byte(`{"root":{"children":[{"type":"text"}]}}`), &bad))
}

func TestTextStyleRejectsValuesThatSplitOnReload(t *testing.T) {
	s := TextStyle{}.With(StyleFontFamily, "Georgia").With(StyleColor, "#123456")
	assert.Equal(t, s, ParseTextStyle(s.CSS()))

	for _, bad := range []string{"Arial; color: red", "a:b", `x"y`, "<b>", "{}", `a\b`} {
		assert.False(t, ValidStyleValue(bad), bad)
		assert.Equal(t, s, s.With(StyleFontFamily, bad), bad)
	}
	assert.True(t, ValidStyleValue("'Times New Roman', serif"))
	assert.True(t, ValidStyleValue("rgb(1, 2, 3)"))
}
