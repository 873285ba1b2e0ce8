package toml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Document {
	t.Helper()
	doc, derr := Parse(input)
	require.Nil(t, derr, "unexpected parse error: %v", derr)
	return doc
}

func TestParseBasicDocument(t *testing.T) {
	doc := mustParse(t, `
title = "example"
count = 3

[owner]
name = "fs"
active = true

[owner.details]
ratio = 0.5
`)
	root := doc.Root()
	title, _ := root.Child("title")
	s, ok := title.AsString()
	require.True(t, ok)
	assert.Equal(t, "example", s)

	owner, ok := root.Child("owner")
	require.True(t, ok)
	require.True(t, owner.IsTable())
	details, ok := owner.Child("details")
	require.True(t, ok)
	ratio, ok := details.Child("ratio")
	require.True(t, ok)
	f, _ := ratio.AsFloat()
	assert.Equal(t, 0.5, f)
}

func TestParseJSONProjectionStable(t *testing.T) {
	input := `
a = 1
b = "two"
[t]
c = [true, false]
`
	first, err := mustParse(t, input).JSON()
	require.NoError(t, err)
	second, err := mustParse(t, input).JSON()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.JSONEq(t, `{
		"a": {"type":"integer","value":"1"},
		"b": {"type":"string","value":"two"},
		"t": {"c": [
			{"type":"bool","value":"true"},
			{"type":"bool","value":"false"}
		]}
	}`, string(first))
}

func TestParseDuplicateDottedKey(t *testing.T) {
	_, derr := Parse("a.b = 1\na.b = 2\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-KeyAlreadyInUse", derr.ID)
}

func TestParseDottedKeyThenTableHeader(t *testing.T) {
	// the later definition carries its own source line in the diagnostic
	_, derr := Parse("a.b = 1\n[a]\nb = 2\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-KeyAlreadyInUse", derr.ID)
	require.GreaterOrEqual(t, len(derr.Args), 2)
	assert.Equal(t, "3", derr.Args[0])
	assert.Equal(t, "b", derr.Args[1])
}

func TestParseTableArrayThenSubTable(t *testing.T) {
	doc := mustParse(t, `
[[a.b]]
x = 1

[[a.b]]
x = 2

[a.b.c]
y = 3
`)
	a, _ := doc.Root().Child("a")
	b, ok := a.Child("b")
	require.True(t, ok)
	require.True(t, b.IsTableArray())
	require.Len(t, b.Items(), 2)

	// c lives under the last element of a.b
	last := b.Items()[1]
	c, ok := last.Child("c")
	require.True(t, ok)
	y, ok := c.Child("y")
	require.True(t, ok)
	v, _ := y.AsInt()
	assert.Equal(t, int64(3), v)
	_, ok = b.Items()[0].Child("c")
	assert.False(t, ok)
}

func TestParseRedeclaredTable(t *testing.T) {
	_, derr := Parse("[a]\nx = 1\n[a]\ny = 2\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-ImmutableTable", derr.ID)
}

func TestParseHeaderOverSimpleValue(t *testing.T) {
	_, derr := Parse("a = 1\n[a.b]\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-KeyUsedForSimpleValue", derr.ID)

	_, derr = Parse("a = [1, 2]\n[[a]]\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-KeyUsedForValueArray", derr.ID)
}

func TestParseInlineTable(t *testing.T) {
	doc := mustParse(t, "point = { x = 1, y = 2, label.text = \"p\" }\n")
	point, _ := doc.Root().Child("point")
	require.True(t, point.IsTable())
	x, _ := point.Child("x")
	v, _ := x.AsInt()
	assert.Equal(t, int64(1), v)
	label, ok := point.Child("label")
	require.True(t, ok)
	text, _ := label.Child("text")
	s, _ := text.AsString()
	assert.Equal(t, "p", s)
}

func TestParseInlineTableRules(t *testing.T) {
	// trailing comma forbidden
	_, derr := Parse("t = { a = 1, }\n")
	assert.NotNil(t, derr)

	// line break forbidden
	_, derr = Parse("t = { a = 1,\nb = 2 }\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-InlineTableLineBreak", derr.ID)

	// duplicate key
	_, derr = Parse("t = { a = 1, a = 2 }\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-KeyAlreadyInUse", derr.ID)
}

func TestParseArrays(t *testing.T) {
	doc := mustParse(t, `
plain = [1, 2, 3]
trailing = [1, 2,]
multiline = [
	"a",
	"b",
]
nested = [[1, 2], [3]]
mixed = [{ k = 1 }, { k = 2 }]
`)
	root := doc.Root()
	plain, _ := root.Child("plain")
	require.True(t, plain.IsArray())
	assert.Len(t, plain.Items(), 3)
	trailing, _ := root.Child("trailing")
	assert.Len(t, trailing.Items(), 2)
	multiline, _ := root.Child("multiline")
	assert.Len(t, multiline.Items(), 2)
	nested, _ := root.Child("nested")
	require.Len(t, nested.Items(), 2)
	assert.Len(t, nested.Items()[0].Items(), 2)
	mixed, _ := root.Child("mixed")
	require.Len(t, mixed.Items(), 2)
	assert.True(t, mixed.Items()[0].IsTable())
}

func TestParseArrayLeadingComma(t *testing.T) {
	_, derr := Parse("a = [, 1]\n")
	require.NotNil(t, derr)
	assert.Equal(t, "E-Toml-UnexpectedToken", derr.ID)
}

func TestParseValueTypes(t *testing.T) {
	doc := mustParse(t, `
i = 42
f = 1.5
b = false
s = "str"
d = 2022-01-02
dt = 2022-01-02T03:04:05Z
`)
	root := doc.Root()
	for key, kind := range map[string]Kind{
		"i": KindInteger, "f": KindFloat, "b": KindBoolean,
		"s": KindString, "d": KindDateTime, "dt": KindDateTime,
	} {
		it, ok := root.Child(key)
		require.True(t, ok, key)
		assert.Equal(t, kind, it.Kind(), key)
	}
	d, _ := root.Child("d")
	assert.Equal(t, TypeLocalDate, d.ValueType())
	dt, _ := root.Child("dt")
	assert.Equal(t, TypeOffsetDateTime, dt.ValueType())
}

func TestParseKeyOrderPreserved(t *testing.T) {
	doc := mustParse(t, "z = 1\na = 2\nm = 3\n")
	assert.Equal(t, []string{"z", "a", "m"}, doc.Root().Keys())
}

func TestParseLineNumbers(t *testing.T) {
	doc := mustParse(t, "a = 1\n\n[t]\nb = 2\n")
	a, _ := doc.Root().Child("a")
	assert.Equal(t, 1, a.LineNr())
	tbl, _ := doc.Root().Child("t")
	b, _ := tbl.Child("b")
	assert.Equal(t, 4, b.LineNr())
}
