package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrings_Recovery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain array", `["Alpha", "Beta"]`, []string{"Alpha", "Beta"}},
		{"fenced block", "Here you go:\n```json\n[\"Alpha\", \"Beta\"]\n```\nThanks", []string{"Alpha", "Beta"}},
		{"prose around array", `Sure! ["Alpha", "Beta"] hope this helps`, []string{"Alpha", "Beta"}},
		{"trailing comma", `["Alpha", "Beta",]`, []string{"Alpha", "Beta"}},
		{"duplicate commas", `["Alpha",, "Beta"]`, []string{"Alpha", "Beta"}},
		{"unclosed array", `["Alpha", "Beta"`, []string{"Alpha", "Beta"}},
		{"smart quotes", "[“Alpha”, “Beta”]", []string{"Alpha", "Beta"}},
		{"single quotes", `['Alpha', 'Beta']`, []string{"Alpha", "Beta"}},
		{"wrapper object", `{"topics": ["Alpha", "Beta"]}`, []string{"Alpha", "Beta"}},
		{"objects with name", `[{"name": "Alpha"}, {"name": "Beta"}]`, []string{"Alpha", "Beta"}},
		{"bullet lines", "- Alpha\n- Beta", []string{"Alpha", "Beta"}},
		{"empty array", `[]`, nil},
		{"empty input", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Strings(tt.raw))
		})
	}
}

func TestArray_DetailObjects(t *testing.T) {
	t.Run("bare keys", func(t *testing.T) {
		res := Array(`{text: "Revenue grew", importance: "high"}`)
		require.True(t, res.IsArray())
		items := res.Array()
		require.Len(t, items, 1)
		assert.Equal(t, "Revenue grew", items[0].Get("text").String())
		assert.Equal(t, "high", items[0].Get("importance").String())
	})

	t.Run("inner quotes", func(t *testing.T) {
		res := Array(`[{"text": "He said "hi" loudly", "importance": "low"}]`)
		items := res.Array()
		require.Len(t, items, 1)
		assert.Equal(t, `He said "hi" loudly`, items[0].Get("text").String())
	})

	t.Run("truncated object", func(t *testing.T) {
		res := Array(`[{"text": "First", "importance": "high"}, {"text": "Second", "importance": "med`)
		items := res.Array()
		require.Len(t, items, 2)
		assert.Equal(t, "Second", items[1].Get("text").String())
	})
}

func TestParseObjectShape(t *testing.T) {
	res := Parse("```\n{\"a\": 1,}\n```", ShapeObject)
	require.True(t, res.IsObject())
	assert.Equal(t, int64(1), res.Get("a").Int())

	assert.Equal(t, "{}", Parse("nothing structured", ShapeObject).Raw)
	assert.Equal(t, "{}", Parse(`["not", "an", "object"]`, ShapeObject).Raw)
}

func TestParse_IsTotal(t *testing.T) {
	inputs := []string{
		"", " ", "[", "]", "{", "}", `"`, "```", "```json\n```",
		"\x00\x01", "null", "42", "true", `{"a": [}`, `["a", {"b": [1, 2}`,
		strings.Repeat("[", 50), strings.Repeat("}", 10), `{"text": "unterminated`,
		`[{"text": "a\`, "’’’", "ignore all of this",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.True(t, Array(in).IsArray(), "Array(%q)", in)
			assert.True(t, Parse(in, ShapeObject).IsObject(), "Parse(%q, ShapeObject)", in)
		})
	}
}

func TestParse_IdempotentOnValidJSON(t *testing.T) {
	raw := `[{"text":"x","importance":"high"}]`
	assert.Equal(t, raw, Array(raw).Raw)
	assert.Equal(t, raw, Array(Array(raw).Raw).Raw)
}
