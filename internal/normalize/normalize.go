// Package normalize recovers JSON arrays and objects from free-form model
// output. Every entry point is total: malformed input degrades to an empty
// value of the requested shape, never to an error.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// Shape is the structure a caller expects back.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

func (s Shape) empty() string {
	if s == ShapeObject {
		return "{}"
	}
	return "[]"
}

// wrapperKeys are object fields searched for an array when a model answers
// {"topics": [...]} instead of a bare array.
var wrapperKeys = []string{"items", "topics", "elements", "data"}

// Array parses raw as a JSON array. The result always satisfies IsArray.
func Array(raw string) gjson.Result {
	return Parse(raw, ShapeArray)
}

// Strings returns the non-empty string elements of the array recovered from
// raw. Objects carrying a name, text or title field contribute that field.
func Strings(raw string) []string {
	var out []string
	for _, el := range Array(raw).Array() {
		var s string
		switch {
		case el.Type == gjson.String:
			s = el.String()
		case el.IsObject():
			for _, k := range []string{"name", "text", "title"} {
				if v := el.Get(k); v.Type == gjson.String {
					s = v.String()
					break
				}
			}
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type step func(string, Shape) string

// ladder is applied in order. A step's output replaces the working text only
// when it is at least as parseable, and the ladder stops as soon as the text
// parses to the requested shape.
var ladder = []step{
	fencedBlock,
	bracketedSpan,
	cleanCharacters,
	escapeInnerQuotes,
	fixSyntax,
}

// Parse runs the repair ladder over raw and returns a result of the requested
// shape.
func Parse(raw string, shape Shape) gjson.Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return gjson.Parse(shape.empty())
	}
	if out, ok := coerce(text, shape); ok {
		return out
	}

	for _, fn := range ladder {
		next := fn(text, shape)
		if score(next, shape) >= score(text, shape) {
			text = next
		}
		if out, ok := coerce(text, shape); ok {
			return out
		}
	}

	if shape == ShapeArray {
		if items := harvest(stripFences(raw)); len(items) > 0 {
			b, _ := json.Marshal(items)
			return gjson.ParseBytes(b)
		}
	}
	return gjson.Parse(shape.empty())
}

// score ranks text by parseability: 2 parses to the shape, 1 is valid JSON of
// another shape, 0 does not parse.
func score(text string, shape Shape) int {
	if _, ok := coerce(text, shape); ok {
		return 2
	}
	if gjson.Valid(text) {
		return 1
	}
	return 0
}

// coerce accepts valid JSON of the requested shape. For arrays a bare object
// is unwrapped through wrapperKeys or wrapped as a one-element array.
func coerce(text string, shape Shape) (gjson.Result, bool) {
	if !gjson.Valid(text) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(text)
	switch shape {
	case ShapeObject:
		return r, r.IsObject()
	default:
		if r.IsArray() {
			return r, true
		}
		if r.IsObject() {
			for _, k := range wrapperKeys {
				if v := r.Get(k); v.IsArray() {
					return v, true
				}
			}
			return gjson.Parse("[" + r.Raw + "]"), true
		}
	}
	return gjson.Result{}, false
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// fencedBlock returns the content of the first fenced block that holds a
// bracket, or the first block when none do.
func fencedBlock(text string, _ Shape) string {
	matches := fenceRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	for _, m := range matches {
		if strings.ContainsAny(m[1], "[{") {
			return m[1]
		}
	}
	return matches[0][1]
}

func stripFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// bracketedSpan cuts text down to the first bracketed span, preferring the
// opener of the requested shape. An unclosed span runs to the end of text
// and is balanced later.
func bracketedSpan(text string, shape Shape) string {
	openers := []byte{'[', '{'}
	if shape == ShapeObject {
		openers = []byte{'{', '['}
	}
	for _, open := range openers {
		if span, ok := spanFrom(text, open); ok {
			return span
		}
	}
	return text
}

func spanFrom(text string, open byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return text[start:], true
}

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// cleanCharacters drops control characters, straightens smart quotes and
// collapses whitespace. Single-quoted JSON is converted to double quotes when
// the text carries no double quotes of its own.
func cleanCharacters(text string, _ Shape) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, text)
	text = smartQuotes.Replace(text)
	if !strings.Contains(text, `"`) && strings.Contains(text, "'") {
		text = strings.ReplaceAll(text, "'", `"`)
	}
	return strings.Join(strings.Fields(text), " ")
}

// escapeInnerQuotes escapes a double quote inside a string value unless the
// next non-space character is structural, in which case it closes the string.
func escapeInnerQuotes(text string, _ Shape) string {
	var b strings.Builder
	b.Grow(len(text) + 8)
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			if closesString(text[i+1:]) {
				inString = false
			} else {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func closesString(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ',', ':', ']', '}':
		return true
	}
	return false
}

var (
	trailingCommaRe  = regexp.MustCompile(`,\s*([\]}])`)
	duplicateCommaRe = regexp.MustCompile(`,\s*,`)
	leadingCommaRe   = regexp.MustCompile(`([\[{])\s*,`)
	bareKeyRe        = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// fixSyntax removes stray commas, quotes bare keys and balances brackets.
func fixSyntax(text string, _ Shape) string {
	for duplicateCommaRe.MatchString(text) {
		text = duplicateCommaRe.ReplaceAllString(text, ",")
	}
	text = trailingCommaRe.ReplaceAllString(text, "$1")
	text = leadingCommaRe.ReplaceAllString(text, "$1")
	text = bareKeyRe.ReplaceAllString(text, `$1"$2":`)
	return balance(text)
}

// balance drops unmatched closers, terminates an open string and appends
// closers for any bracket still open at the end.
func balance(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 4)
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				continue
			}
			stack = stack[:len(stack)-1]
		}
		b.WriteByte(c)
	}
	if inString {
		if escaped {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return trailingCommaRe.ReplaceAllString(b.String(), "$1")
}

var quotedRe = regexp.MustCompile(`"([^"]+)"`)

// harvest is the last resort for arrays: quoted strings first, then one item
// per non-structural line.
func harvest(text string) []string {
	var items []string
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			items = append(items, s)
		}
	}
	if len(items) > 0 {
		return items
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "{") || strings.HasPrefix(line, "}") {
			continue
		}
		line = strings.Trim(line, ",\"'[]{}")
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
