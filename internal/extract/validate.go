package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
)

// DetailItem is one extracted detail before it is placed in a tree.
type DetailItem struct {
	Text       string             `json:"text"`
	Importance concept.Importance `json:"importance"`
}

const maxDetailLen = 500

// ValidateDetail checks one element of a details array. It must be an object
// with non-empty text of at most 500 characters and an importance of high,
// medium or low in any casing.
func ValidateDetail(el gjson.Result) (DetailItem, bool) {
	if !el.IsObject() {
		return DetailItem{}, false
	}
	text := strings.TrimSpace(el.Get("text").String())
	if text == "" || utf8.RuneCountInString(text) > maxDetailLen {
		return DetailItem{}, false
	}
	imp, ok := concept.ParseImportance(el.Get("importance").String())
	if !ok {
		return DetailItem{}, false
	}
	return DetailItem{Text: text, Importance: imp}, true
}

// ValidateDetails keeps the valid elements of a details array in order.
func ValidateDetails(arr gjson.Result) []DetailItem {
	var out []DetailItem
	for _, el := range arr.Array() {
		if d, ok := ValidateDetail(el); ok {
			out = append(out, d)
		}
	}
	return out
}
