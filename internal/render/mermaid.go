// Package render turns a concept tree into Mermaid mindmap syntax, a
// Markdown outline, a standalone HTML page and plain data exports.
package render

import (
	"regexp"
	"strings"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
)

const (
	indentUnit = "    "
	rootMarker = "((📄))"
)

// Marker is the glyph leading a detail line.
func Marker(i concept.Importance) string {
	switch i {
	case concept.High:
		return "♦️"
	case concept.Medium:
		return "🔸"
	}
	return "🔹"
}

var (
	parens        = strings.NewReplacer("(", "❨", ")", "❩")
	numberPercent = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+percent\b`)
	spacedPercent = regexp.MustCompile(`(?i)\s+percent\b`)
	disallowed    = regexp.MustCompile("[^a-zA-Z0-9\\s\\[\\]{}'_\\-.,`*%\\\\❨❩]")
	backslashes   = regexp.MustCompile(`\\{2,}`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// Escape makes text safe inside a Mermaid node shape. Parentheses become
// ornament stand-ins, "N percent" becomes "N%", characters outside the
// allowed set are dropped and runs of backslashes collapse to one.
func Escape(text string) string {
	text = parens.Replace(text)
	text = numberPercent.ReplaceAllString(text, "$1%")
	text = spacedPercent.ReplaceAllString(text, "%")
	text = disallowed.ReplaceAllString(text, "")
	text = backslashes.ReplaceAllString(text, `\`)
	return text
}

func labelled(n *concept.Node) string {
	name := Escape(n.Name)
	if n.Label != "" && name != "" {
		return n.Label + " " + name
	}
	return name
}

// Mermaid renders t as a Mermaid mindmap. The root is a fixed document
// marker, topics are circles, subtopics rounded boxes and details square
// boxes led by their importance marker.
func Mermaid(t *concept.Tree) string {
	lines := []string{"mindmap", indentUnit + rootMarker}
	for _, topic := range t.Topics() {
		lines = append(lines, strings.Repeat(indentUnit, 2)+"(("+labelled(topic)+"))")
		for _, sub := range topic.Children {
			lines = append(lines, strings.Repeat(indentUnit, 3)+"("+labelled(sub)+")")
			for _, d := range sub.Details {
				lines = append(lines, strings.Repeat(indentUnit, 4)+"["+Marker(d.Importance)+" "+Escape(d.Text)+"]")
			}
		}
	}
	return strings.Join(lines, "\n")
}
