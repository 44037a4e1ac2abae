package render

import (
	"strings"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
)

// Markdown renders t as an outline: a heading per topic, a subheading per
// subtopic and one paragraph per detail carrying its marker.
func Markdown(t *concept.Tree) string {
	var sb strings.Builder
	for _, topic := range t.Topics() {
		sb.WriteString("# " + labelled(topic) + "\n\n")
		for _, sub := range topic.Children {
			sb.WriteString("## " + labelled(sub) + "\n\n")
			for _, d := range sub.Details {
				sb.WriteString(Marker(d.Importance) + " " + Escape(d.Text) + "\n\n")
			}
		}
		sb.WriteString("\n")
	}
	out := blankLineRuns.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out)
}
