package render

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
)

// outlineNode is the export shape: names, labels and details without IDs.
type outlineNode struct {
	Name       string          `json:"name" yaml:"name"`
	Label      string          `json:"label,omitempty" yaml:"label,omitempty"`
	Importance string          `json:"importance" yaml:"importance"`
	Children   []outlineNode   `json:"children,omitempty" yaml:"children,omitempty"`
	Details    []outlineDetail `json:"details,omitempty" yaml:"details,omitempty"`
}

type outlineDetail struct {
	Text       string `json:"text" yaml:"text"`
	Importance string `json:"importance" yaml:"importance"`
}

func outline(n *concept.Node) outlineNode {
	out := outlineNode{Name: n.Name, Label: n.Label, Importance: string(n.Importance)}
	for _, c := range n.Children {
		out.Children = append(out.Children, outline(c))
	}
	for _, d := range n.Details {
		out.Details = append(out.Details, outlineDetail{Text: d.Text, Importance: string(d.Importance)})
	}
	return out
}

// JSON exports t as indented JSON.
func JSON(t *concept.Tree) (string, error) {
	b, err := json.MarshalIndent(outline(t.Root), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

// YAML exports t as a YAML document.
func YAML(t *concept.Tree) (string, error) {
	b, err := yaml.Marshal(outline(t.Root))
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	return string(b), nil
}

// Format names an output the service and CLI can produce.
type Format string

const (
	FormatMermaid  Format = "mermaid"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists every output in a stable order.
var Formats = []Format{FormatMermaid, FormatMarkdown, FormatHTML, FormatJSON, FormatYAML}

// Extension is the file suffix used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case FormatMermaid:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	}
	return ""
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "text/plain; charset=utf-8"
}

// All renders every format. The title is used by the HTML page.
func All(t *concept.Tree, title string) (map[Format]string, error) {
	mermaid := Mermaid(t)
	doc, err := HTML(mermaid, title)
	if err != nil {
		return nil, err
	}
	js, err := JSON(t)
	if err != nil {
		return nil, err
	}
	ym, err := YAML(t)
	if err != nil {
		return nil, err
	}
	return map[Format]string{
		FormatMermaid:  mermaid,
		FormatMarkdown: Markdown(t),
		FormatHTML:     doc,
		FormatJSON:     js,
		FormatYAML:     ym,
	}, nil
}
