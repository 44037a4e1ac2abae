package loader

import (
	"strings"
	"testing"
)

func TestMarkdown_HeadingHierarchy(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := Markdown{}
	doc, err := p.Load(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", doc.Title)
	}

	// Top-level: one h1 ("Title")
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 top-level section (h1), got %d", len(doc.Sections))
	}

	h1 := doc.Sections[0]
	if h1.Heading != "Title" {
		t.Errorf("expected h1 heading %q, got %q", "Title", h1.Heading)
	}

	// h1 should have "Intro text." as its text content
	if !strings.Contains(h1.Text, "Intro text.") {
		t.Errorf("expected h1 text to contain %q, got %q", "Intro text.", h1.Text)
	}

	// h1 has two h2 sections: "Section A" and "Section B"
	if len(h1.Children) != 2 {
		t.Fatalf("expected 2 h2 sections, got %d", len(h1.Children))
	}

	secA := h1.Children[0]
	if secA.Heading != "Section A" {
		t.Errorf("expected %q, got %q", "Section A", secA.Heading)
	}
	if !strings.Contains(secA.Text, "Section A content.") {
		t.Errorf("expected section A text to contain %q, got %q", "Section A content.", secA.Text)
	}

	// Section A has one h3 child
	if len(secA.Children) != 1 {
		t.Fatalf("expected 1 h3 section under Section A, got %d", len(secA.Children))
	}
	sub := secA.Children[0]
	if sub.Heading != "Subsection A1" {
		t.Errorf("expected %q, got %q", "Subsection A1", sub.Heading)
	}

	secB := h1.Children[1]
	if secB.Heading != "Section B" {
		t.Errorf("expected %q, got %q", "Section B", secB.Heading)
	}
}

func TestMarkdown_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := Markdown{}
	doc, err := p.Load(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No headings: all text should be collected into a single section node.
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section for headingless markdown, got %d", len(doc.Sections))
	}

	text := doc.Sections[0].Text
	if !strings.Contains(text, "Just some plain text.") {
		t.Errorf("expected text to contain first paragraph, got %q", text)
	}
	if !strings.Contains(text, "Another paragraph here.") {
		t.Errorf("expected text to contain second paragraph, got %q", text)
	}
}

func TestMarkdown_MixedContentWithCodeBlocks(t *testing.T) {
	input := "# API Reference\n\nSome intro.\n\n## Endpoints\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := Markdown{}
	doc, err := p.Load(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should have one h1 child
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 top-level child, got %d", len(doc.Sections))
	}

	h1 := doc.Sections[0]
	if h1.Heading != "API Reference" {
		t.Errorf("expected title %q, got %q", "API Reference", h1.Heading)
	}

	// h1 has one h2 child: "Endpoints"
	if len(h1.Children) != 1 {
		t.Fatalf("expected 1 h2 child, got %d", len(h1.Children))
	}

	endpoints := h1.Children[0]
	if endpoints.Heading != "Endpoints" {
		t.Errorf("expected title %q, got %q", "Endpoints", endpoints.Heading)
	}

	// The endpoints section should contain the code block content
	if !strings.Contains(endpoints.Text, "GET /api/users") {
		t.Errorf("expected code block content in text, got %q", endpoints.Text)
	}
	if !strings.Contains(endpoints.Text, "More text after code.") {
		t.Errorf("expected post-code text, got %q", endpoints.Text)
	}
}

func TestMarkdown_EmptyInput(t *testing.T) {
	p := Markdown{}
	doc, err := p.Load(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 0 {
		t.Errorf("expected 0 sections for empty input, got %d", len(doc.Sections))
	}
}

func TestMarkdown_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"plain.md", "plain"},
	}
	p := Markdown{}
	for _, tt := range tests {
		doc, err := p.Load(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if doc.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, doc.Title)
		}
	}
}
