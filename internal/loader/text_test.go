package loader

import (
	"strings"
	"testing"
)

func TestPlainText_Paragraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"split on blank line", "Line one.\nLine two.\n\nSecond.\n\nThird.", []string{"Line one.\nLine two.", "Second.", "Third."}},
		{"single line", "Hello world", []string{"Hello world"}},
		{"repeated blank lines", "Para one.\n\n\n\nPara two.", []string{"Para one.", "Para two."}},
		{"whitespace-only separator", "Para one.\n   \nPara two.", []string{"Para one.", "Para two."}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := PlainText{}.Load(strings.NewReader(tt.input), "notes.txt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.Title != "notes" {
				t.Errorf("expected title %q, got %q", "notes", doc.Title)
			}
			if len(doc.Sections) != len(tt.want) {
				t.Fatalf("expected %d sections, got %d", len(tt.want), len(doc.Sections))
			}
			for i, w := range tt.want {
				if doc.Sections[i].Text != w {
					t.Errorf("section[%d]: expected %q, got %q", i, w, doc.Sections[i].Text)
				}
			}
		})
	}
}
