package chunker

import (
	"strings"
	"testing"
)

func TestSizeFor(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 4000},
		{6000, 4000},
		{9000, 3000},
		{30000, 8000},
	}
	for _, tt := range tests {
		if got := SizeFor(tt.n); got != tt.want {
			t.Errorf("SizeFor(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestSplit_ShortTextFitsOneChunk(t *testing.T) {
	text := "A short document. It has two sentences."
	chunks := Split(text, DefaultOptions(len(text)))

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("expected chunk text %q, got %q", text, chunks[0].Text)
	}
	if chunks[0].Start != 0 || chunks[0].End != len(text) {
		t.Errorf("expected [0,%d), got [%d,%d)", len(text), chunks[0].Start, chunks[0].End)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	if chunks := Split("", DefaultOptions(0)); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestSplit_CoversWholeDocument(t *testing.T) {
	texts := []string{
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 700),
		strings.Repeat("no periods at all here ", 900),
		strings.Repeat("Ünïcödé wörds spän bÿtes. ", 500),
	}
	for i, text := range texts {
		opts := Options{Size: 1000, Overlap: 250, Lookahead: 200}
		chunks := Split(text, opts)
		if len(chunks) < 2 {
			t.Fatalf("text %d: expected multiple chunks, got %d", i, len(chunks))
		}
		if chunks[0].Start != 0 {
			t.Errorf("text %d: first chunk starts at %d", i, chunks[0].Start)
		}
		if last := chunks[len(chunks)-1]; last.End != len(text) {
			t.Errorf("text %d: last chunk ends at %d, want %d", i, last.End, len(text))
		}
		for j, c := range chunks {
			if c.Text == "" {
				t.Errorf("text %d chunk %d is empty", i, j)
			}
			if c.Index != j {
				t.Errorf("text %d chunk %d has index %d", i, j, c.Index)
			}
			if text[c.Start:c.End] != c.Text {
				t.Errorf("text %d chunk %d offsets do not match its text", i, j)
			}
			if j > 0 {
				prev := chunks[j-1]
				if c.Start > prev.End {
					t.Errorf("text %d: gap between chunk %d and %d", i, j-1, j)
				}
				if c.Start <= prev.Start {
					t.Errorf("text %d: chunk %d does not advance", i, j)
				}
			}
		}
	}
}

func TestSplit_SnapsToSentenceEnd(t *testing.T) {
	text := strings.Repeat("x", 1050) + ". tail" + strings.Repeat(" y", 600)
	chunks := Split(text, Options{Size: 1000, Overlap: 100, Lookahead: 200})

	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Errorf("expected first chunk to end at the period, ends with %q", chunks[0].Text[len(chunks[0].Text)-5:])
	}
	if chunks[0].End != 1051 {
		t.Errorf("expected first chunk end 1051, got %d", chunks[0].End)
	}
	if chunks[1].Start != 1051-100 {
		t.Errorf("expected second chunk to start at %d, got %d", 1051-100, chunks[1].Start)
	}
}

func TestSplit_NoSnapBeyondLookahead(t *testing.T) {
	text := strings.Repeat("x", 1500) + "."
	chunks := Split(text, Options{Size: 1000, Overlap: 100, Lookahead: 200})
	if chunks[0].End != 1000 {
		t.Errorf("expected first chunk end 1000, got %d", chunks[0].End)
	}
}

func TestSplit_OverlapLargerThanSizeStillTerminates(t *testing.T) {
	text := strings.Repeat("word ", 400)
	chunks := Split(text, Options{Size: 100, Overlap: 500})
	if len(chunks) == 0 || chunks[len(chunks)-1].End != len(text) {
		t.Fatalf("expected full coverage, got %d chunks", len(chunks))
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("  one two\tthree\nfour "); got != 4 {
		t.Errorf("expected 4 words, got %d", got)
	}
	if got := WordCount(""); got != 0 {
		t.Errorf("expected 0 words, got %d", got)
	}
}
