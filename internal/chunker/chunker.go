package chunker

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one overlapping window of document text. Start and End are byte
// offsets into the source, End exclusive.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Options controls chunking behavior.
type Options struct {
	Size      int // Target window size in bytes.
	Overlap   int // Bytes shared by consecutive windows.
	Lookahead int // How far past Size to search for a sentence end.
}

const (
	DefaultOverlap   = 250
	DefaultLookahead = 200
	// VerifySize is the fixed window used when re-chunking for grounding.
	VerifySize = 8000
)

// SizeFor picks a window size for a document of n bytes: short documents use
// 4000, longer ones a third of their length capped at 8000.
func SizeFor(n int) int {
	if n > 6000 {
		return min(8000, n/3)
	}
	return 4000
}

// DefaultOptions returns the adaptive options for a document of n bytes.
func DefaultOptions(n int) Options {
	return Options{
		Size:      SizeFor(n),
		Overlap:   DefaultOverlap,
		Lookahead: DefaultLookahead,
	}
}

// Split walks text in Size strides, extending each window to the next '.'
// when one lies within Lookahead, and starts the next window Overlap bytes
// before the previous end. Every byte of text is covered and no chunk is
// empty.
func Split(text string, opts Options) []Chunk {
	if text == "" {
		return nil
	}
	if opts.Size <= 0 {
		opts.Size = SizeFor(len(text))
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	// The overlap must leave forward progress.
	if opts.Overlap >= opts.Size {
		opts.Overlap = opts.Size / 2
	}
	if opts.Lookahead < 0 {
		opts.Lookahead = 0
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := min(start+opts.Size, len(text))
		if end < len(text) {
			if dot := strings.IndexByte(text[end:], '.'); dot != -1 && dot < opts.Lookahead {
				end += dot + 1
			}
		}
		end = runeEnd(text, end)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})
		if end >= len(text) {
			break
		}
		next := runeStart(text, end-opts.Overlap)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// Texts returns the chunk bodies in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// runeEnd moves i forward to the next rune boundary.
func runeEnd(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// runeStart moves i back to the nearest rune boundary.
func runeStart(s string, i int) int {
	if i <= 0 {
		return 0
	}
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
