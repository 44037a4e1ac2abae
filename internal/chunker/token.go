package chunker

import "strings"

// WordCount counts whitespace-separated words, the unit the completion
// budget is expressed in.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
