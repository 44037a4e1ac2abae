package redundancy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
)

const (
	similarityTask      = "checking_content_similarity"
	similarityMaxTokens = 50
)

const similarityPrompt = `Compare these two text elements and determine if they express similar core information, making one redundant in the mindmap.

Text 1 (from %s):
"%s"

Text 2 (from %s):
"%s"

A text is REDUNDANT if ANY of these apply:
1. It conveys the same primary information or main point as the other text
2. It covers the same concept from a similar angle or perspective
3. The semantic meaning overlaps significantly with the other text
4. A reader would find having both entries repetitive or confusing
5. One could be safely removed without losing important information

A text is DISTINCT ONLY if ALL of these apply:
1. It focuses on a clearly different aspect or perspective
2. It provides substantial unique information not present in the other
3. It serves a fundamentally different purpose in context
4. Both entries together provide significantly more value than either alone
5. The conceptual overlap is minimal

When in doubt, mark as REDUNDANT to create a cleaner, more focused mindmap.

Respond with EXACTLY one of these:
REDUNDANT (overlapping information about X)
DISTINCT (different aspect: X)

where X is a very brief explanation.`

// Judge asks the oracle whether two texts are redundant. Anything other than
// an answer starting with DISTINCT, including a failed call, counts as
// redundant.
type Judge struct {
	oracle oracle.Gateway
	log    *slog.Logger
}

func NewJudge(g oracle.Gateway, log *slog.Logger) *Judge {
	return &Judge{oracle: g, log: log}
}

// Redundant compares a and b. ctxA and ctxB describe where each text sits,
// e.g. "topic" or a tree path.
func (j *Judge) Redundant(ctx context.Context, a, b, ctxA, ctxB string) bool {
	prompt := fmt.Sprintf(similarityPrompt, ctxA, a, ctxB, b)
	resp, err := j.oracle.Generate(ctx, oracle.Request{
		Prompt:    prompt,
		MaxTokens: similarityMaxTokens,
		Task:      similarityTask,
	})
	if err != nil {
		j.log.Warn("similarity check failed, treating as redundant", "error", err)
		return true
	}
	redundant := !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(resp)), "DISTINCT")
	j.log.Debug("content comparison",
		"a", truncate(a, 100),
		"b", truncate(b, 100),
		"redundant", redundant,
		"response", strings.TrimSpace(resp),
	)
	return redundant
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
