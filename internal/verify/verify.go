// Package verify checks every item of a concept tree against the source
// document and drops what the oracle says cannot be derived from it.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chriscarrollsmith/mindmap-generator/internal/chunker"
	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/rebuild"
)

const (
	task        = "verifying_against_source"
	maxTokens   = 150
	concurrency = 5
)

const prompt = `You are an expert fact-checker verifying if information in a mindmap can be reasonably derived from the original document.

Task: Determine if this %[1]s is supported by the document text or could be reasonably inferred from it.

%[2]s: "%[3]s"
Path: %[4]s

Document chunk:
` + "```" + `
%[5]s
` + "```" + `

VERIFICATION GUIDELINES:
1. The %[1]s can be EXPLICITLY mentioned OR reasonably inferred from the document, even through logical deduction
2. Logical synthesis, interpretation, and summarization of concepts in the document are STRONGLY encouraged
3. Content that represents a reasonable conclusion or implication from the document should be VERIFIED
4. Content that groups, categorizes, or abstracts ideas from the document should be VERIFIED
5. High-level insights that connect multiple concepts from the document should be VERIFIED
6. Only mark as unsupported if it contains specific claims that DIRECTLY CONTRADICT the document
7. GIVE THE BENEFIT OF THE DOUBT - if the content could plausibly be derived from the document, verify it
8. When uncertain, LEAN TOWARDS VERIFICATION rather than rejection - mindmaps are meant to be interpretive, not literal
9. For details specifically, allow for more interpretive latitude - they represent insights derived from the document
10. Consider historical and domain context that would be natural to include in an analysis

Answer ONLY with one of these formats:
- "YES: [brief explanation of how it's supported or can be derived]"
- "NO: [brief explanation of why it contains information that directly contradicts the document]"

IMPORTANT: Remember to be GENEROUS in your interpretation. If there's any reasonable way the content could be derived from the document, even through multiple logical steps, mark it as verified. Only reject content that introduces completely new facts not derivable from the document or directly contradicts it.`

// Verifier grounds trees in their source document.
type Verifier struct {
	oracle    oracle.Gateway
	log       *slog.Logger
	minTopics int
	minRatio  float64
	chunkSize int
}

// New returns a Verifier. When fewer than minTopics topics or less than
// minRatio of all items verify, the result is treated as a grounding failure
// and the tree structure is preserved instead.
func New(g oracle.Gateway, minTopics int, minRatio float64, log *slog.Logger) *Verifier {
	return &Verifier{oracle: g, log: log, minTopics: minTopics, minRatio: minRatio, chunkSize: chunker.VerifySize}
}

// WithChunkSize overrides the source window size. Non-positive sizes are
// ignored.
func (v *Verifier) WithChunkSize(n int) *Verifier {
	if n > 0 {
		v.chunkSize = n
	}
	return v
}

// KindStats counts verified items of one kind.
type KindStats struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
}

// Report summarizes a verification run.
type Report struct {
	Total     int                        `json:"total"`
	Verified  int                        `json:"verified"`
	ByKind    map[concept.Kind]KindStats `json:"by_kind"`
	Preserved bool                       `json:"preserved"`
}

// Ratio is the verified share of all items.
func (r Report) Ratio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Verified) / float64(r.Total)
}

// Verify checks each item against overlapping windows of doc, stopping at the
// first window that supports it. A failed oracle call counts as support. The
// returned tree is never empty: if no topic survives, t is returned.
func (v *Verifier) Verify(ctx context.Context, t *concept.Tree, doc string) (*concept.Tree, Report) {
	items := concept.Flatten(t)
	chunks := chunker.Texts(chunker.Split(doc, chunker.Options{
		Size:      v.chunkSize,
		Overlap:   chunker.DefaultOverlap,
		Lookahead: chunker.DefaultLookahead,
	}))
	v.log.Info("verifying tree against source", "items", len(items), "chunks", len(chunks))

	verified := make(map[concept.ID]bool, len(items))
	var mu sync.Mutex
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, it := range items {
		if it.Kind == concept.KindRoot {
			verified[it.ID] = true
			continue
		}
		eg.Go(func() error {
			ok := v.verifyItem(gctx, it, chunks)
			mu.Lock()
			verified[it.ID] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	report := tally(items, verified)
	v.log.Info("verification results",
		"total", report.Total,
		"verified", report.Verified,
		"ratio", report.Ratio(),
		"topics_verified", report.ByKind[concept.KindTopic].Verified,
	)

	if report.ByKind[concept.KindTopic].Verified < v.minTopics || report.Ratio() < v.minRatio {
		v.log.Warn("verification would remove too much content, preserving structure",
			"topics_verified", report.ByKind[concept.KindTopic].Verified)
		preserve(t, verified)
		report = tally(items, verified)
		report.Preserved = true
	}

	out := rebuild.Verified(t, verified)
	if out == t {
		v.log.Warn("no content remains after verification, keeping unverified tree")
	}
	return out, report
}

func (v *Verifier) verifyItem(ctx context.Context, it concept.ContentItem, chunks []string) bool {
	kind := string(it.Kind)
	path := "root"
	if len(it.Path) > 1 {
		path = strings.Join(it.Path[:len(it.Path)-1], " → ")
	}
	for i, chunk := range chunks {
		resp, err := v.oracle.Generate(ctx, oracle.Request{
			Prompt:    fmt.Sprintf(prompt, kind, titleCase(kind), it.Text, path, chunk),
			MaxTokens: maxTokens,
			Task:      task,
		})
		if err != nil {
			v.log.Warn("verification call failed, treating as verified", "item", it.Text, "error", err)
			return true
		}
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(resp)), "YES") {
			v.log.Debug("verified", "kind", kind, "item", it.Text, "chunk", i+1)
			return true
		}
	}
	v.log.Info("not verified", "kind", kind, "item", it.Text)
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func tally(items []concept.ContentItem, verified map[concept.ID]bool) Report {
	r := Report{ByKind: make(map[concept.Kind]KindStats)}
	for _, it := range items {
		ks := r.ByKind[it.Kind]
		ks.Total++
		r.Total++
		if verified[it.ID] {
			ks.Verified++
			r.Verified++
		}
		r.ByKind[it.Kind] = ks
	}
	delete(r.ByKind, concept.KindRoot)
	return r
}

// preserve marks every topic verified, and every subtopic that owns at least
// one verified detail.
func preserve(t *concept.Tree, verified map[concept.ID]bool) {
	for _, topic := range t.Topics() {
		verified[topic.ID] = true
		for _, sub := range topic.Children {
			for _, d := range sub.Details {
				if verified[d.ID] {
					verified[sub.ID] = true
					break
				}
			}
		}
	}
}
