package redundancy

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/rebuild"
)

const (
	// DefaultBatchSize is how many flattened items the final pass compares at once.
	DefaultBatchSize = 25

	earlyConcurrency = 3
	crossConcurrency = 10
	minConfidence    = 0.8
	minLengthRatio   = 0.5
)

// Engine applies lexical and semantic redundancy checks to name lists and
// trees.
type Engine struct {
	judge *Judge
	log   *slog.Logger
}

func NewEngine(g oracle.Gateway, log *slog.Logger) *Engine {
	return &Engine{judge: NewJudge(g, log), log: log}
}

// Judge exposes the semantic comparator for per-level passes.
func (e *Engine) Judge() *Judge { return e.judge }

// DedupNames is the early check run on freshly extracted topic or subtopic
// names. Lexical duplicates go first, the longer name of a pair taking the
// earlier one's place. When more than three names remain and the lexical
// pass removed less than a fifth, every pair is also judged semantically and
// the shorter name of a redundant pair is dropped. scope names the parent,
// e.g. the topic a list of subtopics belongs to.
func (e *Engine) DedupNames(ctx context.Context, names []string, kind concept.Kind, scope string) []string {
	if len(names) <= 1 {
		return names
	}
	var unique []string
	for _, n := range names {
		k := indexSimilar(n, unique, kind)
		switch {
		case k < 0:
			unique = append(unique, n)
		case len([]rune(n)) > len([]rune(unique[k])):
			unique[k] = n
		}
	}

	if len(unique) > 3 && float64(len(unique)) > float64(len(names))*0.8 {
		unique = e.semanticNames(ctx, unique, kind, scope)
	}

	if removed := len(names) - len(unique); removed > 0 {
		e.log.Info("early redundancy check",
			"kind", kind,
			"removed", removed,
			"reduction_pct", float64(removed)/float64(len(names))*100,
		)
	}
	return unique
}

func (e *Engine) semanticNames(ctx context.Context, names []string, kind concept.Kind, scope string) []string {
	label := string(kind)
	if scope != "" {
		label = label + " of " + scope
	}

	var (
		mu        sync.Mutex
		redundant = make(map[int]bool)
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(earlyConcurrency)
	for i := 0; i < len(names)-1; i++ {
		for j := i + 1; j < len(names); j++ {
			eg.Go(func() error {
				mu.Lock()
				skip := redundant[i] || redundant[j]
				mu.Unlock()
				if skip || ctx.Err() != nil {
					return nil
				}
				if !e.judge.Redundant(ctx, names[i], names[j], label, label) {
					return nil
				}
				drop, keep := i, j
				if len([]rune(names[i])) > len([]rune(names[j])) {
					drop, keep = j, i
				}
				mu.Lock()
				defer mu.Unlock()
				if !redundant[drop] && !redundant[keep] {
					redundant[drop] = true
					e.log.Info("redundant name", "kind", kind, "removed", names[drop], "kept", names[keep])
				}
				return nil
			})
		}
	}
	_ = eg.Wait()

	out := make([]string, 0, len(names))
	for i, n := range names {
		if !redundant[i] {
			out = append(out, n)
		}
	}
	return out
}

// loser picks which of two redundant items to drop: the lower importance,
// then the deeper path, otherwise b.
func loser(items []concept.ContentItem, a, b int) int {
	ra, rb := items[a].Importance.Rank(), items[b].Importance.Rank()
	if rb > ra || (rb == ra && items[b].Depth() < items[a].Depth()) {
		return a
	}
	return b
}

// DedupExact returns the indices of items whose normalized text repeats an
// earlier item. Which copy survives follows loser. Running it on its own
// survivors removes nothing.
func DedupExact(items []concept.ContentItem) map[int]bool {
	removed := make(map[int]bool)
	norm := normalizeAll(items)
	for i := range items {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if removed[j] || norm[i] != norm[j] {
				continue
			}
			drop := loser(items, i, j)
			removed[drop] = true
			if drop == i {
				break
			}
		}
	}
	return removed
}

func normalizeAll(items []concept.ContentItem) []string {
	norm := make([]string, len(items))
	for i, it := range items {
		norm[i] = Normalize(it.Text)
	}
	return norm
}

// Duplicate is a semantically redundant pair with its lexical confidence.
type Duplicate struct {
	A, B       int
	Confidence float64
}

// Confidence blends three lexical scores of two normalized texts into 0..1.
func Confidence(a, b string) float64 {
	return float64(Ratio(a, b))/100*0.4 +
		float64(TokenSortRatio(a, b))/100*0.3 +
		float64(TokenSetRatio(a, b))/100*0.3
}

// CrossBatch finds redundant items within one batch of flattened content and
// returns their IDs. Exact duplicates are resolved without the oracle. Other
// pairs of comparable length are judged semantically, and a redundant
// verdict only counts when its lexical confidence exceeds 0.8. Candidates are
// applied from most to least confident, skipping pairs already touched.
// The root is never removed.
func (e *Engine) CrossBatch(ctx context.Context, items []concept.ContentItem) map[concept.ID]bool {
	removed := DedupExact(items)
	norm := normalizeAll(items)

	var (
		mu         sync.Mutex
		candidates []Duplicate
		compared   int
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(crossConcurrency)
	for i := 0; i < len(items); i++ {
		if items[i].Kind == concept.KindRoot || removed[i] {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if items[j].Kind == concept.KindRoot || removed[j] || norm[i] == norm[j] {
				continue
			}
			li, lj := len([]rune(norm[i])), len([]rune(norm[j]))
			if li == 0 || lj == 0 || float64(min(li, lj))/float64(max(li, lj)) < minLengthRatio {
				continue
			}
			compared++
			eg.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				a, b := items[i], items[j]
				if !e.judge.Redundant(gctx, a.Text, b.Text, a.PathString(), b.PathString()) {
					return nil
				}
				conf := Confidence(norm[i], norm[j])
				if conf <= minConfidence {
					return nil
				}
				mu.Lock()
				candidates = append(candidates, Duplicate{A: i, B: j, Confidence: conf})
				mu.Unlock()
				return nil
			})
		}
	}
	_ = eg.Wait()

	sort.Slice(candidates, func(x, y int) bool {
		cx, cy := candidates[x], candidates[y]
		if cx.Confidence != cy.Confidence {
			return cx.Confidence > cy.Confidence
		}
		if cx.A != cy.A {
			return cx.A < cy.A
		}
		return cx.B < cy.B
	})
	for _, c := range candidates {
		if removed[c.A] || removed[c.B] {
			continue
		}
		drop := loser(items, c.A, c.B)
		keep := c.A + c.B - drop
		removed[drop] = true
		e.log.Info("removing redundant content",
			"kept", truncate(items[keep].Text, 100),
			"removed", truncate(items[drop].Text, 100),
			"confidence", c.Confidence,
		)
	}

	e.log.Info("batch redundancy complete", "items", len(items), "comparisons", compared, "removed", len(removed))
	ids := make(map[concept.ID]bool, len(removed))
	for i := range removed {
		if items[i].Kind != concept.KindRoot {
			ids[items[i].ID] = true
		}
	}
	return ids
}

// FinalPass removes redundant content across the whole tree. Items are
// flattened depth first and compared in batches of batchSize. The result is
// rebuilt from the surviving IDs and falls back to t when nothing would
// remain.
func (e *Engine) FinalPass(ctx context.Context, t *concept.Tree, batchSize int) *concept.Tree {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var items []concept.ContentItem
	for _, it := range concept.Flatten(t) {
		if it.Kind != concept.KindRoot {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return t
	}

	removed := make(map[concept.ID]bool)
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		for id := range e.CrossBatch(ctx, items[start:end]) {
			removed[id] = true
		}
	}
	if len(removed) == 0 {
		return t
	}

	keep := rebuild.AllIDs(t)
	for id := range removed {
		delete(keep, id)
	}
	out := rebuild.Keep(t, keep)
	e.log.Info("final redundancy pass complete",
		"items_before", len(items),
		"removed", len(removed),
		"items_after", out.Count()-1,
	)
	return out
}
