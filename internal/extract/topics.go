package extract

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/normalize"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/redundancy"
)

const (
	topicsTask      = "extracting_main_topics"
	consolidateTask = "consolidating_topics"
	listMaxTokens   = 1000
	// maxUniqueTopics stops the frequency merge early.
	maxUniqueTopics = 12
	// consolidateAbove is the candidate count that triggers a consolidation call.
	consolidateAbove = 6
)

// candidate is a topic name seen in one or more chunks.
type candidate struct {
	name  string
	freq  int
	first int
}

// Topics extracts between MinTopics and MaxTopics main topics from the first
// MaxTopicChunks chunks of doc. It returns nil when no chunk yields a topic.
func (e *Extractor) Topics(ctx context.Context, doc *Document, dt DocType) []string {
	key := Key{Scope: "topics", Hash: HashOf(doc.Hash, string(dt))}
	if cached, ok := e.topics.Get(key); ok {
		return append([]string(nil), cached...)
	}

	chunks := doc.Chunks
	if len(chunks) > e.opts.MaxTopicChunks {
		chunks = chunks[:e.opts.MaxTopicChunks]
	}
	perChunk := fanOut(ctx, e.opts.Concurrency, chunks, func(ctx context.Context, chunk string) []string {
		resp, err := e.oracle.Generate(ctx, oracle.Request{
			Prompt:    topicsPrompt(dt, chunk),
			MaxTokens: listMaxTokens,
			Task:      topicsTask,
		})
		if err != nil {
			e.log.Error("extracting topics from chunk", "error", err)
			return nil
		}
		return cleanNames(normalize.Strings(resp))
	}, func(done [][]string) bool {
		return e.enoughTopics(e.mergeByFrequency(done))
	})

	candidates := e.mergeByFrequency(perChunk)
	if len(candidates) == 0 {
		e.log.Warn("no topics extracted from any chunk")
		return nil
	}

	ranked := make([]string, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.name
	}
	input := ranked
	if len(ranked) > consolidateAbove {
		if merged := e.consolidateTopics(ctx, ranked); len(merged) >= e.opts.MinTopics {
			input = merged
		}
	}

	var selected []string
	for _, name := range input {
		if len(selected) >= e.opts.MaxTopics {
			break
		}
		if !redundancy.SimilarToAny(name, selected, concept.KindTopic) {
			selected = append(selected, name)
		}
	}
	for _, name := range ranked {
		if len(selected) >= e.opts.MinTopics {
			break
		}
		if !containsFold(selected, name) {
			selected = append(selected, name)
		}
	}

	selected = e.tailSemanticDedup(ctx, selected, "main topic", e.opts.MinTopics)
	e.log.Info("topics extracted", "count", len(selected), "candidates", len(candidates))
	e.topics.Add(key, selected)
	return append([]string(nil), selected...)
}

// mergeByFrequency folds per-chunk names in chunk order into candidates
// ranked by frequency then first appearance. A name lexically redundant with
// a known candidate counts towards it. Merging stops once enough distinct
// topics are known or they recur often enough on average.
func (e *Extractor) mergeByFrequency(perChunk [][]string) []candidate {
	var (
		out     []candidate
		byLower = make(map[string]int)
		seen    int
	)
	for _, names := range perChunk {
		for _, name := range names {
			lower := strings.ToLower(name)
			idx, ok := byLower[lower]
			if !ok {
				idx = -1
				for i := range out {
					if redundancy.IsRedundant(name, out[i].name, concept.KindTopic) {
						idx = i
						break
					}
				}
			}
			if idx >= 0 {
				out[idx].freq++
				byLower[lower] = idx
			} else {
				byLower[lower] = len(out)
				out = append(out, candidate{name: name, freq: 1, first: seen})
			}
			seen++
		}
		if e.enoughTopics(out) {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].freq != out[j].freq {
			return out[i].freq > out[j].freq
		}
		return out[i].first < out[j].first
	})
	return out
}

func (e *Extractor) enoughTopics(c []candidate) bool {
	if len(c) >= maxUniqueTopics {
		return true
	}
	if len(c) < e.opts.MinTopics {
		return false
	}
	total := 0
	for _, x := range c {
		total += x.freq
	}
	return float64(total)/float64(len(c)) >= e.opts.FrequencyThreshold
}

func (e *Extractor) consolidateTopics(ctx context.Context, names []string) []string {
	resp, err := e.oracle.Generate(ctx, oracle.Request{
		Prompt:    consolidateTopicsPrompt(names, e.opts.MinTopics, e.opts.MaxTopics),
		MaxTokens: listMaxTokens,
		Task:      consolidateTask,
	})
	if err != nil {
		e.log.Error("consolidating topics", "error", err)
		return nil
	}
	merged := cleanNames(normalize.Strings(resp))
	e.log.Info("topics consolidated", "before", len(names), "after", len(merged))
	return merged
}

// tailSemanticDedup walks names from the end and drops each one the judge
// finds redundant with an earlier name, never going below floor.
func (e *Extractor) tailSemanticDedup(ctx context.Context, names []string, label string, floor int) []string {
	out := append([]string(nil), names...)
	for i := len(out) - 1; i > 0; i-- {
		if len(out) <= floor || ctx.Err() != nil {
			break
		}
		for j := 0; j < i; j++ {
			if e.judge.Redundant(ctx, out[i], out[j], label, label) {
				e.log.Info("dropping redundant name", "removed", out[i], "kept", out[j])
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}

// fanOut runs fn over chunks with bounded concurrency and returns the
// results in chunk order. Chunks are issued in waves: the first holds one
// chunk and each next wave doubles, up to limit. After every wave enough is
// asked whether the results so far suffice; if so the remaining chunks are
// never issued and their results stay nil. A nil enough issues every chunk
// at once.
func fanOut[T any](ctx context.Context, limit int, chunks []string, fn func(context.Context, string) []T, enough func([][]T) bool) [][]T {
	out := make([][]T, len(chunks))
	limit = max(limit, 1)
	wave := 1
	if enough == nil {
		wave = len(chunks)
	}
	for start := 0; start < len(chunks) && ctx.Err() == nil; {
		end := min(start+wave, len(chunks))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(limit)
		for i := start; i < end; i++ {
			eg.Go(func() error {
				out[i] = fn(egCtx, chunks[i])
				return nil
			})
		}
		_ = eg.Wait()
		start = end
		if enough != nil && enough(out[:end]) {
			break
		}
		wave = min(wave*2, limit)
	}
	return out
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
