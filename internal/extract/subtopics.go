package extract

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/normalize"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/redundancy"
)

// Subtopics extracts up to MaxSubtopics subtopics of topic from every chunk
// of doc. hit reports a cache answer, in which case no call was made.
func (e *Extractor) Subtopics(ctx context.Context, doc *Document, dt DocType, topic string) (names []string, hit bool) {
	key := Key{Scope: "subtopics", Hash: HashOf(doc.Hash, string(dt), topic)}
	if cached, ok := e.subtopics.Get(key); ok {
		return append([]string(nil), cached...), true
	}

	perChunk := fanOut(ctx, e.opts.Concurrency, doc.Chunks, func(ctx context.Context, chunk string) []string {
		resp, err := e.oracle.Generate(ctx, oracle.Request{
			Prompt:    subtopicsPrompt(dt, topic, chunk),
			MaxTokens: listMaxTokens,
			Task:      "extracting_subtopics_" + topic,
		})
		if err != nil {
			e.log.Error("extracting subtopics from chunk", "topic", topic, "error", err)
			return nil
		}
		return lexicalDedup(cleanNames(normalize.Strings(resp)))
	}, nil)

	var all []string
	for _, names := range perChunk {
		for _, n := range names {
			if !redundancy.SimilarToAny(n, all, concept.KindSubtopic) {
				all = append(all, n)
			}
		}
	}
	if len(all) == 0 {
		e.log.Warn("no subtopics extracted", "topic", topic)
		return nil, false
	}

	names = e.consolidateSubtopics(ctx, topic, all)
	names = e.tailSemanticDedup(ctx, names, "subtopic of "+topic, e.opts.MinSubtopics)
	if len(names) > e.opts.MaxSubtopics {
		names = names[:e.opts.MaxSubtopics]
	}
	e.log.Info("subtopics extracted", "topic", topic, "count", len(names), "candidates", len(all))
	e.subtopics.Add(key, names)
	return append([]string(nil), names...), false
}

// consolidateSubtopics asks the oracle to merge names into a few distinct
// subtopics. On failure the longest distinct names are kept.
func (e *Extractor) consolidateSubtopics(ctx context.Context, topic string, names []string) []string {
	resp, err := e.oracle.Generate(ctx, oracle.Request{
		Prompt:    consolidateSubtopicsPrompt(topic, names),
		MaxTokens: listMaxTokens,
		Task:      "consolidate_subtopics_" + topic,
	})
	if err == nil {
		if merged := lexicalDedup(cleanNames(normalize.Strings(resp))); len(merged) > 0 {
			return merged
		}
		e.log.Warn("subtopic consolidation returned nothing usable", "topic", topic)
	} else {
		e.log.Error("consolidating subtopics", "topic", topic, "error", err)
	}

	out := dedupExactFold(names)
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	if len(out) > e.opts.MaxSubtopics {
		out = out[:e.opts.MaxSubtopics]
	}
	return out
}

// lexicalDedup drops subtopic names lexically redundant with an earlier one.
func lexicalDedup(names []string) []string {
	var out []string
	for _, n := range names {
		if !redundancy.SimilarToAny(n, out, concept.KindSubtopic) {
			out = append(out, n)
		}
	}
	return out
}
