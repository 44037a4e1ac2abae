package extract

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/normalize"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/redundancy"
)

const detailMaxTokens = 2000

// Details extracts up to MaxDetails details supporting subtopic of topic.
// No further chunk wave is issued once MinValidDetails valid details are in
// hand. hit reports a cache answer.
func (e *Extractor) Details(ctx context.Context, doc *Document, dt DocType, topic, subtopic string) (items []DetailItem, hit bool) {
	key := Key{Scope: "details", Hash: HashOf(doc.Hash, string(dt), topic, subtopic)}
	if cached, ok := e.details.Get(key); ok {
		return append([]DetailItem(nil), cached...), true
	}

	perChunk := fanOut(ctx, e.opts.Concurrency, doc.Chunks, func(ctx context.Context, chunk string) []DetailItem {
		resp, err := e.oracle.Generate(ctx, oracle.Request{
			Prompt:    detailsPrompt(dt, subtopic, chunk),
			MaxTokens: detailMaxTokens,
			Task:      "extracting_details_" + subtopic,
		})
		if err != nil {
			e.log.Error("extracting details from chunk", "subtopic", subtopic, "error", err)
			return nil
		}
		return ValidateDetails(normalize.Array(resp))
	}, func(done [][]DetailItem) bool {
		n := 0
		for _, items := range done {
			n += len(items)
		}
		return n >= e.opts.MinValidDetails
	})

	var all []DetailItem
	for _, chunkItems := range perChunk {
		for _, d := range chunkItems {
			if k := indexSimilarDetail(d.Text, all); k >= 0 {
				if d.Importance.Rank() > all[k].Importance.Rank() {
					all[k] = d
				}
				continue
			}
			all = append(all, d)
		}
	}
	if len(all) == 0 {
		e.log.Warn("no details extracted", "topic", topic, "subtopic", subtopic)
		return nil, false
	}

	items = e.consolidateDetails(ctx, subtopic, all)
	items = e.forwardSemanticDedup(ctx, items, "detail of "+subtopic, e.opts.MinDetails)
	sortDetails(items)
	if len(items) > e.opts.MaxDetails {
		items = items[:e.opts.MaxDetails]
	}
	e.log.Info("details extracted", "subtopic", subtopic, "count", len(items), "candidates", len(all))
	e.details.Add(key, items)
	return append([]DetailItem(nil), items...), false
}

func indexSimilarDetail(text string, items []DetailItem) int {
	for i, d := range items {
		if redundancy.IsRedundant(text, d.Text, concept.KindDetail) {
			return i
		}
	}
	return -1
}

// consolidateDetails asks the oracle to merge overlapping details. On failure
// the exact-deduplicated input is kept.
func (e *Extractor) consolidateDetails(ctx context.Context, subtopic string, items []DetailItem) []DetailItem {
	texts := make([]string, len(items))
	for i, d := range items {
		texts[i] = d.Text
	}
	resp, err := e.oracle.Generate(ctx, oracle.Request{
		Prompt:    consolidateDetailsPrompt(subtopic, texts),
		MaxTokens: detailMaxTokens,
		Task:      "consolidate_details_" + subtopic,
	})
	if err == nil {
		if merged := ValidateDetails(normalize.Array(resp)); len(merged) > 0 {
			return merged
		}
		e.log.Warn("detail consolidation returned nothing usable", "subtopic", subtopic)
	} else {
		e.log.Error("consolidating details", "subtopic", subtopic, "error", err)
	}

	seen := make(map[string]bool, len(items))
	var out []DetailItem
	for _, d := range items {
		k := strings.ToLower(d.Text)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}

// forwardSemanticDedup compares every pair in order. Of a redundant pair the
// earlier item survives unless the later one is more important, in which
// case the earlier one goes. The list never shrinks below floor.
func (e *Extractor) forwardSemanticDedup(ctx context.Context, items []DetailItem, label string, floor int) []DetailItem {
	out := append([]DetailItem(nil), items...)
	i := 0
	for i < len(out)-1 && len(out) > floor && ctx.Err() == nil {
		removedI := false
		for j := i + 1; j < len(out) && len(out) > floor; {
			if !e.judge.Redundant(ctx, out[i].Text, out[j].Text, label, label) {
				j++
				continue
			}
			if out[i].Importance.Rank() >= out[j].Importance.Rank() {
				out = append(out[:j], out[j+1:]...)
				continue
			}
			out = append(out[:i], out[i+1:]...)
			removedI = true
			break
		}
		if !removedI {
			i++
		}
	}
	return out
}

// sortDetails orders by importance, then longer text first.
func sortDetails(items []DetailItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Importance.Rank(), items[j].Importance.Rank()
		if ri != rj {
			return ri > rj
		}
		return utf8.RuneCountInString(items[i].Text) > utf8.RuneCountInString(items[j].Text)
	})
}
