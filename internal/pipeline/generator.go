package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chriscarrollsmith/mindmap-generator/internal/budget"
	"github.com/chriscarrollsmith/mindmap-generator/internal/chunker"
	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/config"
	"github.com/chriscarrollsmith/mindmap-generator/internal/extract"
	"github.com/chriscarrollsmith/mindmap-generator/internal/labels"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/redundancy"
	"github.com/chriscarrollsmith/mindmap-generator/internal/verify"
)

// ErrSynthesisFailed means no topic could be extracted or none survived
// processing.
var ErrSynthesisFailed = errors.New("mindmap synthesis failed")

// Options configures a Generator.
type Options struct {
	Limits          budget.Limits
	Extract         extract.Options
	VerifyMinTopics int
	VerifyMinRatio  float64
	VerifyChunkSize int
	FinalBatchSize  int
}

// OptionsFromConfig maps environment configuration onto generator options.
func OptionsFromConfig(cfg config.Config) Options {
	ext := extract.DefaultOptions()
	ext.MinTopics = cfg.MinTopics
	ext.Concurrency = cfg.MaxConcurrent
	ext.FrequencyThreshold = cfg.TopicFrequencyThreshold
	ext.CacheSize = cfg.CacheSize
	return Options{
		Limits: budget.Limits{
			MaxTopicCalls:         cfg.MaxTopicCalls,
			MaxSubtopicCalls:      cfg.MaxSubtopicCalls,
			MaxDetailCalls:        cfg.MaxDetailCalls,
			MinTopics:             cfg.MinTopics,
			MinSubtopicsPerTopic:  cfg.MinSubtopicsPerTopic,
			MinDetailsPerSubtopic: cfg.MinDetailsPerSubtopic,
			WordCap:               cfg.WordCap,
		},
		Extract:         ext,
		VerifyMinTopics: cfg.VerifyMinTopics,
		VerifyMinRatio:  cfg.VerifyMinRatio,
		VerifyChunkSize: cfg.VerifyChunkSize,
		FinalBatchSize:  redundancy.DefaultBatchSize,
	}
}

// Generator builds concept trees. Extraction caches live as long as the
// Generator; budget counters are created per document.
type Generator struct {
	extractor *extract.Extractor
	engine    *redundancy.Engine
	verifier  *verify.Verifier
	labels    *labels.Selector
	opts      Options
	log       *slog.Logger
}

// NewGenerator wires the stages around one oracle. sel may be nil to skip
// decorative labels.
func NewGenerator(g oracle.Gateway, sel *labels.Selector, opts Options, log *slog.Logger) (*Generator, error) {
	engine := redundancy.NewEngine(g, log)
	ex, err := extract.New(g, engine.Judge(), opts.Extract, log)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}
	return &Generator{
		extractor: ex,
		engine:    engine,
		verifier:  verify.New(g, opts.VerifyMinTopics, opts.VerifyMinRatio, log).WithChunkSize(opts.VerifyChunkSize),
		labels:    sel,
		opts:      opts,
		log:       log,
	}, nil
}

// run is the per-document state threaded through one build.
type run struct {
	doc *extract.Document
	dt  extract.DocType
	ctl *budget.Controller
	log *slog.Logger
}

// BuildConceptTree turns text into a concept tree. It fails with
// ErrSynthesisFailed only when topic extraction yields nothing usable. Every
// later stage degrades to its input, so a tree with at least one topic is
// returned otherwise.
func (g *Generator) BuildConceptTree(ctx context.Context, text, requestID string) (*concept.Tree, error) {
	log := g.log.With("request_id", requestID)
	r := &run{
		doc: extract.NewDocument(text),
		ctl: budget.New(g.opts.Limits, chunker.WordCount(text)),
		log: log,
	}
	log.Info("starting concept tree", "chunks", len(r.doc.Chunks), "word_limit", r.ctl.Snapshot().WordLimit)

	var hit bool
	r.dt, hit = g.extractor.DocumentType(ctx, r.doc)
	if !hit {
		r.ctl.Spend(budget.Topics, 1)
	}
	log.Info("detected document type", "type", r.dt)

	if !r.ctl.CanCall(budget.Topics) {
		return nil, fmt.Errorf("%w: topic call budget exhausted", ErrSynthesisFailed)
	}
	names := g.extractor.Topics(ctx, r.doc, r.dt)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no topics extracted", ErrSynthesisFailed)
	}
	// The chunk calls have already been made; an overrun is only reported.
	if n := min(len(r.doc.Chunks), g.extractor.Options().MaxTopicChunks); !r.ctl.Spend(budget.Topics, n) {
		log.Warn("topic calls exceed ceiling", "calls", n, "snapshot", r.ctl.Snapshot())
	}
	names = g.engine.DedupNames(ctx, names, concept.KindTopic, "")
	log.Info("extracted topics", "count", len(names))

	tree := g.expandTopics(ctx, r, names)
	r.ctl.Stop()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if tree.TopicCount() == 0 {
		return nil, fmt.Errorf("%w: no topic could be processed", ErrSynthesisFailed)
	}
	snap := r.ctl.Snapshot()
	log.Info("tree synthesized",
		"topics", tree.TopicCount(),
		"nodes", tree.Count(),
		"words", snap.Words,
		"word_limit", snap.WordLimit,
		"calls", snap.Calls,
		"sufficient", r.ctl.Sufficient(),
	)

	tree = g.engine.FinalPass(ctx, tree, g.opts.FinalBatchSize)
	tree, report := g.verifier.Verify(ctx, tree, text)
	log.Info("tree verified", "verified", report.Verified, "total", report.Total, "preserved", report.Preserved)

	if g.labels != nil {
		g.labels.Apply(ctx, tree)
		if err := g.labels.Save(); err != nil {
			log.Warn("saving label cache", "error", err)
		}
	}
	return tree, nil
}

// expandTopics walks the topic list under the controller. Topics are kept
// even when no subtopic could be attached.
func (g *Generator) expandTopics(ctx context.Context, r *run, names []string) *concept.Tree {
	tree := concept.NewTree()
	r.ctl.StartProcessing(len(names))

	var seen []string
	for idx, name := range names {
		if ctx.Err() != nil {
			break
		}
		if !r.ctl.ShouldContinue(idx) {
			r.log.Info("coverage sufficient, stopping topic processing", "processed", idx, "total", len(names))
			break
		}
		if redundancy.SimilarToAny(name, seen, concept.KindTopic) {
			r.log.Info("skipping redundant topic", "topic", name)
			continue
		}
		seen = append(seen, name)
		// Topic names are not charged against the word limit; only the words
		// already committed below earlier topics can stop the walk.
		if !r.ctl.HasRoom(budget.TopicWordFraction) {
			r.log.Info("word limit reached", "snapshot", r.ctl.Snapshot())
			break
		}

		if !r.ctl.CanCall(budget.Subtopics) {
			r.log.Info("subtopic call budget exhausted", "snapshot", r.ctl.Snapshot())
			break
		}

		topic := concept.NewTopic(name)
		g.expandSubtopics(ctx, r, topic)
		_ = tree.Root.AddChild(topic)
		r.ctl.TopicDone(len(topic.Children))
		r.log.Info("processed topic", "index", idx+1, "of", len(names), "topic", name, "subtopics", len(topic.Children))
	}
	return tree
}

// expandSubtopics attaches subtopics and their details to topic, skipping
// names lexically close to one already attached.
func (g *Generator) expandSubtopics(ctx context.Context, r *run, topic *concept.Node) {
	names, hit := g.extractor.Subtopics(ctx, r.doc, r.dt, topic.Name)
	if !hit {
		r.ctl.Spend(budget.Subtopics, 1)
	}
	names = g.engine.DedupNames(ctx, names, concept.KindSubtopic, topic.Name)

	var seen []string
	for _, name := range names {
		if !r.ctl.CanCall(budget.Details) {
			r.log.Info("detail call budget exhausted")
			break
		}
		if redundancy.SimilarToAny(name, seen, concept.KindSubtopic) {
			continue
		}
		seen = append(seen, name)
		if !r.ctl.TryAddWords(chunker.WordCount(name), budget.SubtopicWordFraction) {
			r.log.Info("word limit reached during subtopics", "topic", topic.Name)
			break
		}
		sub := concept.NewSubtopic(name)
		g.attachDetails(ctx, r, topic.Name, sub)
		_ = topic.AddChild(sub)
	}
}

func (g *Generator) attachDetails(ctx context.Context, r *run, topic string, sub *concept.Node) {
	items, hit := g.extractor.Details(ctx, r.doc, r.dt, topic, sub.Name)
	if !hit {
		r.ctl.Spend(budget.Details, 1)
	}
	var seen []string
	for _, it := range items {
		if redundancy.SimilarToAny(it.Text, seen, concept.KindDetail) {
			continue
		}
		if !r.ctl.TryAddWords(chunker.WordCount(it.Text), budget.DetailWordFraction) {
			r.log.Info("word limit reached during details", "subtopic", sub.Name)
			return
		}
		seen = append(seen, it.Text)
		_ = sub.AddDetail(concept.NewDetail(it.Text, it.Importance))
	}
}
