// Package extract pulls topics, subtopics and details out of a document with
// chunked oracle calls, merging and deduplicating what each chunk returns.
package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chriscarrollsmith/mindmap-generator/internal/chunker"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
	"github.com/chriscarrollsmith/mindmap-generator/internal/redundancy"
)

// Options bounds each extraction level.
type Options struct {
	MaxTopics          int
	MinTopics          int
	MaxTopicChunks     int
	Concurrency        int
	FrequencyThreshold float64
	MaxSubtopics       int
	MinSubtopics       int
	MaxDetails         int
	MinDetails         int
	MinValidDetails    int
	CacheSize          int
}

func DefaultOptions() Options {
	return Options{
		MaxTopics:          8,
		MinTopics:          4,
		MaxTopicChunks:     5,
		Concurrency:        50,
		FrequencyThreshold: 1.5,
		MaxSubtopics:       4,
		MinSubtopics:       3,
		MaxDetails:         8,
		MinDetails:         3,
		MinValidDetails:    5,
		CacheSize:          1024,
	}
}

// Document is the input text with its chunks computed once.
type Document struct {
	Text   string
	Chunks []string
	// Hash identifies the text in cache keys.
	Hash string
}

// NewDocument chunks text with the size adapted to its length.
func NewDocument(text string) *Document {
	return &Document{
		Text:   text,
		Chunks: chunker.Texts(chunker.Split(text, chunker.DefaultOptions(len(text)))),
		Hash:   HashOf(text),
	}
}

// Extractor runs the three extraction levels against one oracle. Results are
// cached per level so repeated requests for the same document skip the calls.
type Extractor struct {
	oracle oracle.Gateway
	judge  *redundancy.Judge
	opts   Options
	log    *slog.Logger

	docTypes  *lru.Cache[Key, DocType]
	topics    *lru.Cache[Key, []string]
	subtopics *lru.Cache[Key, []string]
	details   *lru.Cache[Key, []DetailItem]
}

func New(g oracle.Gateway, judge *redundancy.Judge, opts Options, log *slog.Logger) (*Extractor, error) {
	def := DefaultOptions()
	if opts.MaxTopics <= 0 {
		opts.MaxTopics = def.MaxTopics
	}
	if opts.MinTopics <= 0 || opts.MinTopics > opts.MaxTopics {
		opts.MinTopics = min(def.MinTopics, opts.MaxTopics)
	}
	if opts.MaxTopicChunks <= 0 {
		opts.MaxTopicChunks = def.MaxTopicChunks
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.FrequencyThreshold <= 0 {
		opts.FrequencyThreshold = def.FrequencyThreshold
	}
	if opts.MaxSubtopics <= 0 {
		opts.MaxSubtopics = def.MaxSubtopics
	}
	if opts.MinSubtopics <= 0 {
		opts.MinSubtopics = def.MinSubtopics
	}
	if opts.MaxDetails <= 0 {
		opts.MaxDetails = def.MaxDetails
	}
	if opts.MinDetails <= 0 {
		opts.MinDetails = def.MinDetails
	}
	if opts.MinValidDetails <= 0 {
		opts.MinValidDetails = def.MinValidDetails
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = def.CacheSize
	}

	e := &Extractor{oracle: g, judge: judge, opts: opts, log: log}
	var err error
	if e.docTypes, err = lru.New[Key, DocType](opts.CacheSize); err != nil {
		return nil, fmt.Errorf("doc type cache: %w", err)
	}
	if e.topics, err = lru.New[Key, []string](opts.CacheSize); err != nil {
		return nil, fmt.Errorf("topic cache: %w", err)
	}
	if e.subtopics, err = lru.New[Key, []string](opts.CacheSize); err != nil {
		return nil, fmt.Errorf("subtopic cache: %w", err)
	}
	if e.details, err = lru.New[Key, []DetailItem](opts.CacheSize); err != nil {
		return nil, fmt.Errorf("detail cache: %w", err)
	}
	return e, nil
}

// Options reports the effective limits after defaults were applied.
func (e *Extractor) Options() Options { return e.opts }

var markupPattern = regexp.MustCompile("[`*_#]")

// cleanName strips markdown emphasis and collapses whitespace.
func cleanName(s string) string {
	return strings.Join(strings.Fields(markupPattern.ReplaceAllString(s, "")), " ")
}

func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := cleanName(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// dedupExactFold keeps the first of every case-insensitively equal name.
func dedupExactFold(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := strings.ToLower(n)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}
