// Package budget decides how much of a document the pipeline keeps
// expanding. It caps oracle calls per level, tracks the words committed to
// the tree and tells the generator when coverage is good enough to stop.
package budget

import (
	"math"
	"sync"
)

// Level is the extraction level an oracle call is charged to.
type Level string

const (
	Topics    Level = "topics"
	Subtopics Level = "subtopics"
	Details   Level = "details"
)

// State is where the generator is in its run.
type State string

const (
	CollectingTopics State = "collecting_topics"
	ProcessingTopic  State = "processing_topic"
	Stopped          State = "stopped"
)

// Limits are the call ceilings and coverage minimums.
type Limits struct {
	MaxTopicCalls         int
	MaxSubtopicCalls      int
	MaxDetailCalls        int
	MinTopics             int
	MinSubtopicsPerTopic  int
	MinDetailsPerSubtopic int
	WordCap               int
}

func DefaultLimits() Limits {
	return Limits{
		MaxTopicCalls:         20,
		MaxSubtopicCalls:      30,
		MaxDetailCalls:        40,
		MinTopics:             4,
		MinSubtopicsPerTopic:  2,
		MinDetailsPerSubtopic: 3,
		WordCap:               8000,
	}
}

const (
	// wordShare is the fraction of the document's words the tree may hold.
	wordShare = 0.9
	// coverage is the share of topics that must be processed before stopping.
	coverage = 0.75
	// alwaysProcess is how many leading topics are processed regardless.
	alwaysProcess = 4

	// TopicWordFraction and SubtopicWordFraction gate new names against the
	// word limit, DetailWordFraction gates details.
	TopicWordFraction    = 0.95
	SubtopicWordFraction = 0.95
	DetailWordFraction   = 0.98
)

// Controller is safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	limits    Limits
	wordLimit int
	words     int
	calls     map[Level]int
	state     State
	total     int
	processed int
	subtopics int
}

// New sizes the word limit from the document: min(0.9·docWords, WordCap).
func New(limits Limits, docWords int) *Controller {
	def := DefaultLimits()
	if limits.MaxTopicCalls <= 0 {
		limits.MaxTopicCalls = def.MaxTopicCalls
	}
	if limits.MaxSubtopicCalls <= 0 {
		limits.MaxSubtopicCalls = def.MaxSubtopicCalls
	}
	if limits.MaxDetailCalls <= 0 {
		limits.MaxDetailCalls = def.MaxDetailCalls
	}
	if limits.MinTopics <= 0 {
		limits.MinTopics = def.MinTopics
	}
	if limits.MinSubtopicsPerTopic <= 0 {
		limits.MinSubtopicsPerTopic = def.MinSubtopicsPerTopic
	}
	if limits.MinDetailsPerSubtopic <= 0 {
		limits.MinDetailsPerSubtopic = def.MinDetailsPerSubtopic
	}
	if limits.WordCap <= 0 {
		limits.WordCap = def.WordCap
	}
	return &Controller{
		limits:    limits,
		wordLimit: min(int(math.Floor(wordShare*float64(docWords))), limits.WordCap),
		calls:     make(map[Level]int),
		state:     CollectingTopics,
	}
}

func (c *Controller) Limits() Limits { return c.limits }

func (c *Controller) ceiling(level Level) int {
	switch level {
	case Topics:
		return c.limits.MaxTopicCalls
	case Subtopics:
		return c.limits.MaxSubtopicCalls
	case Details:
		return c.limits.MaxDetailCalls
	}
	return 0
}

// CanCall reports whether level has calls left.
func (c *Controller) CanCall(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[level] < c.ceiling(level)
}

// Spend charges n calls to level. It reports false, charging nothing, when
// that would exceed the level's ceiling.
func (c *Controller) Spend(level Level, n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls[level]+n > c.ceiling(level) {
		return false
	}
	c.calls[level] += n
	return true
}

// StartProcessing records how many topics will be walked.
func (c *Controller) StartProcessing(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = total
	c.state = ProcessingTopic
}

// Stop ends the run. Later ShouldContinue calls report false.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Stopped
}

// ShouldContinue reports whether the topic at idx should be processed. The
// first topics always are; after that processing goes on until coverage is
// sufficient and three quarters of the topics are done.
func (c *Controller) ShouldContinue(idx int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return false
	}
	return idx < alwaysProcess || !c.sufficientLocked() || float64(c.processed) < float64(c.total)*coverage
}

// Sufficient reports whether enough topics were processed with enough
// subtopics each.
func (c *Controller) Sufficient() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sufficientLocked()
}

func (c *Controller) sufficientLocked() bool {
	if c.processed < c.limits.MinTopics || c.total == 0 {
		return false
	}
	avg := float64(c.subtopics) / float64(c.processed)
	return avg >= float64(c.limits.MinSubtopicsPerTopic) &&
		float64(c.processed)/float64(c.total) >= coverage
}

// TopicDone records a processed topic and how many subtopics it kept.
func (c *Controller) TopicDone(subtopics int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed++
	c.subtopics += subtopics
}

// HasRoom reports whether the words committed so far are within frac of the
// limit.
func (c *Controller) HasRoom(frac float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.words) <= float64(c.wordLimit)*frac
}

// TryAddWords commits n words unless the total would pass frac of the limit.
func (c *Controller) TryAddWords(n int, frac float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if float64(c.words+n) > float64(c.wordLimit)*frac {
		return false
	}
	c.words += n
	return true
}

// Snapshot is a point-in-time view for logs and job progress.
type Snapshot struct {
	State     State         `json:"state"`
	Words     int           `json:"words"`
	WordLimit int           `json:"word_limit"`
	Calls     map[Level]int `json:"calls"`
	Total     int           `json:"topics_total"`
	Processed int           `json:"topics_processed"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make(map[Level]int, len(c.calls))
	for k, v := range c.calls {
		calls[k] = v
	}
	return Snapshot{
		State:     c.state,
		Words:     c.words,
		WordLimit: c.wordLimit,
		Calls:     calls,
		Total:     c.total,
		Processed: c.processed,
	}
}
