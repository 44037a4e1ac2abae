package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscarrollsmith/mindmap-generator/internal/budget"
	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/labels"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
)

var discard = slog.New(slog.DiscardHandler)

// fakeOracle answers by the longest matching task prefix. Unscripted tasks
// fail.
type fakeOracle struct {
	mu      sync.Mutex
	tasks   []string
	answers map[string]func(req oracle.Request) (string, error)
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{answers: map[string]func(oracle.Request) (string, error){}}
}

func (f *fakeOracle) reply(prefix, text string) *fakeOracle {
	return f.on(prefix, func(oracle.Request) (string, error) { return text, nil })
}

func (f *fakeOracle) on(prefix string, fn func(oracle.Request) (string, error)) *fakeOracle {
	f.answers[prefix] = fn
	return f
}

func (f *fakeOracle) Generate(_ context.Context, req oracle.Request) (string, error) {
	f.mu.Lock()
	f.tasks = append(f.tasks, req.Task)
	f.mu.Unlock()
	best := ""
	for prefix := range f.answers {
		if strings.HasPrefix(req.Task, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "", errors.New("unscripted task " + req.Task)
	}
	return f.answers[best](req)
}

func (f *fakeOracle) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if strings.HasPrefix(t, prefix) {
			n++
		}
	}
	return n
}

var (
	subtopicsByTopic = map[string][]string{
		"Revenue Performance":  {"Quarterly Sales Figures", "Pricing Changes"},
		"Customer Acquisition": {"Advertising Spend", "Churn Reduction"},
	}
	detailsBySubtopic = map[string][]map[string]string{
		"Quarterly Sales Figures": {
			{"text": "Europe contributed most of the new bookings", "importance": "medium"},
			{"text": "Sales grew twelve percent in the third quarter", "importance": "high"},
		},
		"Pricing Changes": {
			{"text": "List prices rose by five percent in March", "importance": "high"},
			{"text": "Discounts for annual plans were removed", "importance": "low"},
		},
		"Advertising Spend": {
			{"text": "Paid search delivered the cheapest leads", "importance": "high"},
			{"text": "Partner referrals doubled year over year", "importance": "medium"},
		},
		"Churn Reduction": {
			{"text": "Monthly churn fell below two percent", "importance": "high"},
			{"text": "A retention team now calls at-risk accounts", "importance": "medium"},
		},
	}
)

func listJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// reportOracle scripts a complete, well-behaved run over a business report.
func reportOracle() *fakeOracle {
	return newFakeOracle().
		reply("detecting_document_type", "BUSINESS").
		reply("extracting_main_topics", `["Revenue Performance", "Customer Acquisition"]`).
		on("extracting_subtopics_", func(req oracle.Request) (string, error) {
			return listJSON(subtopicsByTopic[strings.TrimPrefix(req.Task, "extracting_subtopics_")]), nil
		}).
		on("extracting_details_", func(req oracle.Request) (string, error) {
			return listJSON(detailsBySubtopic[strings.TrimPrefix(req.Task, "extracting_details_")]), nil
		}).
		reply("checking_content_similarity", "DISTINCT (different aspect: scope)").
		reply("verifying_against_source", "YES").
		reply("selecting_emoji", "📈")
}

func reportText() string {
	para := "The company reported strong revenue performance this year with sales rising in every region. " +
		"Customer acquisition improved as advertising spend shifted toward paid search and partner referrals. " +
		"Pricing changes in March raised list prices while churn reduction work lowered monthly churn. "
	return strings.Repeat(para, 12)
}

func newTestGenerator(t *testing.T, g oracle.Gateway, sel *labels.Selector, mutate func(*Options)) *Generator {
	t.Helper()
	opts := Options{VerifyMinTopics: 1, VerifyMinRatio: 0.4}
	if mutate != nil {
		mutate(&opts)
	}
	gen, err := NewGenerator(g, sel, opts, discard)
	require.NoError(t, err)
	return gen
}

func TestBuildConceptTree(t *testing.T) {
	o := reportOracle()
	path := filepath.Join(t.TempDir(), "labels.json")
	gen := newTestGenerator(t, o, labels.New(o, path, discard), nil)

	tree, err := gen.BuildConceptTree(context.Background(), reportText(), "req-1")
	require.NoError(t, err)

	topics := tree.Topics()
	require.Len(t, topics, 2)
	assert.Equal(t, "Revenue Performance", topics[0].Name)
	assert.Equal(t, "Customer Acquisition", topics[1].Name)
	assert.Equal(t, "📈", topics[0].Label)

	require.Len(t, topics[0].Children, 2)
	sales := topics[0].Children[0]
	assert.Equal(t, "Quarterly Sales Figures", sales.Name)
	assert.Equal(t, "📈", sales.Label)
	require.Len(t, sales.Details, 2)
	assert.Equal(t, "Sales grew twelve percent in the third quarter", sales.Details[0].Text)
	assert.Equal(t, concept.High, sales.Details[0].Importance)

	_, err = os.Stat(path)
	assert.NoError(t, err, "label cache written")
}

func TestBuildConceptTreeNoTopicsFails(t *testing.T) {
	o := newFakeOracle().
		reply("detecting_document_type", "GENERAL").
		reply("extracting_main_topics", "[]")
	gen := newTestGenerator(t, o, nil, nil)

	tree, err := gen.BuildConceptTree(context.Background(), reportText(), "req-empty")
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Zero(t, o.count("extracting_subtopics_"))
}

func TestBuildConceptTreeKeepsTopicsWhenLaterStagesFail(t *testing.T) {
	o := newFakeOracle().
		reply("detecting_document_type", "BUSINESS").
		reply("extracting_main_topics", `["Revenue Performance", "Customer Acquisition"]`).
		reply("checking_content_similarity", "DISTINCT (different aspect: scope)")
	gen := newTestGenerator(t, o, nil, nil)

	tree, err := gen.BuildConceptTree(context.Background(), reportText(), "req-partial")
	require.NoError(t, err)
	require.Equal(t, 2, tree.TopicCount())
	for _, topic := range tree.Topics() {
		assert.Empty(t, topic.Children)
	}
	assert.Positive(t, o.count("verifying_against_source"))
}

func TestBuildConceptTreeRespectsSubtopicCallLimit(t *testing.T) {
	o := reportOracle()
	gen := newTestGenerator(t, o, nil, func(opts *Options) {
		opts.Limits = budget.Limits{MaxSubtopicCalls: 1}
	})

	tree, err := gen.BuildConceptTree(context.Background(), reportText(), "req-limit")
	require.NoError(t, err)
	require.Equal(t, 1, tree.TopicCount())
	assert.Equal(t, "Revenue Performance", tree.Topics()[0].Name)
	assert.Len(t, tree.Topics()[0].Children, 2)
}

func TestBuildConceptTreeTinyDocumentKeepsTopics(t *testing.T) {
	o := reportOracle()
	gen := newTestGenerator(t, o, nil, nil)

	tree, err := gen.BuildConceptTree(context.Background(), "Revenue grew.", "req-tiny")
	require.NoError(t, err)
	require.GreaterOrEqual(t, tree.TopicCount(), 1)
	assert.Equal(t, "Revenue Performance", tree.Topics()[0].Name)
	for _, topic := range tree.Topics() {
		assert.Empty(t, topic.Children, "no room for subtopic words")
	}
}

func TestBuildConceptTreeTopicCallBudgetExhausted(t *testing.T) {
	o := reportOracle()
	gen := newTestGenerator(t, o, nil, func(opts *Options) {
		opts.Limits = budget.Limits{MaxTopicCalls: 1}
	})

	_, err := gen.BuildConceptTree(context.Background(), reportText(), "req-topic-budget")
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Equal(t, 1, o.count("detecting_document_type"))
	assert.Zero(t, o.count("extracting_main_topics"))
}

func TestBuildConceptTreeReusesExtractionCache(t *testing.T) {
	o := reportOracle()
	gen := newTestGenerator(t, o, nil, nil)
	text := reportText()

	_, err := gen.BuildConceptTree(context.Background(), text, "first")
	require.NoError(t, err)
	subtopicCalls := o.count("extracting_subtopics_")
	detailCalls := o.count("extracting_details_")

	_, err = gen.BuildConceptTree(context.Background(), text, "second")
	require.NoError(t, err)
	assert.Equal(t, subtopicCalls, o.count("extracting_subtopics_"))
	assert.Equal(t, detailCalls, o.count("extracting_details_"))
	assert.Equal(t, 1, o.count("detecting_document_type"))
}

func TestBuildConceptTreeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := newTestGenerator(t, reportOracle(), nil, nil)

	_, err := gen.BuildConceptTree(ctx, reportText(), "req-cancel")
	assert.Error(t, err)
}
