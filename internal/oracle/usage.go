package oracle

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
)

// Category groups task tags for usage reporting.
type Category string

const (
	CategoryTopics       Category = "topics"
	CategorySubtopics    Category = "subtopics"
	CategoryDetails      Category = "details"
	CategorySimilarity   Category = "similarity"
	CategoryVerification Category = "verification"
	CategoryEmoji        Category = "emoji"
	CategoryOther        Category = "other"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryTopics, CategorySubtopics, CategoryDetails,
	CategorySimilarity, CategoryVerification, CategoryEmoji, CategoryOther,
}

var categoryPrefixes = []struct {
	cat      Category
	prefixes []string
}{
	{CategoryTopics, []string{"extracting_main_topics", "consolidating_topics", "detecting_document_type"}},
	{CategorySubtopics, []string{"extracting_subtopics", "consolidate_subtopics"}},
	{CategoryDetails, []string{"extracting_details", "consolidate_details"}},
	{CategorySimilarity, []string{"checking_content_similarity"}},
	{CategoryVerification, []string{"verifying_against_source"}},
	{CategoryEmoji, []string{"selecting_emoji"}},
}

// CategoryFor maps a task tag to its category by prefix.
func CategoryFor(task string) Category {
	for _, cp := range categoryPrefixes {
		for _, p := range cp.prefixes {
			if strings.HasPrefix(task, p) {
				return cp.cat
			}
		}
	}
	return CategoryOther
}

// Pricing is USD per token.
type Pricing struct {
	Input  float64
	Output float64
}

func perMillion(in, out float64) Pricing {
	return Pricing{Input: in / 1_000_000, Output: out / 1_000_000}
}

// PricingFor returns list prices for a provider and model.
func PricingFor(provider, model string) Pricing {
	switch strings.ToUpper(provider) {
	case "CLAUDE":
		return perMillion(0.80, 4.00)
	case "DEEPSEEK":
		if strings.Contains(model, "reasoner") {
			return perMillion(0.14, 2.19)
		}
		return perMillion(0.27, 1.10)
	case "GEMINI":
		return perMillion(0.075, 0.30)
	default:
		return perMillion(0.15, 0.60)
	}
}

type tally struct {
	calls  int
	input  int
	output int
	cost   float64
}

func (t *tally) add(in, out int, cost float64) {
	t.calls++
	t.input += in
	t.output += out
	t.cost += cost
}

// Usage accumulates token counts and cost per task and per category.
type Usage struct {
	mu      sync.Mutex
	pricing Pricing
	byTask  map[string]*tally
	byCat   map[Category]*tally
	total   tally
}

func NewUsage(p Pricing) *Usage {
	return &Usage{
		pricing: p,
		byTask:  make(map[string]*tally),
		byCat:   make(map[Category]*tally),
	}
}

// Record adds one call's token counts.
func (u *Usage) Record(task string, input, output int) {
	cost := float64(input)*u.pricing.Input + float64(output)*u.pricing.Output

	u.mu.Lock()
	defer u.mu.Unlock()

	u.total.add(input, output, cost)
	t, ok := u.byTask[task]
	if !ok {
		t = &tally{}
		u.byTask[task] = t
	}
	t.add(input, output, cost)
	cat := CategoryFor(task)
	c, ok := u.byCat[cat]
	if !ok {
		c = &tally{}
		u.byCat[cat] = c
	}
	c.add(input, output, cost)
}

// CategoryUsage is one row of the category breakdown.
type CategoryUsage struct {
	Category     Category `json:"category"`
	Calls        int      `json:"calls"`
	CallsPct     float64  `json:"calls_pct"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	TokensPct    float64  `json:"tokens_pct"`
	CostUSD      float64  `json:"cost_usd"`
	CostPct      float64  `json:"cost_pct"`
}

// TaskUsage is one row of the per-task breakdown.
type TaskUsage struct {
	Task         string  `json:"task"`
	Calls        int     `json:"calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// UsageSummary is a point-in-time copy of the tracker.
type UsageSummary struct {
	TotalCalls        int             `json:"total_calls"`
	TotalInputTokens  int             `json:"total_input_tokens"`
	TotalOutputTokens int             `json:"total_output_tokens"`
	TotalCostUSD      float64         `json:"total_cost_usd"`
	Categories        []CategoryUsage `json:"categories"`
	Tasks             []TaskUsage     `json:"tasks"`
}

func pct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// Summary returns category rows in report order (empty categories omitted)
// and task rows by descending cost.
func (u *Usage) Summary() UsageSummary {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := UsageSummary{
		TotalCalls:        u.total.calls,
		TotalInputTokens:  u.total.input,
		TotalOutputTokens: u.total.output,
		TotalCostUSD:      u.total.cost,
	}
	totalTokens := float64(u.total.input + u.total.output)
	for _, cat := range Categories {
		t, ok := u.byCat[cat]
		if !ok || t.calls == 0 {
			continue
		}
		s.Categories = append(s.Categories, CategoryUsage{
			Category:     cat,
			Calls:        t.calls,
			CallsPct:     pct(float64(t.calls), float64(u.total.calls)),
			InputTokens:  t.input,
			OutputTokens: t.output,
			TokensPct:    pct(float64(t.input+t.output), totalTokens),
			CostUSD:      t.cost,
			CostPct:      pct(t.cost, u.total.cost),
		})
	}
	for task, t := range u.byTask {
		s.Tasks = append(s.Tasks, TaskUsage{
			Task:         task,
			Calls:        t.calls,
			InputTokens:  t.input,
			OutputTokens: t.output,
			CostUSD:      t.cost,
		})
	}
	slices.SortFunc(s.Tasks, func(a, b TaskUsage) int {
		if a.CostUSD != b.CostUSD {
			if a.CostUSD > b.CostUSD {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Task, b.Task)
	})
	return s
}

// Report writes a plain-text usage table.
func (u *Usage) Report(w io.Writer) error {
	s := u.Summary()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Total tokens: %d (input %d, output %d)\n", s.TotalInputTokens+s.TotalOutputTokens, s.TotalInputTokens, s.TotalOutputTokens)
	fmt.Fprintf(tw, "Total cost: $%.6f\n", s.TotalCostUSD)
	fmt.Fprintf(tw, "Total calls: %d\n\n", s.TotalCalls)
	fmt.Fprintln(tw, "category\tcalls\tcall %\ttokens\ttoken %\tcost\tcost %\t")
	for _, c := range s.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%.2f%%\t%d\t%.2f%%\t$%.6f\t%.2f%%\t\n",
			c.Category, c.Calls, c.CallsPct, c.InputTokens+c.OutputTokens, c.TokensPct, c.CostUSD, c.CostPct)
	}
	fmt.Fprintln(tw, "\t\t\t\t\t\t\t")
	fmt.Fprintln(tw, "task\tcalls\tinput\toutput\tcost\t")
	for _, t := range s.Tasks {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t$%.6f\t\n", t.Task, t.Calls, t.InputTokens, t.OutputTokens, t.CostUSD)
	}
	return tw.Flush()
}
