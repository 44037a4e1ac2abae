// Package labels picks a decorative emoji for topic and subtopic names and
// remembers the choice in a small JSON file shared across runs.
package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
)

const (
	task      = "selecting_emoji"
	maxTokens = 20
	// maxRunes rejects answers that are clearly more than one emoji.
	maxRunes = 4
	// saveEvery is how many new entries accumulate before the file is rewritten.
	saveEvery = 10
)

const prompt = `Select the single most appropriate emoji to represent this %s: "%s"

Requirements:
1. Return ONLY the emoji character - no explanations or other text
2. Choose an emoji that best represents the concept semantically
3. For abstract concepts, use metaphorical or symbolic emojis
4. Default options if unsure:
- Topics: 📄 (document)
- Subtopics: 📌 (pin)
- Details: 🔹 (bullet point)
5. Be creative but clear - the emoji should intuitively represent the concept

Examples:
- "Market Growth" → 📈
- "Customer Service" → 👥
- "Financial Report" → 💰
- "Product Development" → ⚙️
- "Global Expansion" → 🌐
- "Research and Development" → 🔬
- "Digital Transformation" → 💻
- "Supply Chain" → 🔄
- "Healthcare Solutions" → 🏥
- "Security Measures" → 🔒

Return ONLY the emoji character without any explanation.`

// Default is the label used when the oracle gives nothing usable.
func Default(kind concept.Kind) string {
	switch kind {
	case concept.KindSubtopic:
		return "📌"
	case concept.KindDetail:
		return "🔹"
	}
	return "📄"
}

type key struct {
	Text string
	Kind concept.Kind
}

// entry is the on-disk form of one cached label.
type entry struct {
	Text  string       `json:"text"`
	Kind  concept.Kind `json:"kind"`
	Label string       `json:"label"`
}

// Selector is safe for concurrent use.
type Selector struct {
	oracle oracle.Gateway
	path   string
	log    *slog.Logger

	mu      sync.Mutex
	cache   map[key]string
	pending int

	// saveMu orders whole saves so an older snapshot never replaces a newer
	// file.
	saveMu sync.Mutex
}

// New loads the cache at path. A missing or unreadable file starts an empty
// cache. An empty path keeps the cache in memory only.
func New(g oracle.Gateway, path string, log *slog.Logger) *Selector {
	s := &Selector{oracle: g, path: path, log: log, cache: make(map[key]string)}
	if path == "" {
		return s
	}
	entries, err := load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("label cache unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}
	for _, e := range entries {
		s.cache[key{Text: e.Text, Kind: e.Kind}] = e.Label
	}
	log.Info("label cache loaded", "path", path, "entries", len(s.cache))
	return s
}

func load(path string) ([]entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

// Label returns the cached label for (text, kind), asking the oracle on a
// miss. It never fails; errors fall back to Default.
func (s *Selector) Label(ctx context.Context, text string, kind concept.Kind) string {
	k := key{Text: text, Kind: kind}
	s.mu.Lock()
	if l, ok := s.cache[k]; ok {
		s.mu.Unlock()
		return l
	}
	s.mu.Unlock()

	resp, err := s.oracle.Generate(ctx, oracle.Request{
		Prompt:    fmt.Sprintf(prompt, kind, text),
		MaxTokens: maxTokens,
		Task:      task,
	})
	if err != nil {
		s.log.Warn("selecting label", "text", text, "error", err)
		return Default(kind)
	}
	label := strings.TrimSpace(resp)
	if label == "" || utf8.RuneCountInString(label) > maxRunes {
		label = Default(kind)
	}

	s.mu.Lock()
	s.cache[k] = label
	s.pending++
	flush := s.pending >= saveEvery
	s.mu.Unlock()
	if flush {
		if err := s.Save(); err != nil {
			s.log.Warn("saving label cache", "error", err)
		}
	}
	return label
}

// Apply labels every topic and subtopic of t in place.
func (s *Selector) Apply(ctx context.Context, t *concept.Tree) {
	t.Walk(func(n *concept.Node, _ int) {
		if n.Kind == concept.KindTopic || n.Kind == concept.KindSubtopic {
			n.Label = s.Label(ctx, n.Name, n.Kind)
		}
	})
}

// Len is the number of cached labels.
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Save writes the cache to its file through a uniquely named temporary file
// in the same directory and a rename.
func (s *Selector) Save() error {
	if s.path == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	entries := make([]entry, 0, len(s.cache))
	for k, l := range s.cache {
		entries = append(entries, entry{Text: k.Text, Kind: k.Kind, Label: l})
	}
	s.pending = 0
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Text < entries[j].Text
	})
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode label cache: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create label cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp label cache: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write label cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write label cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace label cache: %w", err)
	}
	s.log.Debug("label cache saved", "path", s.path, "entries", len(entries))
	return nil
}
