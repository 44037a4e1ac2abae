package labels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/oracle"
)

var discard = slog.New(slog.DiscardHandler)

func answer(text string, calls *atomic.Int32) oracle.Gateway {
	return oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		calls.Add(1)
		return text, nil
	})
}

func TestLabelCachesAnswers(t *testing.T) {
	var calls atomic.Int32
	s := New(answer(" 📈 ", &calls), "", discard)

	assert.Equal(t, "📈", s.Label(context.Background(), "Market Growth", concept.KindTopic))
	assert.Equal(t, "📈", s.Label(context.Background(), "Market Growth", concept.KindTopic))
	assert.Equal(t, int32(1), calls.Load())

	s.Label(context.Background(), "Market Growth", concept.KindSubtopic)
	assert.Equal(t, int32(2), calls.Load(), "kind is part of the key")
}

func TestLabelFallsBackToDefaults(t *testing.T) {
	var calls atomic.Int32
	s := New(answer("This is a chart emoji 📈", &calls), "", discard)
	assert.Equal(t, "📄", s.Label(context.Background(), "Revenue", concept.KindTopic))
	assert.Equal(t, "📌", s.Label(context.Background(), "Revenue", concept.KindSubtopic))

	failing := oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		return "", errors.New("provider down")
	})
	s = New(failing, "", discard)
	assert.Equal(t, "🔹", s.Label(context.Background(), "x", concept.KindDetail))
	assert.Zero(t, s.Len(), "failures are not cached")
}

func TestLabelRequest(t *testing.T) {
	var got oracle.Request
	g := oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		got = req
		return "🔒", nil
	})
	New(g, "", discard).Label(context.Background(), "Security Measures", concept.KindSubtopic)
	assert.Equal(t, "selecting_emoji", got.Task)
	assert.Equal(t, 20, got.MaxTokens)
	assert.Contains(t, got.Prompt, `this subtopic: "Security Measures"`)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "labels.json")
	var calls atomic.Int32
	s := New(answer("💰", &calls), path, discard)
	s.Label(context.Background(), "Financial Report", concept.KindTopic)
	require.NoError(t, s.Save())

	reloaded := New(answer("❌", &calls), path, discard)
	assert.Equal(t, 1, reloaded.Len())
	assert.Equal(t, "💰", reloaded.Label(context.Background(), "Financial Report", concept.KindTopic))
	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentSavesLeaveOneFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.json")
	var calls atomic.Int32
	s := New(answer("📌", &calls), path, discard)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Label(context.Background(), fmt.Sprintf("name %d", i), concept.KindTopic)
			assert.NoError(t, s.Save())
		}()
	}
	wg.Wait()
	require.NoError(t, s.Save())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1, "temporary files are renamed or removed")
	assert.Equal(t, 8, New(answer("❌", &calls), path, discard).Len())
}

func TestSavesEveryTenNewEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	var calls atomic.Int32
	s := New(answer("📌", &calls), path, discard)
	for i := range 9 {
		s.Label(context.Background(), fmt.Sprintf("name %d", i), concept.KindSubtopic)
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	s.Label(context.Background(), "name 9", concept.KindSubtopic)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCorruptCacheStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	var calls atomic.Int32
	s := New(answer("📈", &calls), path, discard)
	assert.Zero(t, s.Len())
}

func TestApplyLabelsTopicsAndSubtopics(t *testing.T) {
	tree := concept.NewTree()
	topic := concept.NewTopic("Market")
	sub := concept.NewSubtopic("Growth")
	require.NoError(t, sub.AddDetail(concept.NewDetail("Revenue doubled", concept.High)))
	require.NoError(t, topic.AddChild(sub))
	require.NoError(t, tree.Root.AddChild(topic))

	var calls atomic.Int32
	New(answer("📈", &calls), "", discard).Apply(context.Background(), tree)
	assert.Empty(t, tree.Root.Label)
	assert.Equal(t, "📈", topic.Label)
	assert.Equal(t, "📈", sub.Label)
	assert.Equal(t, int32(2), calls.Load())
}
