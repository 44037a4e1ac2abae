package concept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree()
	topic := NewTopic("Market")
	sub := NewSubtopic("Growth")
	require.NoError(t, sub.AddDetail(NewDetail("Revenue doubled", High)))
	require.NoError(t, sub.AddDetail(NewDetail("Costs flat", Low)))
	require.NoError(t, topic.AddChild(sub))
	require.NoError(t, tree.Root.AddChild(topic))
	return tree
}

func TestAddChild_EnforcesLevels(t *testing.T) {
	root := NewRoot()
	topic := NewTopic("T")
	sub := NewSubtopic("S")

	assert.NoError(t, root.AddChild(topic))
	assert.NoError(t, topic.AddChild(sub))
	assert.Error(t, root.AddChild(NewSubtopic("S2")))
	assert.Error(t, topic.AddChild(NewTopic("T2")))
	assert.Error(t, sub.AddChild(NewSubtopic("S3")))
	assert.Error(t, root.AddChild(nil))
}

func TestAddDetail_OnlySubtopics(t *testing.T) {
	assert.Error(t, NewRoot().AddDetail(NewDetail("x", Low)))
	assert.Error(t, NewTopic("T").AddDetail(NewDetail("x", Low)))
	assert.NoError(t, NewSubtopic("S").AddDetail(NewDetail("x", Low)))
}

func TestParseImportance(t *testing.T) {
	for in, want := range map[string]Importance{"HIGH": High, " medium ": Medium, "Low": Low} {
		got, ok := ParseImportance(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseImportance("critical")
	assert.False(t, ok)
	assert.Greater(t, High.Rank(), Medium.Rank())
	assert.Greater(t, Medium.Rank(), Low.Rank())
}

func TestCount(t *testing.T) {
	tree := sampleTree(t)
	assert.Equal(t, 5, tree.Count())
	assert.Equal(t, 1, tree.TopicCount())

	var empty *Tree
	assert.Zero(t, empty.Count())
	assert.Zero(t, empty.TopicCount())
}

func TestFlatten(t *testing.T) {
	tree := sampleTree(t)
	items := Flatten(tree)
	require.Len(t, items, 5)

	assert.Equal(t, KindRoot, items[0].Kind)
	assert.Equal(t, []string{RootName}, items[0].Path)
	assert.Equal(t, KindTopic, items[1].Kind)
	assert.Equal(t, KindSubtopic, items[2].Kind)
	assert.Equal(t, KindDetail, items[3].Kind)
	assert.Equal(t, []string{RootName, "Market", "Growth", "Revenue doubled"}, items[3].Path)
	assert.Equal(t, tree.Root.Children[0].Children[0].Details[1].ID, items[4].ID)

	seen := map[ID]bool{}
	for _, it := range items {
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
}
