package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordLimit(t *testing.T) {
	assert.Equal(t, 900, New(Limits{}, 1000).Snapshot().WordLimit)
	assert.Equal(t, 8000, New(Limits{}, 50000).Snapshot().WordLimit)
	assert.Equal(t, 5000, New(Limits{WordCap: 5000}, 50000).Snapshot().WordLimit)
}

func TestSpendRespectsCeilings(t *testing.T) {
	c := New(Limits{MaxSubtopicCalls: 3}, 1000)
	assert.True(t, c.Spend(Subtopics, 2))
	assert.False(t, c.Spend(Subtopics, 2), "would exceed the ceiling")
	assert.True(t, c.CanCall(Subtopics))
	assert.True(t, c.Spend(Subtopics, 1))
	assert.False(t, c.CanCall(Subtopics))
	assert.True(t, c.CanCall(Details))
	assert.Equal(t, 3, c.Snapshot().Calls[Subtopics])
}

func TestTryAddWords(t *testing.T) {
	c := New(Limits{}, 1000) // limit 900
	assert.True(t, c.TryAddWords(800, DetailWordFraction))
	assert.False(t, c.TryAddWords(100, TopicWordFraction), "855 is the topic ceiling")
	assert.True(t, c.TryAddWords(82, DetailWordFraction))
	assert.Equal(t, 882, c.Snapshot().Words)
	assert.False(t, c.HasRoom(TopicWordFraction))
	assert.True(t, c.HasRoom(DetailWordFraction))
}

func TestSufficientAndShouldContinue(t *testing.T) {
	c := New(Limits{}, 10000)
	c.StartProcessing(8)
	for idx := 0; idx <= 4; idx++ {
		assert.True(t, c.ShouldContinue(idx))
		c.TopicDone(3)
	}
	assert.False(t, c.Sufficient(), "5 of 8 is below three quarters")
	assert.True(t, c.ShouldContinue(5))
	c.TopicDone(3)
	assert.True(t, c.Sufficient())
	assert.False(t, c.ShouldContinue(6))

	c.Stop()
	assert.False(t, c.ShouldContinue(0))
	assert.Equal(t, Stopped, c.Snapshot().State)
}

func TestShouldContinueAlwaysProcessesFirstFour(t *testing.T) {
	c := New(Limits{}, 10000)
	c.StartProcessing(5)
	for idx := range 4 {
		require.True(t, c.ShouldContinue(idx))
		c.TopicDone(3)
	}
	require.True(t, c.Sufficient())
	assert.False(t, c.ShouldContinue(4), "the fifth topic is only processed while coverage is short")
}

func TestSufficientNeedsSubtopics(t *testing.T) {
	c := New(Limits{}, 10000)
	c.StartProcessing(4)
	for range 4 {
		c.TopicDone(1)
	}
	assert.False(t, c.Sufficient(), "one subtopic per topic is too thin")
	assert.True(t, c.ShouldContinue(10))
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New(Limits{}, 100)
	require.True(t, c.Spend(Topics, 1))
	snap := c.Snapshot()
	snap.Calls[Topics] = 99
	assert.Equal(t, 1, c.Snapshot().Calls[Topics])
	assert.Equal(t, CollectingTopics, snap.State)
}
