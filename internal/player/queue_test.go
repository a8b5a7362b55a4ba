package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonata/pkg/models"
)

func makeTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:       i + 1,
			Title:    "Track " + string(rune('A'+i)),
			Artist:   "Artist",
			Album:    "Album",
			Duration: 180,
		}
	}
	return tracks
}

func queueIDs(q *Queue) []int {
	tracks := q.Tracks()
	ids := make([]int, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func drainEvents(q *Queue) []Event {
	var events []Event
	for {
		select {
		case e := <-q.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestPlayTrackRebuildsFromContext(t *testing.T) {
	q := NewQueue()
	context := makeTracks(5)

	q.PlayTrack(context[2], context)

	assert.Equal(t, []int{3, 1, 2, 4, 5}, queueIDs(q))
	current, ok := q.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, 3, current.ID)
	assert.True(t, q.IsPlaying())
	assert.Equal(t, StatePlaying, q.GetState())
}

func TestPlayTrackEmptyContext(t *testing.T) {
	q := NewQueue()
	track := makeTracks(1)[0]

	q.PlayTrack(track, nil)

	assert.Equal(t, 1, q.Len())
	current, ok := q.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, track.ID, current.ID)
}

func TestPlayTrackReplacesExistingQueue(t *testing.T) {
	q := NewQueue()
	first := makeTracks(3)
	q.PlayTrack(first[0], first)

	second := []models.Track{{ID: 10}, {ID: 11}}
	q.PlayTrack(second[1], second)

	assert.Equal(t, []int{11, 10}, queueIDs(q))
}

func TestAdvancePromotesNextTrack(t *testing.T) {
	q := NewQueue()
	context := makeTracks(3)
	q.PlayTrack(context[0], context)
	drainEvents(q)

	q.Advance()

	assert.Equal(t, []int{2, 3}, queueIDs(q))
	assert.True(t, q.IsPlaying())

	events := drainEvents(q)
	require.Len(t, events, 1)
	assert.Equal(t, EventTrackChanged, events[0].Type)
	assert.Equal(t, 2, events[0].Track.ID)
}

func TestAdvanceOnLastTrackLeavesQueueUntouched(t *testing.T) {
	q := NewQueue()
	track := makeTracks(1)[0]
	q.PlayTrack(track, nil)
	drainEvents(q)

	q.Advance()

	assert.Equal(t, 1, q.Len())
	current, ok := q.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, track.ID, current.ID)

	events := drainEvents(q)
	require.Len(t, events, 1)
	assert.Equal(t, EventQueueEnded, events[0].Type)
}

func TestAdvanceOnEmptyQueue(t *testing.T) {
	q := NewQueue()

	q.Advance()

	assert.Equal(t, 0, q.Len())
	assert.Empty(t, drainEvents(q))
	assert.Equal(t, StateIdle, q.GetState())
}

func TestJumpToMovesEntryToHead(t *testing.T) {
	q := NewQueue()
	context := makeTracks(5)
	q.PlayTrack(context[0], context)

	require.NoError(t, q.JumpTo(3))

	assert.Equal(t, []int{4, 1, 2, 3, 5}, queueIDs(q))
	assert.True(t, q.IsPlaying())
}

func TestJumpToHeadIsNoOp(t *testing.T) {
	q := NewQueue()
	context := makeTracks(3)
	q.PlayTrack(context[0], context)
	before := queueIDs(q)
	drainEvents(q)

	require.NoError(t, q.JumpTo(0))

	assert.Equal(t, before, queueIDs(q))
	assert.Empty(t, drainEvents(q))
}

func TestJumpToOutOfRange(t *testing.T) {
	q := NewQueue()
	context := makeTracks(2)
	q.PlayTrack(context[0], context)

	assert.ErrorIs(t, q.JumpTo(5), ErrInvalidIndex)
	assert.ErrorIs(t, q.JumpTo(-1), ErrInvalidIndex)
	assert.Equal(t, []int{1, 2}, queueIDs(q))
}

func TestShuffleKeepsHeadAndMembership(t *testing.T) {
	q := NewQueue()
	context := makeTracks(20)
	q.PlayTrack(context[4], context)
	before := queueIDs(q)

	q.ToggleShuffle()
	require.True(t, q.ShuffleEnabled())

	after := queueIDs(q)
	assert.Equal(t, before[0], after[0], "head must survive shuffle")
	assert.ElementsMatch(t, before, after, "shuffle must not add or drop tracks")
}

func TestShuffleOffKeepsCurrentOrder(t *testing.T) {
	q := NewQueue()
	context := makeTracks(10)
	q.PlayTrack(context[0], context)
	q.ToggleShuffle()
	shuffled := queueIDs(q)

	q.ToggleShuffle()
	require.False(t, q.ShuffleEnabled())

	assert.Equal(t, shuffled, queueIDs(q), "disabling shuffle must not restore the original order")
}

func TestShuffleAppliedOnPlayTrack(t *testing.T) {
	q := NewQueue()
	q.ToggleShuffle()
	context := makeTracks(20)

	q.PlayTrack(context[7], context)

	ids := queueIDs(q)
	assert.Equal(t, 8, ids[0])
	assert.Len(t, ids, 20)
}

func TestSetPlayingNoTrackLoaded(t *testing.T) {
	q := NewQueue()

	q.SetPlaying(true)

	assert.False(t, q.IsPlaying())
	assert.Empty(t, drainEvents(q))
}

func TestSetPlayingUnchangedEmitsNothing(t *testing.T) {
	q := NewQueue()
	q.PlayTrack(makeTracks(1)[0], nil)
	drainEvents(q)

	q.SetPlaying(true)

	assert.Empty(t, drainEvents(q))
}

func TestTogglePlayStates(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, StateIdle, q.GetState())

	q.TogglePlay()
	assert.Equal(t, StateIdle, q.GetState(), "toggle with no track loaded is a no-op")

	q.PlayTrack(makeTracks(1)[0], nil)
	assert.Equal(t, StatePlaying, q.GetState())

	q.TogglePlay()
	assert.Equal(t, StatePaused, q.GetState())

	q.TogglePlay()
	assert.Equal(t, StatePlaying, q.GetState())
}

func TestEventsDroppedWhenNobodyListens(t *testing.T) {
	q := NewQueue()
	context := makeTracks(3)

	// Overflow the buffered channel; operations must never block.
	for i := 0; i < 50; i++ {
		q.PlayTrack(context[i%3], context)
		q.TogglePlay()
	}

	assert.Equal(t, 3, q.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "paused", StatePaused.String())
}
