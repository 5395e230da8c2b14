package throttle

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(name string) groupKey {
	return groupKey{id: name, parts: []string{name}}
}

func TestStoreTouchCreatesOnce(t *testing.T) {
	s, err := newGroupStore(10, 5)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	st1 := s.touch(testKey("a"), now)
	st2 := s.touch(testKey("a"), now.Add(time.Second))

	assert.Same(t, st1, st2)
	assert.Equal(t, 1, s.size())
	assert.Equal(t, now, st1.rateLastReset)
	assert.Equal(t, 5, st1.rateCountLast)
}

func TestStoreOldestFollowsTouchOrder(t *testing.T) {
	s, err := newGroupStore(10, 5)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	s.touch(testKey("a"), now)
	s.touch(testKey("b"), now)
	s.touch(testKey("c"), now)

	id, _, ok := s.oldest()
	require.True(t, ok)
	assert.Equal(t, "a", id)

	// Touching a moves it to the most recently used position.
	s.touch(testKey("a"), now)
	id, _, ok = s.oldest()
	require.True(t, ok)
	assert.Equal(t, "b", id)
}

func TestStoreEvict(t *testing.T) {
	s, err := newGroupStore(10, 5)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	s.touch(testKey("a"), now)
	s.touch(testKey("b"), now)

	s.evict("a")
	assert.Equal(t, 1, s.size())
	id, _, ok := s.oldest()
	require.True(t, ok)
	assert.Equal(t, "b", id)
}

func TestStoreEmptyOldest(t *testing.T) {
	s, err := newGroupStore(10, 5)
	require.NoError(t, err)
	_, _, ok := s.oldest()
	assert.False(t, ok)
}

func TestStoreCapacityBound(t *testing.T) {
	s, err := newGroupStore(2, 5)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		s.touch(testKey("g"+strconv.Itoa(i)), now)
	}

	// The least recently seen group was discarded to honor the bound.
	assert.Equal(t, 2, s.size())
	id, _, ok := s.oldest()
	require.True(t, ok)
	assert.Equal(t, "g1", id)
}
