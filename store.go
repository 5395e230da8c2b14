package throttle

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog/log"
)

// groupStore is the access-ordered mapping from group key to state. Backed
// by an LRU so that touch is a move-to-front and the least recently touched
// entry is available in O(1). The store exclusively owns all group state;
// callers must not retain entries across records.
//
// Not safe for concurrent use. Each filter instance owns its own store.
type groupStore struct {
	lru         *simplelru.LRU[string, *groupState]
	capacity    int
	bucketLimit int
}

func newGroupStore(capacity, bucketLimit int) (*groupStore, error) {
	l, err := simplelru.NewLRU[string, *groupState](capacity, nil)
	if err != nil {
		return nil, err
	}
	return &groupStore{lru: l, capacity: capacity, bucketLimit: bucketLimit}, nil
}

// touch returns the state for key, creating a fresh one if the group has not
// been seen. In both cases the key becomes the most recently used entry.
func (s *groupStore) touch(key groupKey, now time.Time) *groupState {
	if st, ok := s.lru.Get(key.id); ok {
		return st
	}
	if s.lru.Len() >= s.capacity {
		// The LRU discards its oldest entry on the next Add.
		log.Warn().
			Int("max_groups", s.capacity).
			Strs("group", displayParts(key.parts)).
			Msg("group cap reached, discarding least recently seen group")
	}
	st := newGroupState(key.parts, now, s.bucketLimit)
	s.lru.Add(key.id, st)
	return st
}

// oldest returns the least recently touched entry without removing it.
func (s *groupStore) oldest() (string, *groupState, bool) {
	return s.lru.GetOldest()
}

// evict removes an entry from the store.
func (s *groupStore) evict(id string) {
	s.lru.Remove(id)
}

// size returns the number of tracked groups.
func (s *groupStore) size() int {
	return s.lru.Len()
}
