package watchlist

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const shardCount = 64

type listingSet map[uuid.UUID]struct{}

// shard guards the watch sets of the users hashed to it.
type shard struct {
	mu    sync.RWMutex
	users map[uuid.UUID]listingSet
}

// index is a lock-striped user -> watched listings mapping.
// Users on different shards never contend with each other.
type index struct {
	shards [shardCount]*shard
}

func newIndex() *index {
	ix := &index{}
	for i := range ix.shards {
		ix.shards[i] = &shard{users: make(map[uuid.UUID]listingSet)}
	}
	return ix
}

func (ix *index) shardFor(userID uuid.UUID) *shard {
	return ix.shards[xxhash.Sum64(userID[:])%shardCount]
}

func (ix *index) add(userID, listingID uuid.UUID) {
	s := ix.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		set = make(listingSet)
		s.users[userID] = set
	}
	set[listingID] = struct{}{}
}

// remove drops the pair and forgets the user once their set is empty.
func (ix *index) remove(userID, listingID uuid.UUID) {
	s := ix.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		return
	}
	delete(set, listingID)
	if len(set) == 0 {
		delete(s.users, userID)
	}
}

// removeListing sweeps every shard, holding one shard lock at a time.
func (ix *index) removeListing(listingID uuid.UUID) int {
	removed := 0
	for _, s := range ix.shards {
		s.mu.Lock()
		for userID, set := range s.users {
			if _, ok := set[listingID]; !ok {
				continue
			}
			delete(set, listingID)
			removed++
			if len(set) == 0 {
				delete(s.users, userID)
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (ix *index) contains(userID, listingID uuid.UUID) bool {
	s := ix.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[userID][listingID]
	return ok
}

func (ix *index) count(userID uuid.UUID) int {
	s := ix.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users[userID])
}

func (ix *index) snapshot(userID uuid.UUID) []uuid.UUID {
	s := ix.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.users[userID]
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func (ix *index) watchers(listingID uuid.UUID) []uuid.UUID {
	var users []uuid.UUID
	for _, s := range ix.shards {
		s.mu.RLock()
		for userID, set := range s.users {
			if _, ok := set[listingID]; ok {
				users = append(users, userID)
			}
		}
		s.mu.RUnlock()
	}
	return users
}

func (ix *index) userCount() int {
	n := 0
	for _, s := range ix.shards {
		s.mu.RLock()
		n += len(s.users)
		s.mu.RUnlock()
	}
	return n
}
