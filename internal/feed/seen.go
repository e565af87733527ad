package feed

import "time"

// SeenSet is an in-memory index of post keys with the instant each key was
// first recorded. The controller keeps two: everything ever stored
// (bootstrapped from the database at startup) and everything accepted in
// the current traversal cycle. The distinction matters because reaching an
// already-stored post means the unread feed is exhausted, while reaching a
// post accepted moments ago means the focus looped back onto our own
// output and the traversal must keep moving.
type SeenSet struct {
	m map[Key]time.Time
}

func NewSeenSet() *SeenSet {
	return &SeenSet{m: map[Key]time.Time{}}
}

func (s *SeenSet) Add(k Key, at time.Time) {
	if _, ok := s.m[k]; ok {
		return
	}
	s.m[k] = at
}

func (s *SeenSet) Contains(k Key) bool {
	_, ok := s.m[k]
	return ok
}

func (s *SeenSet) Len() int {
	return len(s.m)
}
