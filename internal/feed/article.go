package feed

import (
	"fmt"
	"time"
)

// Key identifies one logical post. Two posts with the same account and
// title are the same post regardless of any other field.
type Key struct {
	Account string
	Title   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Account, k.Title)
}

// Article is one extracted post. It is built up incrementally while the
// controller walks the feed and becomes immutable once handed to the
// store.
type Article struct {
	Account string `json:"account"`
	Title   string `json:"title"`
	// PublishedAt is the post's publish instant in UTC. Zero when the
	// rendered timestamp never materialized or could not be parsed.
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
	// FirstSeen is the wall clock instant this article was first
	// observed by the robot.
	FirstSeen time.Time `json:"first_seen"`
}

func (a Article) Key() Key {
	return Key{Account: a.Account, Title: a.Title}
}

// UpsertResult is the store's verdict on one article.
type UpsertResult int

const (
	UpsertCreated UpsertResult = iota
	UpsertDuplicate
)
