package library

import "sync"

// DefaultFeedLimit is how many messages the activity feed keeps.
const DefaultFeedLimit = 5

// Feed is the bounded recent-activity log, newest first.
type Feed struct {
	mu    sync.Mutex
	limit int
	items []string
}

// NewFeed returns a feed holding at most limit messages.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return &Feed{limit: limit}
}

// Push records msg as the most recent entry, dropping the oldest past the limit.
func (f *Feed) Push(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]string, 0, f.limit)
	items = append(items, msg)
	items = append(items, f.items...)
	if len(items) > f.limit {
		items = items[:f.limit]
	}
	f.items = items
}

// Recent returns a copy of the feed, newest first.
func (f *Feed) Recent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRecords(f.items)
}

// Reset empties the feed.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.items = nil
	f.mu.Unlock()
}
