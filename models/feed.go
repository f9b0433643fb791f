package models

// FeedState is the discover queue builder's externally visible state.
type FeedState string

const (
	// FeedStateLoading means the builder can still sample pages this epoch.
	FeedStateLoading FeedState = "loading"
	// FeedStateExhausted means no pages remain that match the criteria.
	FeedStateExhausted FeedState = "exhausted"
	// FeedStateThrottled means the session page budget was reached with pages
	// still remaining; the user can choose to continue searching.
	FeedStateThrottled FeedState = "throttled"
)

// FeedWindow is the slice of the queue a client should render: the items
// around the active index plus the terminal-slot state past the queue tail.
type FeedWindow struct {
	SessionID   string        `json:"sessionId"`
	ActiveIndex int           `json:"activeIndex"`
	WindowStart int           `json:"windowStart"`
	Items       []CatalogItem `json:"items"`
	QueueLength int           `json:"queueLength"`
	State       FeedState     `json:"state"`
}

// FeedAdvance is the client's report that scrolling settled on a new index.
type FeedAdvance struct {
	Index int `json:"index"`
}
