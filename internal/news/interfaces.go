package news

import (
	"context"
	"time"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces cycle identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Adapter turns one source's response into raw entries.
type Adapter interface {
	Fetch(ctx context.Context, src Source) ([]RawEntry, error)
}

// Getter retrieves a document body.
type Getter interface {
	Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Provider yields the current ranked items.
type Provider interface {
	Latest(ctx context.Context) ([]Item, error)
}

// SubscriberStore persists notification subscribers and delivered links.
type SubscriberStore interface {
	AddSubscriber(ctx context.Context, chatID int64) (bool, error)
	RemoveSubscriber(ctx context.Context, chatID int64) (bool, error)
	Subscribers(ctx context.Context) ([]int64, error)
	IsSeen(ctx context.Context, link string) (bool, error)
	MarkSeen(ctx context.Context, link string) (bool, error)
}
