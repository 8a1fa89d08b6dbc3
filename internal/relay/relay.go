package relay

import (
	"context"
	"time"

	"payshield/internal/auth"
)

// Message announces a tab's identity change to its siblings. A nil
// Record means the tab signed out.
type Message struct {
	Origin string       `json:"origin"` // sending bridge instance
	Seq    uint64       `json:"seq"`    // per-origin, strictly increasing
	Record *auth.Record `json:"record"`
	SentAt time.Time    `json:"sent_at"`
}

// Relay broadcasts identity changes between tabs of one origin.
// Subscribers receive messages in publish order, their own included;
// filtering echoes is the receiver's job. Delivery is best-effort.
type Relay interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context, fn func(Message)) (unsubscribe func(), err error)
	Close() error
}
