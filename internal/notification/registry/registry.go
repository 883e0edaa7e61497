package registry

import "context"

// SentRegistry remembers which (orderId, category) notifications have
// been dispatched, enforcing at-most-once delivery per key.
type SentRegistry interface {
	// MarkSent atomically records the key and reports whether it was
	// newly recorded. A false return means the notification was
	// already sent.
	MarkSent(ctx context.Context, key string) (bool, error)
}
