package ledger

import "context"

// Store persists the full chain. Save must be atomic from a reader's point
// of view: a concurrent Load sees either the previous chain or the new one,
// never a partial write.
type Store interface {
	// Load returns all persisted records ordered by index, or an empty
	// slice when nothing has been persisted yet.
	Load(ctx context.Context) ([]*Record, error)

	// Save persists the complete chain.
	Save(ctx context.Context, records []*Record) error
}
