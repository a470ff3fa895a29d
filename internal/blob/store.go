// Package blob stores encrypted file bytes. The custody core never inspects
// the content: ciphertext goes in, ciphertext comes out, addressed by an
// opaque storage key.
package blob

import "context"

// Store persists opaque byte blobs under caller-chosen keys.
type Store interface {
	// Put persists data under key, replacing any previous content.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the content stored under key, or common.ErrorNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
}
