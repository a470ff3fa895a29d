package models

import "time"

// File describes server-side metadata for an encrypted upload. The ciphertext
// itself lives in blob storage under StorageKey, and the per-file key only
// ever appears wrapped inside ledger records.
type File struct {
	ID      string
	OwnerID string
	// Filename is the name the owner uploaded the file under.
	Filename string
	// StorageKey is the blob-store key of the ciphertext.
	StorageKey string
	// IV is the CBC initialization vector for the stored ciphertext.
	IV []byte
	// LedgerIndex points at the issue record that introduced the file.
	LedgerIndex int
	CreatedAt   time.Time
}
