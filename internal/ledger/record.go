// Package ledger implements the append-only, hash-linked record chain that
// stores wrapped file keys. Every record links to its predecessor through a
// SHA-256 hash over a canonical serialization, which makes any later edit of
// an earlier record detectable. The ledger is an audit log: it does not
// enforce referential integrity against the user or file stores.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/securecloudx/securecloudx/internal/cryptox"
)

// GenesisPreviousHash is the previous_hash sentinel of the genesis record.
const GenesisPreviousHash = "0"

// genesisMessage is recorded in the data field of the genesis record.
const genesisMessage = "SecureCloudX ledger initialized"

// Action is the custody event kind carried by a record.
type Action string

const (
	// ActionGenesis marks the fixed first record of every chain.
	ActionGenesis Action = "genesis"

	// ActionIssue records a file key created and wrapped for its owner.
	ActionIssue Action = "issue"

	// ActionGrant records a file key re-wrapped for a recipient.
	ActionGrant Action = "grant"
)

// Payload is the structured data field of a record: a genesis marker or a
// custody event. The wrapped key envelope is the only representation of a
// file key that is ever persisted.
type Payload struct {
	Action      Action            `json:"action"`
	Message     string            `json:"message,omitempty"`
	FileID      string            `json:"file_id,omitempty"`
	OwnerID     string            `json:"owner_id,omitempty"`
	RecipientID string            `json:"recipient_id,omitempty"`
	Filename    string            `json:"filename,omitempty"`
	WrappedKey  *cryptox.Envelope `json:"wrapped_key,omitempty"`
}

// holder returns the user the payload's envelope is wrapped for.
func (p *Payload) holder() string {
	if p.Action == ActionGrant {
		return p.RecipientID
	}
	return p.OwnerID
}

// Record is one link of the chain. Hash covers the canonical serialization
// of all other fields; PreviousHash is the Hash of the preceding record
// (GenesisPreviousHash for index 0).
type Record struct {
	Index        int     `json:"index"`
	Timestamp    float64 `json:"timestamp"`
	Data         Payload `json:"data"`
	PreviousHash string  `json:"previous_hash"`
	Hash         string  `json:"hash"`
}

// newRecord builds a record and computes its hash.
func newRecord(index int, timestamp float64, data Payload, previousHash string) (*Record, error) {
	r := &Record{
		Index:        index,
		Timestamp:    timestamp,
		Data:         data,
		PreviousHash: previousHash,
	}
	h, err := r.ComputeHash()
	if err != nil {
		return nil, err
	}
	r.Hash = h
	return r, nil
}

// ComputeHash returns the SHA-256 hex digest of the record's canonical
// serialization: a JSON object with sorted keys over index, timestamp, data
// and previous_hash. The hash field itself is excluded.
func (r *Record) ComputeHash() (string, error) {
	canonical, err := json.Marshal(map[string]any{
		"index":         r.Index,
		"timestamp":     r.Timestamp,
		"data":          r.Data,
		"previous_hash": r.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("serialize record %d: %w", r.Index, err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// verify recomputes the record's hash and compares it to the stored value.
func (r *Record) verify() error {
	h, err := r.ComputeHash()
	if err != nil {
		return &ChainValidationError{Index: r.Index, Reason: err.Error()}
	}
	if h != r.Hash {
		return &ChainValidationError{Index: r.Index, Reason: "stored hash does not match recomputed hash"}
	}
	return nil
}
