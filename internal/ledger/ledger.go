package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Ledger is the in-memory view of the chain plus its persistence. Appends
// are serialized by a single writer lock: each append reads the current tip
// hash before computing the next record, so two interleaved appends would
// fork the chain. Reads run concurrently under the read lock.
type Ledger struct {
	mu      sync.RWMutex
	store   Store
	records []*Record

	// grants maps fileID+user to the newest record index whose envelope is
	// wrapped for that user. Derived state only: rebuilt from a full scan
	// on load, maintained on append, never authoritative.
	grants map[grantKey]int

	// loadErr holds the validation failure observed when the chain was
	// loaded, if any. Kept so audits can surface it; appends proceed.
	loadErr error

	now func() time.Time
}

type grantKey struct {
	fileID string
	userID string
}

// Open loads the chain from store and validates it, or creates and persists
// a genesis record when the store is empty.
//
// A validation failure on load is surfaced through Err and Validate but does
// not block further appends: corruption is treated as an alarm condition for
// auditors, not a write outage.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	l := &Ledger{
		store:  store,
		grants: make(map[grantKey]int),
		now:    time.Now,
	}

	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}

	if len(records) == 0 {
		if err := l.createGenesis(ctx); err != nil {
			return nil, err
		}
		return l, nil
	}

	l.records = records
	l.loadErr = l.validateLocked()
	l.rebuildGrantsLocked()
	return l, nil
}

func (l *Ledger) createGenesis(ctx context.Context) error {
	genesis, err := newRecord(0, l.timestamp(), Payload{
		Action:  ActionGenesis,
		Message: genesisMessage,
	}, GenesisPreviousHash)
	if err != nil {
		return err
	}

	l.records = []*Record{genesis}
	if err := l.store.Save(ctx, l.records); err != nil {
		l.records = nil
		return fmt.Errorf("persist genesis: %w", err)
	}
	return nil
}

// Append creates a record for payload at the chain tip and persists the
// whole chain before returning. The returned record's index serves as the
// caller's receipt.
func (l *Ledger) Append(ctx context.Context, payload Payload) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tip := l.records[len(l.records)-1]
	record, err := newRecord(len(l.records), l.timestamp(), payload, tip.Hash)
	if err != nil {
		return nil, err
	}

	l.records = append(l.records, record)
	if err := l.store.Save(ctx, l.records); err != nil {
		// Keep memory consistent with what readers can load.
		l.records = l.records[:len(l.records)-1]
		return nil, fmt.Errorf("persist chain: %w", err)
	}

	if payload.Action == ActionIssue || payload.Action == ActionGrant {
		l.grants[grantKey{fileID: payload.FileID, userID: payload.holder()}] = record.Index
	}
	return record, nil
}

// Validate re-walks the full chain, recomputing every hash and checking
// every linkage. It is side-effect free and idempotent; the returned
// *ChainValidationError identifies the first broken record.
func (l *Ledger) Validate() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validateLocked()
}

func (l *Ledger) validateLocked() error {
	for i, record := range l.records {
		if record.Index != i {
			return &ChainValidationError{Index: i, Reason: fmt.Sprintf("unexpected index %d", record.Index)}
		}
		if err := record.verify(); err != nil {
			return err
		}
		if i == 0 {
			if record.PreviousHash != GenesisPreviousHash {
				return &ChainValidationError{Index: 0, Reason: "genesis previous_hash is not the sentinel"}
			}
			continue
		}
		if record.PreviousHash != l.records[i-1].Hash {
			return &ChainValidationError{Index: i, Reason: "previous_hash does not match predecessor"}
		}
	}
	return nil
}

// Err reports the validation failure observed when the chain was loaded,
// or nil if the chain loaded clean.
func (l *Ledger) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadErr
}

// Len returns the number of records in the chain.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Record returns the record at index i.
func (l *Ledger) Record(i int) (*Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.records) {
		return nil, false
	}
	return l.records[i], true
}

// Records returns a copy of the chain for audits and external inspection.
func (l *Ledger) Records() []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Record, len(l.records))
	copy(out, l.records)
	return out
}

// Grant returns the newest issue or grant record for fileID whose envelope
// is wrapped for userID. The lookup uses the derived index; rebuilding that
// index from a full scan always reproduces it.
func (l *Ledger) Grant(fileID, userID string) (*Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.grants[grantKey{fileID: fileID, userID: userID}]
	if !ok {
		return nil, false
	}
	return l.records[i], true
}

func (l *Ledger) rebuildGrantsLocked() {
	l.grants = make(map[grantKey]int, len(l.records))
	for _, record := range l.records {
		p := record.Data
		if p.Action != ActionIssue && p.Action != ActionGrant {
			continue
		}
		l.grants[grantKey{fileID: p.FileID, userID: p.holder()}] = record.Index
	}
}

// timestamp returns the current time as floating-point unix seconds, the
// representation used in the persisted chain document.
func (l *Ledger) timestamp() float64 {
	return float64(l.now().UnixNano()) / float64(time.Second)
}
