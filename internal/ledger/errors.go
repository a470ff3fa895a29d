package ledger

import "fmt"

// ChainValidationError reports the first record at which chain validation
// failed, either because a record's stored hash does not recompute or
// because its previous_hash does not match its predecessor.
type ChainValidationError struct {
	Index  int
	Reason string
}

func (e *ChainValidationError) Error() string {
	return fmt.Sprintf("ledger record %d: %s", e.Index, e.Reason)
}
