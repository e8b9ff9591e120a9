package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisHash is the hash of the genesis entry and the trust anchor of the
// chain. It is a constant, not a computed value.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry kinds.
const (
	KindGenesis     = "genesis"
	KindTransaction = "transaction"
	KindReset       = "reset"
)

// Entry is a single record in the chain.
type Entry struct {
	Index       int       `json:"index"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	Ref         string    `json:"ref"`          // transaction ID; empty for genesis and reset
	ActionCount int       `json:"action_count"` // number of actions in the transaction
	DataHash    string    `json:"data_hash"`    // SHA-256 of the JSON payload
	PrevHash    string    `json:"prev_hash"`
	Hash        string    `json:"hash"`
}

// stamp normalises t to the precision and zone a TIMESTAMPTZ column
// round-trips, so a stored entry hashes the same after it is read back.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// hashEntry computes a deterministic SHA-256 over an entry's fields.
// Never called on the genesis entry.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%d|%s|%s",
		e.Index, stamp(e.Timestamp).Format(time.RFC3339Nano),
		e.Kind, e.Ref, e.ActionCount, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func sha256Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func genesisEntry() *Entry {
	return &Entry{
		Index:     0,
		Timestamp: stamp(time.Now()),
		Kind:      KindGenesis,
		DataHash:  GenesisHash,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash,
	}
}

// verifyLink checks curr against its predecessor.
func verifyLink(prev, curr *Entry) error {
	if curr.PrevHash != prev.Hash {
		return fmt.Errorf("hash chain broken at index %d", curr.Index)
	}
	if curr.Hash != hashEntry(curr) {
		return fmt.Errorf("entry %d has invalid hash", curr.Index)
	}
	return nil
}
