package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryLedger is an in-memory, thread-safe Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New creates a MemoryLedger holding only the genesis entry.
func New() *MemoryLedger {
	return &MemoryLedger{entries: []*Entry{genesisEntry()}}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, kind, ref string, actionCount int, payload any) (*Entry, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.entries[len(l.entries)-1]
	entry := &Entry{
		Index:       len(l.entries),
		Timestamp:   stamp(time.Now()),
		Kind:        kind,
		Ref:         ref,
		ActionCount: actionCount,
		DataHash:    sha256Sum(payloadJSON),
		PrevHash:    prev.Hash,
	}
	entry.Hash = hashEntry(entry)
	l.entries = append(l.entries, entry)
	out := *entry
	return &out, nil
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, index int) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	e := *l.entries[index]
	return &e, nil
}

// Len implements Ledger.
func (l *MemoryLedger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Verify implements Ledger.
func (l *MemoryLedger) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, curr := range l.entries {
		if i == 0 {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
			continue
		}
		if err := verifyLink(l.entries[i-1], curr); err != nil {
			return err
		}
	}
	return nil
}

// Root implements Ledger.
func (l *MemoryLedger) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[len(l.entries)-1].Hash, nil
}
