package chain

import "context"

// Ledger is the append-only, hash-chained log.
type Ledger interface {
	// Append adds an entry of the given kind chained to the previous one.
	// payload is JSON-marshalled and its SHA-256 is stored as DataHash.
	Append(ctx context.Context, kind, ref string, actionCount int, payload any) (*Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Len returns the number of entries, including genesis.
	Len(ctx context.Context) (int, error)

	// Verify walks the whole chain and checks hash consistency.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recent entry.
	Root(ctx context.Context) (string, error)
}
