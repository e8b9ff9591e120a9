package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// appendLockKey serialises Append across ledger processes sharing one
// database. The value is arbitrary but must match in every process.
const appendLockKey = int64(7_310_442_019)

const selectColumns = `SELECT idx, timestamp, kind, ref, action_count, data_hash, prev_hash, hash FROM ledger_chain`

// PostgresLedger persists the chain in the ledger_chain table created by
// migrations/001_ledger_chain.up.sql. It implements Ledger.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// Append implements Ledger. The tail read and the insert run in one
// transaction holding an advisory lock.
func (l *PostgresLedger) Append(ctx context.Context, kind, ref string, actionCount int, payload any) (*Entry, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", appendLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevIdx int
	var prevHash string
	if err := tx.QueryRow(ctx,
		"SELECT idx, hash FROM ledger_chain ORDER BY idx DESC LIMIT 1",
	).Scan(&prevIdx, &prevHash); err != nil {
		return nil, fmt.Errorf("read chain tail: %w", err)
	}

	entry := &Entry{
		Index:       prevIdx + 1,
		Timestamp:   stamp(time.Now()),
		Kind:        kind,
		Ref:         ref,
		ActionCount: actionCount,
		DataHash:    sha256Sum(payloadJSON),
		PrevHash:    prevHash,
	}
	entry.Hash = hashEntry(entry)

	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_chain (idx, timestamp, kind, ref, action_count, data_hash, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Index, entry.Timestamp, entry.Kind, entry.Ref,
		entry.ActionCount, entry.DataHash, entry.PrevHash, entry.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert chain entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit chain tx: %w", err)
	}

	l.logger.Debug("chain entry appended",
		zap.Int("idx", entry.Index),
		zap.String("kind", entry.Kind),
		zap.String("ref", entry.Ref),
	)
	return entry, nil
}

// Get implements Ledger.
func (l *PostgresLedger) Get(ctx context.Context, index int) (*Entry, error) {
	entry, err := scanEntry(l.pool.QueryRow(ctx, selectColumns+" WHERE idx = $1", index))
	if err != nil {
		return nil, fmt.Errorf("get chain entry %d: %w", index, err)
	}
	return entry, nil
}

// Len implements Ledger.
func (l *PostgresLedger) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_chain").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chain entries: %w", err)
	}
	return n, nil
}

// Verify implements Ledger. It streams every row in index order.
func (l *PostgresLedger) Verify(ctx context.Context) error {
	rows, err := l.pool.Query(ctx, selectColumns+" ORDER BY idx ASC")
	if err != nil {
		return fmt.Errorf("query chain: %w", err)
	}
	defer rows.Close()

	var prev *Entry
	for rows.Next() {
		curr, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan chain row: %w", err)
		}
		if prev == nil {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
		} else if err := verifyLink(prev, curr); err != nil {
			return err
		}
		prev = curr
	}
	return rows.Err()
}

// Root implements Ledger.
func (l *PostgresLedger) Root(ctx context.Context) (string, error) {
	var hash string
	if err := l.pool.QueryRow(ctx,
		"SELECT hash FROM ledger_chain ORDER BY idx DESC LIMIT 1",
	).Scan(&hash); err != nil {
		return "", fmt.Errorf("get chain root: %w", err)
	}
	return hash, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	e := &Entry{}
	err := row.Scan(
		&e.Index, &e.Timestamp, &e.Kind, &e.Ref,
		&e.ActionCount, &e.DataHash, &e.PrevHash, &e.Hash,
	)
	if err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
