package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Transaction is a committed set of actions.
type Transaction struct {
	ID             string              `json:"id"`
	Timestamp      time.Time           `json:"timestamp"`
	SequenceNumber int64               `json:"sequence_number"`
	ReferenceData  any                 `json:"reference_data,omitempty"`
	Actions        []TransactionAction `json:"actions"`
}

// TransactionAction is an action as recorded in a committed transaction.
type TransactionAction struct {
	ID                     string         `json:"id"`
	Type                   ActionType     `json:"type"`
	FlavorID               string         `json:"flavor_id"`
	FlavorTags             map[string]any `json:"flavor_tags,omitempty"`
	Amount                 uint64         `json:"amount"`
	SourceAccountID        string         `json:"source_account_id,omitempty"`
	SourceAccountTags      map[string]any `json:"source_account_tags,omitempty"`
	DestinationAccountID   string         `json:"destination_account_id,omitempty"`
	DestinationAccountTags map[string]any `json:"destination_account_tags,omitempty"`
	ReferenceData          any            `json:"reference_data,omitempty"`
}

// TransactionsAPI queries and submits transactions.
type TransactionsAPI struct {
	queryAPI[Transaction]
	r Requester
}

// BuildFunc adds actions to a fresh builder. Returning an error cancels the
// transaction before anything is sent.
type BuildFunc func(b *TransactionBuilder) error

// Transact builds, signs and submits a transaction. build runs first and
// must succeed before any request is made; after that the three stages run
// in order, each on the previous stage's output. The first failing stage's
// error is returned and nothing after it is attempted.
//
//	tx, err := c.Transactions.Transact(ctx, func(b *sequence.TransactionBuilder) error {
//	    b.Issue(sequence.IssueParams{FlavorID: "usd", Amount: 100, DestinationAccountID: "alice"})
//	    b.Transfer(sequence.TransferParams{
//	        SourceAccountID: "alice", DestinationAccountID: "bob",
//	        FlavorID: "usd", Amount: 25,
//	    })
//	    return nil
//	})
func (t *TransactionsAPI) Transact(ctx context.Context, build BuildFunc, cb ...Callback[*Transaction]) (*Transaction, error) {
	return settle(ctx, cb, func(ctx context.Context) (*Transaction, error) {
		if build == nil {
			return nil, errors.New("transact: nil build function")
		}
		b := NewTransactionBuilder()
		if err := build(b); err != nil {
			return nil, err
		}
		if err := b.Err(); err != nil {
			return nil, err
		}

		var tpl json.RawMessage
		if err := t.r.Request(ctx, "/build-transaction", b, &tpl); err != nil {
			return nil, fmt.Errorf("build transaction: %w", err)
		}

		var signed json.RawMessage
		if err := t.r.Request(ctx, "/sign-transaction", map[string]any{"transaction": tpl}, &signed); err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}

		var tx Transaction
		if err := t.r.Request(ctx, "/submit-transaction", map[string]any{"transaction": signed}, &tx); err != nil {
			return nil, fmt.Errorf("submit transaction: %w", err)
		}
		return &tx, nil
	})
}
