// Package sequence is the Go SDK for a Sequence-style ledger.
//
// It covers transaction construction and submission and paginated queries
// over every ledger resource. The ledger does all validation, signing and
// bookkeeping; this package shapes requests and walks result pages.
//
// # Connecting
//
//	c, err := sequence.New("https://api.seq.com/my-ledger",
//	    sequence.WithCredential(os.Getenv("SEQ_CREDENTIAL")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Transacting
//
// Transact hands a fresh TransactionBuilder to your function, then builds,
// signs and submits the result. If your function returns an error, or an
// action is missing a required field, nothing is sent:
//
//	tx, err := c.Transactions.Transact(ctx, func(b *sequence.TransactionBuilder) error {
//	    b.Issue(sequence.IssueParams{
//	        FlavorID:             "usd",
//	        Amount:               100,
//	        DestinationAccountID: "alice",
//	    })
//	    return nil
//	})
//
// # Querying
//
// Every listable resource offers the same three access patterns:
//
//	page, err := c.Keys.QueryPage(ctx, sequence.QueryParams{PageSize: 20})
//
//	err = c.Actions.QueryEach(ctx, sequence.QueryParams{
//	    Filter:       "type=$1 AND flavor_id=$2",
//	    FilterParams: []any{"issue", "usd"},
//	}, func(ctx context.Context, a sequence.ActionRecord) (sequence.Step, error) {
//	    fmt.Println(a.TransactionID, a.Amount)
//	    return sequence.Continue, nil
//	})
//
//	all, err := c.Accounts.QueryAll(ctx, sequence.QueryParams{})
//
// Return sequence.Stop from a consumer to end iteration early; no further
// pages are requested. Pages are fetched one at a time, never ahead of the
// consumer.
//
// # Callbacks
//
// Every operation also accepts an optional trailing callback. It is invoked
// exactly once with the same result the call returns:
//
//	c.Keys.Create(ctx, sequence.CreateKeyParams{}, func(k *sequence.Key, err error) {
//	    // ...
//	})
//
// To run an operation in the background use Async, which returns a Future.
//
// # Errors
//
// Failures reported by the ledger are *APIError values. Use IsCode to test
// for a specific code:
//
//	if sequence.IsCode(err, sequence.CodeDuplicateID) { ... }
package sequence
