package sequence

import "time"

// ActionRecord is an action as returned by the action listing.
type ActionRecord struct {
	TransactionAction
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ActionSum is one group of a summed action query. Only the fields named in
// SumParams.GroupBy are set, plus Amount.
type ActionSum struct {
	Amount               uint64 `json:"amount"`
	Type                 string `json:"type,omitempty"`
	FlavorID             string `json:"flavor_id,omitempty"`
	SourceAccountID      string `json:"source_account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
}

// ActionsAPI queries actions across all transactions.
type ActionsAPI struct {
	queryAPI[ActionRecord]
	sums pager[ActionSum]
}

// Sum returns a query over grouped action totals.
func (a *ActionsAPI) Sum(params SumParams) *Query[ActionSum] {
	return &Query[ActionSum]{pager: a.sums, req: params.request()}
}
