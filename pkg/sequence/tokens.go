package sequence

// Token is a holding of some amount of a flavor by an account.
type Token struct {
	Amount      uint64         `json:"amount"`
	FlavorID    string         `json:"flavor_id"`
	FlavorTags  map[string]any `json:"flavor_tags,omitempty"`
	AccountID   string         `json:"account_id"`
	AccountTags map[string]any `json:"account_tags,omitempty"`
}

// TokenSum is one group of a summed token query.
type TokenSum struct {
	Amount    uint64 `json:"amount"`
	FlavorID  string `json:"flavor_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

// TokensAPI queries current balances.
type TokensAPI struct {
	queryAPI[Token]
	sums pager[TokenSum]
}

// Sum returns a query over grouped balances, e.g. GroupBy: []string{"account_id"}.
func (t *TokensAPI) Sum(params SumParams) *Query[TokenSum] {
	return &Query[TokenSum]{pager: t.sums, req: params.request()}
}
