package sequence

import "context"

// Account holds tokens and is controlled by a quorum of keys.
type Account struct {
	ID     string         `json:"id"`
	KeyIDs []string       `json:"key_ids"`
	Quorum int            `json:"quorum"`
	Tags   map[string]any `json:"tags,omitempty"`
}

// CreateAccountParams configures a new account.
type CreateAccountParams struct {
	// ID is generated by the ledger when empty.
	ID string `json:"id,omitempty"`
	// KeyIDs is required and must name existing keys.
	KeyIDs []string `json:"key_ids"`
	// Quorum defaults to len(KeyIDs) when zero.
	Quorum int            `json:"quorum,omitempty"`
	Tags   map[string]any `json:"tags,omitempty"`
}

// UpdateTagsParams replaces the tags of an account or flavor.
type UpdateTagsParams struct {
	ID   string         `json:"id"`
	Tags map[string]any `json:"tags"`
}

// AccountsAPI creates, updates and queries accounts.
type AccountsAPI struct {
	queryAPI[Account]
	r Requester
}

// Create creates an account.
func (a *AccountsAPI) Create(ctx context.Context, params CreateAccountParams, cb ...Callback[*Account]) (*Account, error) {
	return settle(ctx, cb, func(ctx context.Context) (*Account, error) {
		var acct Account
		if err := a.r.Request(ctx, "/create-account", params, &acct); err != nil {
			return nil, err
		}
		return &acct, nil
	})
}

// UpdateTags replaces an account's tags.
func (a *AccountsAPI) UpdateTags(ctx context.Context, params UpdateTagsParams, cb ...Callback[struct{}]) error {
	_, err := settle(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.r.Request(ctx, "/update-account-tags", params, nil)
	})
	return err
}
