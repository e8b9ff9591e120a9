package sequence

import "context"

// Key is a signing key held by the ledger.
type Key struct {
	ID string `json:"id"`
}

// CreateKeyParams configures a new key. ID is generated by the ledger when empty.
type CreateKeyParams struct {
	ID string `json:"id,omitempty"`
}

// KeysAPI creates and queries keys.
type KeysAPI struct {
	queryAPI[Key]
	r Requester
}

// Create creates a key. Creating a second key with the same ID fails with
// an *APIError carrying CodeDuplicateID.
func (k *KeysAPI) Create(ctx context.Context, params CreateKeyParams, cb ...Callback[*Key]) (*Key, error) {
	return settle(ctx, cb, func(ctx context.Context) (*Key, error) {
		var key Key
		if err := k.r.Request(ctx, "/create-key", params, &key); err != nil {
			return nil, err
		}
		return &key, nil
	})
}
