package sequence

import "context"

// DevUtilsAPI exposes operations only development ledgers accept.
type DevUtilsAPI struct {
	r Requester
}

// Reset deletes all data in the ledger.
func (d *DevUtilsAPI) Reset(ctx context.Context, cb ...Callback[struct{}]) error {
	_, err := settle(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.r.Request(ctx, "/reset", nil, nil)
	})
	return err
}
