package sequence

import "context"

// Flavor is a class of fungible units. Issuing it requires a quorum of its keys.
type Flavor struct {
	ID     string         `json:"id"`
	KeyIDs []string       `json:"key_ids"`
	Quorum int            `json:"quorum"`
	Tags   map[string]any `json:"tags,omitempty"`
}

// CreateFlavorParams configures a new flavor.
type CreateFlavorParams struct {
	ID     string         `json:"id,omitempty"`
	KeyIDs []string       `json:"key_ids"`
	Quorum int            `json:"quorum,omitempty"`
	Tags   map[string]any `json:"tags,omitempty"`
}

// FlavorsAPI creates, updates and queries flavors.
type FlavorsAPI struct {
	queryAPI[Flavor]
	r Requester
}

// Create creates a flavor.
func (f *FlavorsAPI) Create(ctx context.Context, params CreateFlavorParams, cb ...Callback[*Flavor]) (*Flavor, error) {
	return settle(ctx, cb, func(ctx context.Context) (*Flavor, error) {
		var flavor Flavor
		if err := f.r.Request(ctx, "/create-flavor", params, &flavor); err != nil {
			return nil, err
		}
		return &flavor, nil
	})
}

// UpdateTags replaces a flavor's tags.
func (f *FlavorsAPI) UpdateTags(ctx context.Context, params UpdateTagsParams, cb ...Callback[struct{}]) error {
	_, err := settle(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.r.Request(ctx, "/update-flavor-tags", params, nil)
	})
	return err
}
