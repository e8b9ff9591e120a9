package sequence

import (
	"context"
	"fmt"
	"time"
)

// QueryParams selects and pages through items of one resource type.
// The zero value matches everything using the server's default page size.
type QueryParams struct {
	// Filter is a filter expression, e.g. "tags.type=$1 AND id=$2".
	Filter string
	// FilterParams are the positional values for $1, $2, ... in Filter.
	FilterParams []any
	// PageSize bounds the number of items per page. Zero means server default.
	PageSize int
	// Cursor resumes a previous query. Leave empty to start from the beginning.
	Cursor string
	// StartTime and EndTime bound the block time window scanned: an item
	// matches when its time is after StartTime and before EndTime, at
	// millisecond precision. Zero means unbounded. Transaction and action
	// listings honour them.
	StartTime time.Time
	EndTime   time.Time
	// Timeout is how long the server may wait for results. Zero means the
	// server default of one second.
	Timeout time.Duration
}

// SumParams groups and sums amounts across matching items.
type SumParams struct {
	QueryParams
	// GroupBy lists the fields to group sums by, e.g. "flavor_id".
	GroupBy []string
}

// PageParams controls a single page fetch through Query.Page.
type PageParams struct {
	Size   int
	Cursor string
}

// queryRequest is the wire form of QueryParams.
type queryRequest struct {
	Filter       string   `json:"filter,omitempty"`
	FilterParams []any    `json:"filter_params,omitempty"`
	PageSize     int      `json:"page_size,omitempty"`
	Cursor       string   `json:"cursor,omitempty"`
	StartTime    int64    `json:"start_time,omitempty"`
	EndTime      int64    `json:"end_time,omitempty"`
	Timeout      int64    `json:"timeout,omitempty"`
	GroupBy      []string `json:"group_by,omitempty"`
}

func (p QueryParams) request() queryRequest {
	req := queryRequest{
		Filter:       p.Filter,
		FilterParams: p.FilterParams,
		PageSize:     p.PageSize,
		Cursor:       p.Cursor,
		Timeout:      p.Timeout.Milliseconds(),
	}
	if !p.StartTime.IsZero() {
		req.StartTime = p.StartTime.UnixMilli()
	}
	if !p.EndTime.IsZero() {
		req.EndTime = p.EndTime.UnixMilli()
	}
	return req
}

func (p SumParams) request() queryRequest {
	req := p.QueryParams.request()
	req.GroupBy = p.GroupBy
	return req
}

// Page is one round trip's worth of results.
type Page[T any] struct {
	Items []T `json:"items"`
	// Cursor fetches the following page. Empty on the last page.
	Cursor   string `json:"cursor,omitempty"`
	LastPage bool   `json:"last_page"`
}

// HasNext reports whether another page may be requested with Cursor.
func (p *Page[T]) HasNext() bool {
	return !p.LastPage && p.Cursor != ""
}

// Step tells an iteration whether to keep going.
type Step int

const (
	// Continue asks for the next item.
	Continue Step = iota
	// Stop ends the iteration successfully; no further pages are fetched.
	Stop
)

// Consumer is called once per item during iteration. Returning an error
// fails the iteration with that error.
type Consumer[T any] func(ctx context.Context, item T) (Step, error)

// pager drives one listing endpoint.
type pager[T any] struct {
	r    Requester
	path string
}

func (p pager[T]) page(ctx context.Context, req queryRequest) (*Page[T], error) {
	page := &Page[T]{}
	if err := p.r.Request(ctx, p.path, req, page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// each fetches a page, feeds every item to consume, then advances the
// cursor. Pages are fetched strictly one at a time; the next fetch starts
// only after consume has seen the last item of the current page.
func (p pager[T]) each(ctx context.Context, req queryRequest, consume Consumer[T]) error {
	if consume == nil {
		return fmt.Errorf("%s: nil consumer", p.path)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := p.page(ctx, req)
		if err != nil {
			return err
		}

		for _, item := range page.Items {
			step, err := consume(ctx, item)
			if err != nil {
				return err
			}
			if step == Stop {
				return nil
			}
		}

		if !page.HasNext() {
			return nil
		}
		if page.Cursor == req.Cursor {
			return fmt.Errorf("%s: %w", p.path, ErrCursorStalled)
		}
		req.Cursor = page.Cursor
	}
}

func (p pager[T]) all(ctx context.Context, req queryRequest) ([]T, error) {
	items := []T{}
	err := p.each(ctx, req, func(_ context.Context, item T) (Step, error) {
		items = append(items, item)
		return Continue, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// queryAPI is the query surface shared by every listable resource.
type queryAPI[T any] struct {
	pager pager[T]
}

func newQueryAPI[T any](r Requester, path string) queryAPI[T] {
	return queryAPI[T]{pager: pager[T]{r: r, path: path}}
}

// QueryPage fetches one page of items matching params.
func (q queryAPI[T]) QueryPage(ctx context.Context, params QueryParams, cb ...Callback[*Page[T]]) (*Page[T], error) {
	return settle(ctx, cb, func(ctx context.Context) (*Page[T], error) {
		return q.pager.page(ctx, params.request())
	})
}

// QueryEach calls consumer once per matching item, in server order, until
// the results are exhausted or consumer returns Stop.
func (q queryAPI[T]) QueryEach(ctx context.Context, params QueryParams, consumer Consumer[T], cb ...Callback[struct{}]) error {
	_, err := settle(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, q.pager.each(ctx, params.request(), consumer)
	})
	return err
}

// QueryAll returns every matching item in server order. It holds the whole
// result set in memory; prefer QueryEach for large ledgers.
func (q queryAPI[T]) QueryAll(ctx context.Context, params QueryParams, cb ...Callback[[]T]) ([]T, error) {
	return settle(ctx, cb, func(ctx context.Context) ([]T, error) {
		return q.pager.all(ctx, params.request())
	})
}

// List returns a reusable query over items matching params.
func (q queryAPI[T]) List(params QueryParams) *Query[T] {
	return &Query[T]{pager: q.pager, req: params.request()}
}

// Query is a filter bound to one listing endpoint. It is immutable; Page and
// All may be called any number of times.
type Query[T any] struct {
	pager pager[T]
	req   queryRequest
}

// Page fetches a single page. PageParams override the query's page size and
// cursor when set.
func (q *Query[T]) Page(ctx context.Context, pp PageParams, cb ...Callback[*Page[T]]) (*Page[T], error) {
	req := q.req
	if pp.Size > 0 {
		req.PageSize = pp.Size
	}
	if pp.Cursor != "" {
		req.Cursor = pp.Cursor
	}
	return settle(ctx, cb, func(ctx context.Context) (*Page[T], error) {
		return q.pager.page(ctx, req)
	})
}

// All iterates over every item the query matches.
func (q *Query[T]) All(ctx context.Context, consumer Consumer[T], cb ...Callback[struct{}]) error {
	_, err := settle(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, q.pager.each(ctx, q.req, consumer)
	})
	return err
}
