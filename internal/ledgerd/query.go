package ledgerd

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmerrifield20/sequence-sdk-go/internal/filter"
	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// listRequest is the body of every /list-* and /sum-* call.
type listRequest struct {
	Filter       string   `json:"filter"`
	FilterParams []any    `json:"filter_params"`
	PageSize     int      `json:"page_size"`
	Cursor       string   `json:"cursor"`
	StartTime    int64    `json:"start_time"` // Unix ms, exclusive
	EndTime      int64    `json:"end_time"`   // Unix ms, exclusive
	Timeout      int64    `json:"timeout"`
	GroupBy      []string `json:"group_by"`
}

type page[T any] struct {
	Items    []T    `json:"items"`
	Cursor   string `json:"cursor,omitempty"`
	LastPage bool   `json:"last_page"`
}

// Cursors are opaque to clients; the offset inside is an implementation detail.
func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("o:" + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errInvalidBody("invalid cursor")
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(raw), "o:"))
	if err != nil || n < 0 || !strings.HasPrefix(string(raw), "o:") {
		return 0, errInvalidBody("invalid cursor")
	}
	return n, nil
}

func compileFilter(req listRequest) (*filter.Filter, error) {
	f, err := filter.Parse(req.Filter, req.FilterParams)
	if err != nil {
		if errors.Is(err, filter.ErrMalformed) {
			return nil, errFilter(err)
		}
		return nil, err
	}
	return f, nil
}

// selectItems applies the filter and, when at is non-nil, the time range.
func selectItems[T any](items []T, req listRequest, at func(T) time.Time) ([]T, error) {
	f, err := compileFilter(req)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if at != nil && !inRange(at(it), req) {
			continue
		}
		ok, err := f.Match(it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// inRange reports whether t falls strictly between the request's start and
// end times.
func inRange(t time.Time, req listRequest) bool {
	ms := t.UnixMilli()
	if req.StartTime > 0 && ms <= req.StartTime {
		return false
	}
	if req.EndTime > 0 && ms >= req.EndTime {
		return false
	}
	return true
}

// paginate cuts one page out of the selected items. A page that reaches the
// end carries no cursor and LastPage.
func paginate[T any](items []T, req listRequest) (page[T], error) {
	size := req.PageSize
	switch {
	case size < 0:
		return page[T]{}, errInvalidBody("page_size must not be negative")
	case size == 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	offset, err := decodeCursor(req.Cursor)
	if err != nil {
		return page[T]{}, err
	}
	if offset > len(items) {
		offset = len(items)
	}

	end := min(offset+size, len(items))
	p := page[T]{Items: append(make([]T, 0, end-offset), items[offset:end]...)}
	if end < len(items) {
		p.Cursor = encodeCursor(end)
	} else {
		p.LastPage = true
	}
	return p, nil
}

func list[T any](items []T, req listRequest, at func(T) time.Time) (page[T], error) {
	selected, err := selectItems(items, req, at)
	if err != nil {
		return page[T]{}, err
	}
	return paginate(selected, req)
}

// ── sums ────────────────────────────────────────────────────────────────────

var (
	actionGroupFields = map[string]bool{"type": true, "flavor_id": true, "source_account_id": true, "destination_account_id": true}
	tokenGroupFields  = map[string]bool{"flavor_id": true, "account_id": true}
)

func checkGroupBy(fields []string, allowed map[string]bool) error {
	for _, f := range fields {
		if !allowed[f] {
			return errInvalidBody("cannot group by %q", f)
		}
	}
	return nil
}

// groupSums folds items into one sum per distinct group key, in order of
// first appearance.
func groupSums[T any, S comparable](items []T, key func(T) S, amount func(T) uint64, add func(*S, uint64)) []S {
	var out []S
	index := make(map[S]int)
	for _, it := range items {
		k := key(it)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, k)
		}
		add(&out[i], amount(it))
	}
	return out
}

func sumActions(items []sequence.ActionRecord, req listRequest) (page[sequence.ActionSum], error) {
	if err := checkGroupBy(req.GroupBy, actionGroupFields); err != nil {
		return page[sequence.ActionSum]{}, err
	}
	selected, err := selectItems(items, req, func(a sequence.ActionRecord) time.Time { return a.Timestamp })
	if err != nil {
		return page[sequence.ActionSum]{}, err
	}
	group := fieldSet(req.GroupBy)
	sums := groupSums(selected,
		func(a sequence.ActionRecord) sequence.ActionSum {
			var s sequence.ActionSum
			if group["type"] {
				s.Type = string(a.Type)
			}
			if group["flavor_id"] {
				s.FlavorID = a.FlavorID
			}
			if group["source_account_id"] {
				s.SourceAccountID = a.SourceAccountID
			}
			if group["destination_account_id"] {
				s.DestinationAccountID = a.DestinationAccountID
			}
			return s
		},
		func(a sequence.ActionRecord) uint64 { return a.Amount },
		func(s *sequence.ActionSum, n uint64) { s.Amount += n },
	)
	return paginate(sums, req)
}

func sumTokens(items []sequence.Token, req listRequest) (page[sequence.TokenSum], error) {
	if err := checkGroupBy(req.GroupBy, tokenGroupFields); err != nil {
		return page[sequence.TokenSum]{}, err
	}
	selected, err := selectItems(items, req, nil)
	if err != nil {
		return page[sequence.TokenSum]{}, err
	}
	group := fieldSet(req.GroupBy)
	sums := groupSums(selected,
		func(t sequence.Token) sequence.TokenSum {
			var s sequence.TokenSum
			if group["flavor_id"] {
				s.FlavorID = t.FlavorID
			}
			if group["account_id"] {
				s.AccountID = t.AccountID
			}
			return s
		},
		func(t sequence.Token) uint64 { return t.Amount },
		func(s *sequence.TokenSum, n uint64) { s.Amount += n },
	)
	return paginate(sums, req)
}

func fieldSet(fields []string) map[string]bool {
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}
