package sequence_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// ── Mock requester ──────────────────────────────────────────────────────

type recordedCall struct {
	Path string
	Body json.RawMessage
}

// mockRequester records every call and answers through handle.
type mockRequester struct {
	mu     sync.Mutex
	calls  []recordedCall
	handle func(path string, body json.RawMessage) (any, error)
}

func (m *mockRequester) Request(_ context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.calls = append(m.calls, recordedCall{Path: path, Body: raw})
	m.mu.Unlock()

	resp, err := m.handle(path, raw)
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (m *mockRequester) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockRequester) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.Path
	}
	return out
}

func newMockClient(t *testing.T, handle func(path string, body json.RawMessage) (any, error)) (*sequence.Client, *mockRequester) {
	t.Helper()
	m := &mockRequester{handle: handle}
	c, err := sequence.New("", sequence.WithRequester(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, m
}

// ── Paged key source ────────────────────────────────────────────────────

type listBody struct {
	Cursor   string `json:"cursor"`
	PageSize int    `json:"page_size"`
}

// pagedKeys serves n keys named key-0 .. key-(n-1), pageSize at a time
// (defaultSize when the request leaves it unset). Cursors are offsets.
func pagedKeys(n, defaultSize int) func(string, json.RawMessage) (any, error) {
	return func(_ string, raw json.RawMessage) (any, error) {
		var b listBody
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		size := b.PageSize
		if size <= 0 {
			size = defaultSize
		}
		start := 0
		if b.Cursor != "" {
			start, _ = strconv.Atoi(b.Cursor)
		}
		end := min(start+size, n)

		items := []map[string]any{}
		for i := start; i < end; i++ {
			items = append(items, map[string]any{"id": "key-" + strconv.Itoa(i)})
		}
		page := map[string]any{"items": items, "last_page": end >= n}
		if end < n {
			page["cursor"] = strconv.Itoa(end)
		}
		return page, nil
	}
}

func keyIDs(keys []sequence.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.ID
	}
	return out
}

func expectedKeyIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "key-" + strconv.Itoa(i)
	}
	return out
}
