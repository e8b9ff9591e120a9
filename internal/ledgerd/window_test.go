package ledgerd_test

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmerrifield20/sequence-sdk-go/internal/ledgerd"
	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// stampedTransactions commits three single-issue transactions, each in its
// own millisecond, and returns their commit times in Unix ms.
func stampedTransactions(t *testing.T, r *gin.Engine) (ids []string, ms []int64) {
	t.Helper()
	seed(t, r)
	for i := 0; i < 3; i++ {
		if i > 0 {
			time.Sleep(2 * time.Millisecond)
		}
		tx := transact(t, r, issue(uint64(i+1), "alice"))
		ids = append(ids, tx.ID)
		ms = append(ms, tx.Timestamp.UnixMilli())
	}
	if ms[0] == ms[1] || ms[1] == ms[2] {
		t.Fatalf("transactions share a millisecond: %v", ms)
	}
	return ids, ms
}

func TestListTransactions_timeWindow(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	ids, ms := stampedTransactions(t, r)

	cases := []struct {
		name       string
		start, end int64
		want       []string // newest first
	}{
		{"unbounded", 0, 0, []string{ids[2], ids[1], ids[0]}},
		{"bounds exclude items stamped exactly on them", ms[0], ms[2], []string{ids[1]}},
		{"bounds just outside", ms[0] - 1, ms[2] + 1, []string{ids[2], ids[1], ids[0]}},
		{"start only", ms[1], 0, []string{ids[2]}},
		{"end only", 0, ms[1], []string{ids[0]}},
		{"empty window", ms[1], ms[1], nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p struct {
				Items []sequence.Transaction `json:"items"`
			}
			call(t, r, "/list-transactions", map[string]any{"start_time": tc.start, "end_time": tc.end}, &p)
			var got []string
			for _, tx := range p.Items {
				got = append(got, tx.ID)
			}
			if joinIDs(got) != joinIDs(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestListActions_timeWindow(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	ids, ms := stampedTransactions(t, r)

	cases := []struct {
		name       string
		start, end int64
		want       []string // transaction IDs, newest first
	}{
		{"bounds exclude items stamped exactly on them", ms[0], ms[2], []string{ids[1]}},
		{"start only", ms[1], 0, []string{ids[2]}},
		{"end only", 0, ms[1], []string{ids[0]}},
		{"start just before first", ms[0] - 1, 0, []string{ids[2], ids[1], ids[0]}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p struct {
				Items []sequence.ActionRecord `json:"items"`
			}
			call(t, r, "/list-actions", map[string]any{"start_time": tc.start, "end_time": tc.end}, &p)
			var got []string
			for _, a := range p.Items {
				got = append(got, a.TransactionID)
			}
			if joinIDs(got) != joinIDs(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
