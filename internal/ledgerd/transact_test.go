package ledgerd_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jmerrifield20/sequence-sdk-go/internal/ledgerd"
	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

// seed creates key k, accounts alice and bob, and flavor usd.
func seed(t *testing.T, r *gin.Engine) {
	t.Helper()
	call(t, r, "/create-key", sequence.CreateKeyParams{ID: "k"}, nil)
	for _, id := range []string{"alice", "bob"} {
		call(t, r, "/create-account", sequence.CreateAccountParams{
			ID: id, KeyIDs: []string{"k"}, Tags: map[string]any{"owner": id},
		}, nil)
	}
	call(t, r, "/create-flavor", sequence.CreateFlavorParams{ID: "usd", KeyIDs: []string{"k"}}, nil)
}

func build(t *testing.T, r *gin.Engine, actions ...sequence.Action) json.RawMessage {
	t.Helper()
	var tpl json.RawMessage
	call(t, r, "/build-transaction", map[string]any{"actions": actions}, &tpl)
	return tpl
}

func sign(t *testing.T, r *gin.Engine, tpl json.RawMessage) json.RawMessage {
	t.Helper()
	var signed json.RawMessage
	call(t, r, "/sign-transaction", map[string]any{"transaction": tpl}, &signed)
	return signed
}

func transact(t *testing.T, r *gin.Engine, actions ...sequence.Action) sequence.Transaction {
	t.Helper()
	var tx sequence.Transaction
	call(t, r, "/submit-transaction", map[string]any{"transaction": sign(t, r, build(t, r, actions...))}, &tx)
	return tx
}

func issue(amount uint64, to string) sequence.Action {
	return sequence.Action{Type: sequence.ActionIssue, FlavorID: "usd", Amount: amount, DestinationAccountID: to}
}

func transfer(amount uint64, from, to string) sequence.Action {
	return sequence.Action{Type: sequence.ActionTransfer, FlavorID: "usd", Amount: amount,
		SourceAccountID: from, DestinationAccountID: to}
}

func balances(t *testing.T, r *gin.Engine) map[string]uint64 {
	t.Helper()
	var p struct {
		Items []sequence.Token `json:"items"`
	}
	call(t, r, "/list-tokens", nil, &p)
	out := make(map[string]uint64)
	for _, tok := range p.Items {
		out[tok.AccountID+"/"+tok.FlavorID] = tok.Amount
	}
	return out
}

func TestTransact_commits(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)

	tx := transact(t, r, issue(100, "alice"), transfer(30, "alice", "bob"))
	if tx.ID == "" || tx.SequenceNumber != 1 {
		t.Errorf("unexpected transaction header: %+v", tx)
	}
	if len(tx.Actions) != 2 || tx.Actions[0].Type != sequence.ActionIssue || tx.Actions[1].Type != sequence.ActionTransfer {
		t.Fatalf("actions out of order: %+v", tx.Actions)
	}
	if tx.Actions[1].SourceAccountTags["owner"] != "alice" {
		t.Errorf("expected source tags snapshot, got %v", tx.Actions[1].SourceAccountTags)
	}

	got := balances(t, r)
	if got["alice/usd"] != 70 || got["bob/usd"] != 30 {
		t.Errorf("unexpected balances: %v", got)
	}

	tx2 := transact(t, r, sequence.Action{Type: sequence.ActionRetire, FlavorID: "usd", Amount: 30, SourceAccountID: "bob"})
	if tx2.SequenceNumber != 2 {
		t.Errorf("expected sequence number 2, got %d", tx2.SequenceNumber)
	}
	if got := balances(t, r); got["bob/usd"] != 0 || len(got) != 1 {
		t.Errorf("retired balance should disappear from tokens: %v", got)
	}
}

func TestBuild_resolvesDeprecatedIdentifiers(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)

	var tpl ledgerd.Template
	call(t, r, "/build-transaction", map[string]any{"actions": []sequence.Action{{
		Type: sequence.ActionIssue, AssetAlias: "usd", Amount: 1, DestinationAccountAlias: "alice",
	}}}, &tpl)
	a := tpl.Actions[0]
	if a.FlavorID != "usd" || a.AssetAlias != "" || a.DestinationAccountID != "alice" {
		t.Errorf("identifiers not resolved: %+v", a)
	}
}

func TestBuild_rejections(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)

	cases := []struct {
		name   string
		action sequence.Action
		status int
		code   string
	}{
		{"unknown flavor", sequence.Action{Type: sequence.ActionIssue, FlavorID: "eur", Amount: 1, DestinationAccountID: "alice"}, http.StatusNotFound, sequence.CodeNotFound},
		{"unknown account", issue(1, "carol"), http.StatusNotFound, sequence.CodeNotFound},
		{"zero amount", issue(0, "alice"), http.StatusBadRequest, sequence.CodeRejected},
		{"missing source", transfer(1, "", "bob"), http.StatusBadRequest, sequence.CodeRejected},
		{"contract spend", sequence.Action{Type: sequence.ActionRetire, FlavorID: "usd", Amount: 1, SourceContractID: "c"}, http.StatusBadRequest, sequence.CodeRejected},
		{"unknown type", sequence.Action{Type: "mint", FlavorID: "usd", Amount: 1}, http.StatusBadRequest, sequence.CodeRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, "/build-transaction", map[string]any{"actions": []sequence.Action{tc.action}})
			expectError(t, w, tc.status, tc.code)
		})
	}

	expectError(t, do(t, r, "/build-transaction", map[string]any{}), http.StatusBadRequest, sequence.CodeRejected)
}

func TestSubmit_insufficientFunds(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)
	transact(t, r, issue(10, "alice"))

	signed := sign(t, r, build(t, r, transfer(11, "alice", "bob")))
	w := do(t, r, "/submit-transaction", map[string]any{"transaction": signed})
	env := expectError(t, w, http.StatusBadRequest, sequence.CodeInsufficientFunds)
	if env.Data["account_id"] != "alice" {
		t.Errorf("expected account in error data, got %v", env.Data)
	}
	if got := balances(t, r); got["alice/usd"] != 10 {
		t.Errorf("failed submit must not move funds: %v", got)
	}
}

func TestSubmit_unsigned(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)

	w := do(t, r, "/submit-transaction", map[string]any{"transaction": build(t, r, issue(1, "alice"))})
	expectError(t, w, http.StatusBadRequest, sequence.CodeBadSignature)
}

func TestSubmit_tamperedTemplate(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)

	var tpl ledgerd.Template
	if err := json.Unmarshal(sign(t, r, build(t, r, issue(1, "alice"))), &tpl); err != nil {
		t.Fatal(err)
	}
	tpl.Actions[0].Amount = 1000
	w := do(t, r, "/submit-transaction", map[string]any{"transaction": tpl})
	expectError(t, w, http.StatusBadRequest, sequence.CodeRejected)
}

func TestSubmit_replay(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)

	signed := sign(t, r, build(t, r, issue(5, "alice")))
	call(t, r, "/submit-transaction", map[string]any{"transaction": signed}, nil)
	w := do(t, r, "/submit-transaction", map[string]any{"transaction": signed})
	expectError(t, w, http.StatusBadRequest, sequence.CodeRejected)

	if got := balances(t, r); got["alice/usd"] != 5 {
		t.Errorf("replay must not apply twice: %v", got)
	}
}

func TestSubmit_missingBody(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	expectError(t, do(t, r, "/submit-transaction", map[string]any{}), http.StatusBadRequest, sequence.CodeInvalidBody)
}

func TestListActions_newestFirst(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)
	first := transact(t, r, issue(100, "alice"), issue(1, "bob"))
	second := transact(t, r, transfer(40, "alice", "bob"))

	var p struct {
		Items []sequence.ActionRecord `json:"items"`
	}
	call(t, r, "/list-actions", nil, &p)
	if len(p.Items) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(p.Items))
	}
	if p.Items[0].TransactionID != second.ID || p.Items[1].TransactionID != first.ID {
		t.Errorf("unexpected order: %+v", p.Items)
	}
	if p.Items[1].DestinationAccountID != "alice" || p.Items[2].DestinationAccountID != "bob" {
		t.Error("actions within a transaction should keep their order")
	}

	var txs struct {
		Items []sequence.Transaction `json:"items"`
	}
	call(t, r, "/list-transactions", map[string]any{"filter": "sequence_number=$1", "filter_params": []any{1}}, &txs)
	if len(txs.Items) != 1 || txs.Items[0].ID != first.ID {
		t.Errorf("filter on sequence_number failed: %+v", txs.Items)
	}
}

func TestSums(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)
	transact(t, r, issue(100, "alice"), issue(50, "bob"), transfer(10, "alice", "bob"))

	var actions struct {
		Items []sequence.ActionSum `json:"items"`
	}
	call(t, r, "/sum-actions", map[string]any{"group_by": []string{"type"}}, &actions)
	want := map[string]uint64{"issue": 150, "transfer": 10}
	if len(actions.Items) != len(want) {
		t.Fatalf("unexpected sums: %+v", actions.Items)
	}
	for _, s := range actions.Items {
		if want[s.Type] != s.Amount {
			t.Errorf("sum for %s: got %d, want %d", s.Type, s.Amount, want[s.Type])
		}
	}

	var tokens struct {
		Items []sequence.TokenSum `json:"items"`
	}
	call(t, r, "/sum-tokens", map[string]any{"group_by": []string{"flavor_id"}}, &tokens)
	if len(tokens.Items) != 1 || tokens.Items[0].Amount != 150 || tokens.Items[0].FlavorID != "usd" {
		t.Errorf("unexpected token sums: %+v", tokens.Items)
	}

	expectError(t, do(t, r, "/sum-tokens", map[string]any{"group_by": []string{"type"}}),
		http.StatusBadRequest, sequence.CodeInvalidBody)
}

func TestReset(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	seed(t, r)
	transact(t, r, issue(1, "alice"))

	call(t, r, "/reset", nil, nil)

	var keys keyPage
	call(t, r, "/list-keys", nil, &keys)
	if len(keys.Items) != 0 {
		t.Errorf("expected no keys after reset, got %d", len(keys.Items))
	}
	if got := balances(t, r); len(got) != 0 {
		t.Errorf("expected no balances after reset, got %v", got)
	}
	// IDs are free again.
	call(t, r, "/create-key", sequence.CreateKeyParams{ID: "k"}, nil)
}
