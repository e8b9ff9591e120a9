package ledgerd_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmerrifield20/sequence-sdk-go/internal/chain"
	"github.com/jmerrifield20/sequence-sdk-go/internal/ledgerd"
	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

func setupRouter(t *testing.T, cfg ledgerd.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return ledgerd.New(cfg, chain.New(), zap.NewNop()).Router()
}

func do(t *testing.T, r http.Handler, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// call posts body and decodes a 200 response into out.
func call(t *testing.T, r http.Handler, path string, body, out any) {
	t.Helper()
	w := do(t, r, path, body)
	if w.Code != http.StatusOK {
		t.Fatalf("%s: expected 200, got %d: %s", path, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) sequence.APIError {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	var env sequence.APIError
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, env.Code, env.Detail)
	}
	if env.RequestID == "" {
		t.Error("envelope should carry a request id")
	}
	return env
}

type keyPage struct {
	Items    []sequence.Key `json:"items"`
	Cursor   string         `json:"cursor"`
	LastPage bool           `json:"last_page"`
}

func TestCreateKey_generatesID(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	var k sequence.Key
	call(t, r, "/create-key", nil, &k)
	if k.ID == "" {
		t.Error("expected a generated key id")
	}
}

func TestCreateKey_duplicate(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	call(t, r, "/create-key", sequence.CreateKeyParams{ID: "k1"}, nil)

	w := do(t, r, "/create-key", sequence.CreateKeyParams{ID: "k1"}, "Id", "req-42")
	env := expectError(t, w, http.StatusBadRequest, sequence.CodeDuplicateID)
	if env.RequestID != "req-42" {
		t.Errorf("request id should echo the Id header, got %q", env.RequestID)
	}
}

func TestCreateKey_invalidBody(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	req := httptest.NewRequest(http.MethodPost, "/create-key", bytes.NewBufferString(`{"id":`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	expectError(t, w, http.StatusBadRequest, sequence.CodeInvalidBody)
}

func TestListKeys_exactPage(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	for i := 0; i < 20; i++ {
		call(t, r, "/create-key", nil, nil)
	}

	var p keyPage
	call(t, r, "/list-keys", map[string]any{"page_size": 20}, &p)
	if len(p.Items) != 20 {
		t.Errorf("expected 20 items, got %d", len(p.Items))
	}
	if p.Cursor != "" || !p.LastPage {
		t.Errorf("expected final page without cursor, got cursor=%q last=%v", p.Cursor, p.LastPage)
	}
}

func TestListKeys_cursorWalk(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		call(t, r, "/create-key", sequence.CreateKeyParams{ID: id}, nil)
	}

	var got []string
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
		var p keyPage
		call(t, r, "/list-keys", map[string]any{"page_size": 2, "cursor": cursor}, &p)
		for _, k := range p.Items {
			got = append(got, k.ID)
		}
		if p.LastPage {
			if p.Cursor != "" {
				t.Errorf("last page carries cursor %q", p.Cursor)
			}
			break
		}
		cursor = p.Cursor
	}
	if want := "a,b,c,d,e"; joinIDs(got) != want {
		t.Errorf("got %s, want %s", joinIDs(got), want)
	}
}

func joinIDs(ids []string) string {
	var b bytes.Buffer
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id)
	}
	return b.String()
}

func TestList_invalidCursor(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	w := do(t, r, "/list-keys", map[string]any{"cursor": "not-a-cursor"})
	expectError(t, w, http.StatusBadRequest, sequence.CodeInvalidBody)
}

func TestList_malformedFilter(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	w := do(t, r, "/list-accounts", map[string]any{"filter": "tags.type ="})
	expectError(t, w, http.StatusBadRequest, sequence.CodeMalformedFilter)
}

func TestListAccounts_filter(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	call(t, r, "/create-key", sequence.CreateKeyParams{ID: "k"}, nil)
	for _, tc := range []struct{ id, kind string }{{"a1", "checking"}, {"a2", "savings"}, {"a3", "checking"}} {
		call(t, r, "/create-account", sequence.CreateAccountParams{
			ID: tc.id, KeyIDs: []string{"k"}, Tags: map[string]any{"type": tc.kind},
		}, nil)
	}

	var p struct {
		Items []sequence.Account `json:"items"`
	}
	call(t, r, "/list-accounts", map[string]any{"filter": "tags.type=$1", "filter_params": []any{"checking"}}, &p)
	if len(p.Items) != 2 || p.Items[0].ID != "a1" || p.Items[1].ID != "a3" {
		t.Errorf("unexpected accounts: %+v", p.Items)
	}
}

func TestCreateAccount_unknownKey(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	w := do(t, r, "/create-account", sequence.CreateAccountParams{KeyIDs: []string{"missing"}})
	expectError(t, w, http.StatusNotFound, sequence.CodeNotFound)
}

func TestCreateAccount_badQuorum(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	call(t, r, "/create-key", sequence.CreateKeyParams{ID: "k"}, nil)
	w := do(t, r, "/create-account", sequence.CreateAccountParams{KeyIDs: []string{"k"}, Quorum: 2})
	expectError(t, w, http.StatusBadRequest, sequence.CodeInvalidBody)
}

func TestUpdateTags_notFound(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	w := do(t, r, "/update-flavor-tags", sequence.UpdateTagsParams{ID: "nope", Tags: map[string]any{"x": 1}})
	expectError(t, w, http.StatusNotFound, sequence.CodeNotFound)
}

func TestAuth_requiresCredential(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	r := setupRouter(t, ledgerd.Config{CredentialHash: string(hash)})

	expectError(t, do(t, r, "/list-keys", nil), http.StatusUnauthorized, sequence.CodeUnauthorized)
	expectError(t, do(t, r, "/list-keys", nil, "Authorization", "Bearer wrong"), http.StatusUnauthorized, sequence.CodeUnauthorized)

	for i := 0; i < 2; i++ {
		if w := do(t, r, "/list-keys", nil, "Authorization", "Bearer s3cret"); w.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("/healthz should be public, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{RateLimitRPS: 0.001, RateLimitBurst: 1})
	if w := do(t, r, "/list-keys", nil); w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}
	w := do(t, r, "/list-keys", nil)
	env := expectError(t, w, http.StatusTooManyRequests, sequence.CodeRateLimited)
	if !env.Retriable {
		t.Error("rate limit errors should be retriable")
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestMetrics_served(t *testing.T) {
	r := setupRouter(t, ledgerd.Config{})
	do(t, r, "/list-keys", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("ledgerd_requests_total")) {
		t.Error("expected ledgerd_requests_total in metrics output")
	}
}
