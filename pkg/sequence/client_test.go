package sequence_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

func TestNew_invalidURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "/relative"} {
		if _, err := sequence.New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestNew_invalidRateLimit(t *testing.T) {
	if _, err := sequence.New("http://localhost", sequence.WithRateLimit(0, 1)); err == nil {
		t.Error("expected error for zero rps")
	}
}

func TestRequest_headersAndBody(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotID, gotCT string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("Id")
		gotCT = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"id": "k1"})
	}))
	defer srv.Close()

	c, err := sequence.New(srv.URL+"/", sequence.WithCredential("secret-cred"))
	if err != nil {
		t.Fatal(err)
	}

	key, err := c.Keys.Create(context.Background(), sequence.CreateKeyParams{ID: "k1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if key.ID != "k1" {
		t.Errorf("unexpected key id: %s", key.ID)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotPath != "/create-key" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer secret-cred" {
		t.Errorf("unexpected Authorization: %q", gotAuth)
	}
	if _, err := uuid.Parse(gotID); err != nil {
		t.Errorf("Id header is not a UUID: %q", gotID)
	}
	if gotCT != "application/json" {
		t.Errorf("unexpected Content-Type: %q", gotCT)
	}
	if gotBody["id"] != "k1" {
		t.Errorf("unexpected body: %v", gotBody)
	}
}

func TestRequest_nilBodySendsEmptyObject(t *testing.T) {
	var raw json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := sequence.MustNew(srv.URL)
	if err := c.DevUtils.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("expected {} body, got %s", raw)
	}
}

func TestRequest_structuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"code":       "SEQ050",
			"message":    "Duplicate key ID",
			"detail":     "key k1 already exists",
			"request_id": "req-1",
		})
	}))
	defer srv.Close()

	c := sequence.MustNew(srv.URL)
	_, err := c.Keys.Create(context.Background(), sequence.CreateKeyParams{ID: "k1"})

	var apiErr *sequence.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("unexpected status: %d", apiErr.Status)
	}
	if apiErr.Code != sequence.CodeDuplicateID {
		t.Errorf("unexpected code: %s", apiErr.Code)
	}
	if apiErr.RequestID != "req-1" {
		t.Errorf("unexpected request id: %s", apiErr.RequestID)
	}
	if !sequence.IsCode(err, sequence.CodeDuplicateID) {
		t.Error("IsCode should match SEQ050")
	}
}

func TestRequest_unstructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := sequence.MustNew(srv.URL)
	_, err := c.Keys.QueryPage(context.Background(), sequence.QueryParams{})

	var apiErr *sequence.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != sequence.CodeInternal {
		t.Errorf("unexpected code: %s", apiErr.Code)
	}
	if apiErr.Detail != "upstream exploded" {
		t.Errorf("unexpected detail: %q", apiErr.Detail)
	}
	if apiErr.RequestID == "" {
		t.Error("expected request id to fall back to the client's Id header")
	}
}

func TestRequest_decodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := sequence.MustNew(srv.URL)
	_, err := c.Keys.Create(context.Background(), sequence.CreateKeyParams{})
	if err == nil {
		t.Fatal("expected decode error")
	}
	var apiErr *sequence.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("decode failure should not be an APIError: %v", err)
	}
}

func TestRequest_rateLimitHonoursContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{"id": "k"})
	}))
	defer srv.Close()

	c := sequence.MustNew(srv.URL, sequence.WithRateLimit(0.001, 1))
	if _, err := c.Keys.Create(context.Background(), sequence.CreateKeyParams{}); err != nil {
		t.Fatalf("first request should use the burst: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Keys.Create(ctx, sequence.CreateKeyParams{}); err == nil {
		t.Fatal("expected rate limit wait to fail on cancelled context")
	}
	if calls != 1 {
		t.Errorf("expected 1 HTTP call, got %d", calls)
	}
}
