package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"budget/internal/ingest"
	"budget/internal/limits"
	"budget/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewServer(":0", ingest.NewService(repo), limits.NewService(repo), repo, nil, 10)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz status=%d", rr.Code)
	}
}

func TestCreateTransactionValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t)

	// Malformed body
	rr := doJSON(t, srv, http.MethodPost, "/transactions", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", rr.Code)
	}

	// Empty description
	rr = doJSON(t, srv, http.MethodPost, "/transactions",
		`{"kind":"cash","description":"  ","amount":"5.00"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty description: expected 422, got %d", rr.Code)
	}

	// Card kind without a card name
	rr = doJSON(t, srv, http.MethodPost, "/transactions",
		`{"kind":"card","description":"coffee","amount":"5.00"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing card: expected 422, got %d", rr.Code)
	}

	// Valid entry
	rr = doJSON(t, srv, http.MethodPost, "/transactions",
		`{"kind":"card","card":"Visa","description":"coffee","amount":"5.50","category":"Food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected non-zero id")
	}

	// Fetch it back
	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+strconv.FormatInt(created.ID, 10), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"coffee"`) {
		t.Fatalf("get body missing description: %s", rr.Body.String())
	}

	// Manual entries are exempt from dedup: the same payload lands again.
	rr = doJSON(t, srv, http.MethodPost, "/transactions",
		`{"kind":"card","card":"Visa","description":"coffee","amount":"5.50","category":"Food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("repeat create: expected 201, got %d", rr.Code)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/transactions/999", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions/abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: expected 400, got %d", rr.Code)
	}
}

func TestImportInlineDeduplicates(t *testing.T) {
	srv := newTestServer(t)

	body := `{"source":"pdf","items":[
		{"kind":"card","card":"Visa","description":"Grocery run","amount":"42.00","occurred_at":"2025-03-10T09:30:00Z"},
		{"kind":"card","card":"Visa","description":"Grocery run","amount":"42.00","occurred_at":"2025-03-10T18:00:00Z"},
		{"kind":"cash","description":"","amount":"1.00"}
	]}`
	rr := doJSON(t, srv, http.MethodPost, "/import", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var stats struct {
		Total      int `json:"total"`
		Imported   int `json:"imported"`
		Duplicates int `json:"duplicates"`
		Errors     int `json:"errors"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 3 || stats.Imported != 1 || stats.Duplicates != 1 || stats.Errors != 1 {
		t.Fatalf("stats = %+v, want total=3 imported=1 duplicates=1 errors=1", stats)
	}
}

func TestImportRejectsUnknownSource(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/import", `{"source":"carrier-pigeon","items":[]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestImportAsyncWithoutQueue(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/import", `{"source":"email","items":[],"async":true}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestLimitLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// No policy yet
	rr := doJSON(t, srv, http.MethodGet, "/limits/check?category=Food&period=monthly", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("check without policy: expected 404, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/limits",
		`{"category":"Food","period":"monthly","limit":"100.00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("set limit: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	// Invalid period
	rr = doJSON(t, srv, http.MethodPost, "/limits",
		`{"category":"Food","period":"fortnightly","limit":"100.00"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad period: expected 422, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/limits/check?category=Food&period=monthly", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("check: expected 200, got %d", rr.Code)
	}
	var status struct {
		Exceeded bool `json:"exceeded"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Exceeded {
		t.Fatal("fresh limit should not be exceeded")
	}

	rr = doJSON(t, srv, http.MethodGet, "/limits", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"Food"`) {
		t.Fatalf("list limits: code=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCardsAndCategories(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/cards", `{"name":"Visa"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add card: expected 201, got %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodPost, "/cards", `{"name":"Visa"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate card: expected 409, got %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodPost, "/cards", `{"name":"  "}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank card: expected 422, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/cards", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Visa") {
		t.Fatalf("list cards: code=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/categories", `{"name":"Food","description":"groceries and eating out"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add category: expected 201, got %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/categories", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Food") {
		t.Fatalf("list categories: code=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestBalances(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPut, "/balances/cash", `{"amount":"120.50"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set balance: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/balances/cash", `{"amount":"twelve"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount: expected 422, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/balances", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "120.50") {
		t.Fatalf("list balances: code=%d body=%s", rr.Code, rr.Body.String())
	}
}

