package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"neuronbudget/internal/backend"
	"neuronbudget/internal/repository"
	"neuronbudget/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo := repository.New(backend.NewSelector(memory.New(), nil), nil, time.Second)
	return NewServer(":0", repo)
}

func doJSON(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/transactions",
		`{"type":"income","amount":"1500","category":"Salary","date":"2026-05-01"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("bad create response %q: %v", rr.Body.String(), err)
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions", "", nil)
	if rr.Code != 200 {
		t.Fatalf("list status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"Salary"`) {
		t.Fatalf("list missing record: %s", rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/balance", "", nil)
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "1500") {
		t.Fatalf("balance status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodDelete, "/transactions/"+created.ID, "", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/transactions/"+created.ID, "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleting a missing record should 404, got %d", rr.Code)
	}
}

func TestValidationErrorsReturn422(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name, path, body string
	}{
		{"negative amount", "/transactions", `{"type":"expense","amount":"-5","category":"Food","date":"2026-05-01"}`},
		{"unknown type", "/transactions", `{"type":"transfer","amount":"5","category":"Food","date":"2026-05-01"}`},
		{"malformed body", "/transactions", `{"type":`},
		{"income category budget", "/budgets", `{"category":"Salary","limit":"100","period":"monthly"}`},
		{"bad period", "/budgets", `{"category":"Food","limit":"100","period":"yearly"}`},
		{"goal without target", "/goals", `{"name":"Car","target":"0","deadline":"2026-12-31"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, tc.path, tc.body, nil)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSignedInWithoutRemoteReturns503(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/transactions", "", map[string]string{"X-User-ID": "alice"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestGoalProgress(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/goals",
		`{"name":"Vacation","target":"1000","deadline":"2026-12-31"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create goal status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad create response: %v", err)
	}

	rr = doJSON(t, srv, http.MethodPost, "/goals/"+created.ID+"/progress", `{"amount":"250"}`, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("progress status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/goals/"+created.ID+"/progress", `{"amount":"-1"}`, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative delta should 422, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/goals", "", nil)
	if !strings.Contains(rr.Body.String(), `"250"`) {
		t.Fatalf("goal progress not persisted: %s", rr.Body.String())
	}
}

func TestOverviewAndFilters(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"type":"income","amount":"50000","category":"Salary","date":"2026-05-01"}`,
		`{"type":"expense","amount":"12000","category":"Food","date":"2026-05-03"}`,
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/transactions", body, nil); rr.Code != http.StatusCreated {
			t.Fatalf("seed failed: %d %s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/transactions?type=expense&category=Food", "", nil)
	if rr.Code != 200 {
		t.Fatalf("filtered list status=%d", rr.Code)
	}
	var filtered []json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &filtered); err != nil || len(filtered) != 1 {
		t.Fatalf("expected 1 filtered record, got %q", rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/transactions?month=5", "", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("month without year should 422, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/overview", "", nil)
	if rr.Code != 200 {
		t.Fatalf("overview status=%d", rr.Code)
	}
	var ov struct {
		Balance      string `json:"balance"`
		TotalIncome  string `json:"totalIncome"`
		TotalExpense string `json:"totalExpense"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
		t.Fatalf("bad overview body: %v", err)
	}
	if ov.Balance != "38000" {
		t.Fatalf("overview balance = %s, want 38000", ov.Balance)
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)

	if rr := doJSON(t, srv, http.MethodPost, "/transactions",
		`{"type":"expense","amount":"42","category":"Food","date":"2026-05-03"}`, nil); rr.Code != http.StatusCreated {
		t.Fatalf("seed failed: %d", rr.Code)
	}

	rr := doJSON(t, srv, http.MethodGet, "/export/transactions.csv", "", nil)
	if rr.Code != 200 {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "date,type,category,amount,description\n") {
		t.Fatalf("missing header row: %q", body)
	}
	if !strings.Contains(body, "2026-05-03,expense,Food,42,") {
		t.Fatalf("missing record row: %q", body)
	}
}
