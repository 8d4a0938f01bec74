package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"financebro/internal/auth"
	"financebro/internal/services"
	"financebro/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	jwtManager := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	txs := services.NewTransactionService(repo, nil)
	goals := services.NewGoalService(repo)
	recurring := services.NewRecurringProcessor(repo, nil, nil)

	srv := NewServer(":0", repo, txs, goals, recurring, jwtManager)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func registerAndLogin(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	return decodeBody[authResponse](t, resp).AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", resp.StatusCode)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	_, ts := newTestServer(t)

	token := registerAndLogin(t, ts, "alice@example.com")
	if token == "" {
		t.Fatal("register returned no token")
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"email":    "ALICE@example.com",
		"password": "correct-horse",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad email", map[string]string{"email": "nope", "password": "correct-horse"}, http.StatusUnprocessableEntity},
		{"short password", map[string]string{"email": "a@b.com", "password": "short"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/api/transactions", "/api/goals", "/api/dashboard"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", resp.StatusCode)
	}
}

func TestTransactionFlow(t *testing.T) {
	_, ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, map[string]any{
		"amount":      "42.50",
		"direction":   "outgoing",
		"description": "groceries",
		"date":        "2025-04-10",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[transactionView](t, resp)
	if created.AmountCents != 4250 {
		t.Errorf("AmountCents = %d, want 4250", created.AmountCents)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/transactions?year=2025&month=4", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	list := decodeBody[[]transactionView](t, resp)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list = %+v, want the created transaction", list)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/transactions/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/transactions?year=2025&month=4", token, nil)
	list = decodeBody[[]transactionView](t, resp)
	if len(list) != 0 {
		t.Errorf("deleted transaction still listed: %+v", list)
	}
}

func TestTransactionValidationErrors(t *testing.T) {
	_, ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice@example.com")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"negative amount", map[string]any{"amount": "-5", "direction": "outgoing", "description": "x", "date": "2025-04-10"}, http.StatusUnprocessableEntity},
		{"bad direction", map[string]any{"amount": "5", "direction": "sideways", "description": "x", "date": "2025-04-10"}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{"amount": "5", "direction": "outgoing", "description": "x", "date": "April 10"}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]any{"amount": "5", "direction": "outgoing", "description": "x", "date": "2025-04-10", "bogus": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

// A monthly template created in the past materializes an instance the next
// time the owner lists their transactions.
func TestTemplateOpportunisticGeneration(t *testing.T) {
	_, ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/templates", token, map[string]any{
		"amount":      "15.99",
		"direction":   "outgoing",
		"description": "subscription",
		"date":        "2025-01-15",
		"frequency":   "monthly",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create template status = %d", resp.StatusCode)
	}
	tpl := decodeBody[transactionView](t, resp)
	if !tpl.IsTemplate {
		t.Error("created template not flagged as template")
	}

	// The first listing triggers generation of the next occurrence,
	// 2025-02-15, which the February listing then includes.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/transactions?year=2025&month=2", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	list := decodeBody[[]transactionView](t, resp)

	found := false
	for _, tx := range list {
		if tx.ParentTemplateID == tpl.ID {
			found = true
			if tx.Date != "2025-02-15" {
				t.Errorf("instance dated %s, want 2025-02-15", tx.Date)
			}
			if tx.IsTemplate {
				t.Error("generated instance flagged as template")
			}
		}
	}
	if !found {
		t.Error("no instance generated from the due template on listing")
	}
}

func TestGoalFlow(t *testing.T) {
	_, ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/goals", token, map[string]string{
		"name":   "vacation",
		"target": "1000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create goal status = %d", resp.StatusCode)
	}
	goal := decodeBody[goalView](t, resp)
	if goal.TargetCents != 100_000 || goal.CurrentCents != 0 {
		t.Errorf("goal = %+v, want target 100000 current 0", goal)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/goals/"+goal.ID+"/deposits", token, map[string]string{
		"amount": "250",
		"date":   "2025-06-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add deposit status = %d", resp.StatusCode)
	}
	depResp := decodeBody[depositResponse](t, resp)
	if depResp.Goal.CurrentCents != 25_000 {
		t.Errorf("Current after deposit = %d, want 25000", depResp.Goal.CurrentCents)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/goals/"+goal.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get goal status = %d", resp.StatusCode)
	}
	detail := decodeBody[goalDetailView](t, resp)
	if len(detail.Deposits) != 1 {
		t.Fatalf("deposit history has %d entries, want 1", len(detail.Deposits))
	}

	resp = doJSON(t, http.MethodDelete,
		ts.URL+"/api/goals/"+goal.ID+"/deposits/"+depResp.Deposit.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove deposit status = %d", resp.StatusCode)
	}
	after := decodeBody[goalView](t, resp)
	if after.CurrentCents != 0 {
		t.Errorf("Current after removal = %d, want 0", after.CurrentCents)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/goals/"+goal.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete goal status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/goals/"+goal.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted goal status = %d, want 404", resp.StatusCode)
	}
}

// Another user's goal must look exactly like a missing one.
func TestGoalIsolationBetweenUsers(t *testing.T) {
	_, ts := newTestServer(t)
	aliceToken := registerAndLogin(t, ts, "alice@example.com")
	bobToken := registerAndLogin(t, ts, "bob@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/goals", aliceToken, map[string]string{
		"name":   "vacation",
		"target": "1000",
	})
	goal := decodeBody[goalView](t, resp)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/goals/"+goal.ID, bobToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign get status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/goals/missing-id", bobToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing get status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/goals", bobToken, nil)
	goals := decodeBody[[]goalView](t, resp)
	if len(goals) != 0 {
		t.Errorf("bob sees %d goals, want 0", len(goals))
	}
}

func TestDashboard(t *testing.T) {
	_, ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice@example.com")

	for _, body := range []map[string]any{
		{"amount": "3000", "direction": "incoming", "description": "salary", "date": "2025-04-01"},
		{"amount": "1200", "direction": "outgoing", "description": "rent", "date": "2025-04-02"},
	} {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, body)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed status = %d", resp.StatusCode)
		}
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/dashboard?year=2025&month=4", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	sum := decodeBody[summaryView](t, resp)
	if sum.Income != 3000 || sum.Expenses != 1200 || sum.Net != 1800 {
		t.Errorf("summary = %+v, want income 3000 expenses 1200 net 1800", sum)
	}
}
