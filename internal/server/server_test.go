package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/housesplit/internal/api"
	"github.com/mmynk/housesplit/internal/guard"
	"github.com/mmynk/housesplit/internal/metrics"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/projection"
	"github.com/mmynk/housesplit/internal/storage/bolt"
)

var household = models.Roster{"Alice", "Bob", "Charlie", "Diana"}

func setupServer(t *testing.T) (*httptest.Server, *projection.Projector) {
	t.Helper()

	store, err := bolt.New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("bolt.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	g, err := guard.New(guard.Config{})
	if err != nil {
		t.Fatalf("guard.New: %v", err)
	}

	m := metrics.New()
	p := projection.New(household, m)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if _, err := p.Start(ctx, store); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	if _, err := p.Wait(waitCtx, 1); err != nil {
		t.Fatalf("first projection: %v", err)
	}

	srv := httptest.NewServer(H2C(NewRouter(Deps{
		Store:     store,
		Projector: p,
		Guard:     g,
		Metrics:   m,
		Roster:    household,
		Location:  time.UTC,
	})))
	t.Cleanup(srv.Close)
	return srv, p
}

func TestHealthz(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var h health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != "ok" || h.Generation == 0 {
		t.Errorf("health = %+v", h)
	}
}

func TestConnectThroughRouter(t *testing.T) {
	srv, _ := setupServer(t)

	client := api.NewRosterServiceClient(http.DefaultClient, srv.URL)
	resp, err := client.GetRoster(context.Background(), connect.NewRequest(&api.GetRosterRequest{}))
	if err != nil {
		t.Fatalf("GetRoster: %v", err)
	}
	if len(resp.Msg.Members) != len(household) {
		t.Errorf("members = %v", resp.Msg.Members)
	}

	// Plain HTTP+JSON works too.
	body := strings.NewReader(`{}`)
	httpResp, err := http.Post(srv.URL+api.ExpenseServiceListCategoriesProcedure, "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer httpResp.Body.Close()
	raw, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "Household Items") {
		t.Errorf("status %d, body %s", httpResp.StatusCode, raw)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	client := api.NewExpenseServiceClient(http.DefaultClient, srv.URL)
	if _, err := client.ListCategories(context.Background(), connect.NewRequest(&api.ListCategoriesRequest{})); err != nil {
		t.Fatalf("ListCategories: %v", err)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "housesplit_rpc_requests_total") {
		t.Errorf("metrics output lacks RPC counter:\n%s", raw)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+api.ExpenseServiceDeleteExpenseProcedure, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Errorf("Authorization not allowed: %q", resp.Header.Get("Access-Control-Allow-Headers"))
	}
}
