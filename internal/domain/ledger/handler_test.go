package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/servis/recharge-bot/internal/middleware"
	"github.com/servis/recharge-bot/internal/pkg/jwt"
)

type repoStub struct {
	txs        []*Transaction
	lastFilter Filter
	listErr    error
}

func (r *repoStub) Append(ctx context.Context, in NewTransaction) (*Transaction, error) {
	return nil, nil
}

func (r *repoStub) UpdateStatus(ctx context.Context, id int64, status Status) (*Transaction, error) {
	return nil, nil
}

func (r *repoStub) LatestPending(ctx context.Context, account string) (*Transaction, error) {
	return nil, ErrTransactionNotFound
}

func (r *repoStub) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	for _, tx := range r.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (r *repoStub) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	r.lastFilter = filter
	if r.listErr != nil {
		return nil, r.listErr
	}
	if filter.Limit < len(r.txs) {
		return r.txs[:filter.Limit], nil
	}
	return r.txs, nil
}

func sampleTx(id int64, account string) *Transaction {
	return &Transaction{
		ID:              id,
		AccountIdentity: account,
		Method:          "YAPE",
		Amount:          decimal.RequireFromString("20"),
		Status:          StatusProofSubmitted,
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, repo Repository) (http.Handler, string) {
	t.Helper()
	jwtSvc := jwt.NewService("test-secret", time.Minute)
	token, err := jwtSvc.GenerateAccessToken("carla", jwt.RoleStaff)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	h := NewHandler(repo)
	return h.Routes(middleware.Auth(jwtSvc), middleware.RequireStaff()), token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Limit   int  `json:"limit"`
		Count   int  `json:"count"`
		HasNext bool `json:"has_next"`
	} `json:"meta"`
}

func TestListReturnsPageWithMeta(t *testing.T) {
	repo := &repoStub{txs: []*Transaction{sampleTx(3, "alice"), sampleTx(2, "alice"), sampleTx(1, "alice")}}
	srv, token := newTestServer(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/?account=alice&status=proof_submitted&limit=2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if repo.lastFilter.Account != "alice" || repo.lastFilter.Status != StatusProofSubmitted || repo.lastFilter.Limit != 3 {
		t.Fatalf("unexpected filter %+v", repo.lastFilter)
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var items []TransactionResponse
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) != 2 || items[0].Amount != "20.00" {
		t.Fatalf("unexpected items %+v", items)
	}
	if env.Meta == nil || !env.Meta.HasNext || env.Meta.Count != 2 {
		t.Fatalf("unexpected meta %+v", env.Meta)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	srv, token := newTestServer(t, &repoStub{})

	req := httptest.NewRequest(http.MethodGet, "/?status=paid", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestListRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, &repoStub{})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetByID(t *testing.T) {
	srv, token := newTestServer(t, &repoStub{txs: []*Transaction{sampleTx(7, "bob")}})

	cases := []struct {
		path string
		code int
	}{
		{"/7", http.StatusOK},
		{"/8", http.StatusNotFound},
		{"/abc", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.code, w.Code)
		}
	}
}

func TestStatusHelpers(t *testing.T) {
	if !StatusCredited.Terminal() || !StatusRejected.Terminal() || StatusProofSubmitted.Terminal() {
		t.Fatal("terminal states mismatch")
	}
	if Status("paid").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}
