package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ytopcu/pricewatch/internal/api"
	"github.com/ytopcu/pricewatch/internal/checker"
	"github.com/ytopcu/pricewatch/internal/fetcher"
	"github.com/ytopcu/pricewatch/internal/products"
	"github.com/ytopcu/pricewatch/internal/scheduler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	byID    map[int]*products.Product
	nextID  int
	history map[int][]products.PriceSample
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[int]*products.Product{}, nextID: 1, history: map[int][]products.PriceSample{}}
}

func (s *fakeStore) InsertProduct(_ context.Context, p *products.Product) (int, error) {
	p.ID = s.nextID
	s.nextID++
	cp := *p
	s.byID[p.ID] = &cp
	return p.ID, nil
}

func (s *fakeStore) ListProducts(context.Context) ([]products.Product, error) {
	var out []products.Product
	for _, p := range s.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeStore) GetProductByID(_ context.Context, id int) (*products.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, products.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) DeleteProduct(_ context.Context, id int) error {
	if _, ok := s.byID[id]; !ok {
		return products.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.history, id)
	return nil
}

func (s *fakeStore) GetPriceHistory(_ context.Context, id, limit int) ([]products.PriceSample, error) {
	h := s.history[id]
	if len(h) > limit {
		h = h[:limit]
	}
	return h, nil
}

type fakeSweeper struct {
	outcome  checker.Outcome
	checkErr error
	sweep    scheduler.SweepResult
	sweepErr error
}

func (f *fakeSweeper) CheckAndPersist(context.Context, *products.Product) (checker.Outcome, error) {
	return f.outcome, f.checkErr
}

func (f *fakeSweeper) RunSweep(context.Context) (scheduler.SweepResult, error) {
	return f.sweep, f.sweepErr
}

func newRouter(store api.Store, sweeper api.Sweeper) *gin.Engine {
	r := gin.New()
	api.NewHandler(store, sweeper, zap.NewNop()).Register(r)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seed(store *fakeStore) *products.Product {
	price := decimal.RequireFromString("100")
	p := &products.Product{Name: "Seeded", URL: "https://shop.example.com/p/1", CurrentPrice: &price}
	_, _ = store.InsertProduct(context.Background(), p)
	return p
}

func TestGetProduct(t *testing.T) {
	store := newFakeStore()
	p := seed(store)
	r := newRouter(store, &fakeSweeper{})

	w := do(r, http.MethodGet, "/api/products/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got products.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, p.Name, got.Name)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/products/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/products/abc", "").Code)
}

func TestDeleteProduct(t *testing.T) {
	store := newFakeStore()
	seed(store)
	r := newRouter(store, &fakeSweeper{})

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/products/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/products/1", "").Code)
	assert.Empty(t, store.byID)
}

func TestCreateProduct_InvalidPayload(t *testing.T) {
	r := newRouter(newFakeStore(), &fakeSweeper{})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/products", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/products", `{"url":"not a url"}`).Code)
}

func TestCreateProduct(t *testing.T) {
	store := newFakeStore()
	r := newRouter(store, &fakeSweeper{})

	w := do(r, http.MethodPost, "/api/products", `{"url":"https://shop.example.com/p/9","notify_email":"a@b.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.byID, 1)
	assert.Equal(t, "a@b.com", store.byID[1].NotifyEmail)
}

func TestCheckProduct(t *testing.T) {
	store := newFakeStore()
	seed(store)

	price := decimal.RequireFromString("90")
	from := decimal.RequireFromString("100")
	sweeper := &fakeSweeper{outcome: checker.Outcome{
		Updated:     true,
		NewPrice:    price,
		NewCurrency: "$",
		DroppedFrom: &from,
	}}
	r := newRouter(store, sweeper)

	w := do(r, http.MethodPost, "/api/products/1/check", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["updated"])
	assert.Equal(t, "90", resp["price"])
	assert.Equal(t, "100", resp["dropped_from"])
}

func TestCheckProduct_Conflict(t *testing.T) {
	store := newFakeStore()
	seed(store)
	r := newRouter(store, &fakeSweeper{checkErr: checker.ErrCheckInFlight})

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/api/products/1/check", "").Code)
}

func TestCheckProduct_FetchFailureIsBadGateway(t *testing.T) {
	store := newFakeStore()
	seed(store)
	r := newRouter(store, &fakeSweeper{
		checkErr: &fetcher.FetchError{Kind: fetcher.KindTimeout, URL: "https://shop.example.com/p/1"},
	})

	assert.Equal(t, http.StatusBadGateway, do(r, http.MethodPost, "/api/products/1/check", "").Code)
}

func TestRunSweep(t *testing.T) {
	r := newRouter(newFakeStore(), &fakeSweeper{
		sweep: scheduler.SweepResult{RunID: "run-1", Total: 3, Updated: 2, Failed: 1},
	})

	w := do(r, http.MethodPost, "/api/sweep", "")
	require.Equal(t, http.StatusOK, w.Code)

	var res scheduler.SweepResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Failed)
}
