package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saga-markets/dexbook/internal/admission"
	"github.com/saga-markets/dexbook/internal/decimal"
	"github.com/saga-markets/dexbook/internal/matching"
	"github.com/saga-markets/dexbook/internal/store"
)

type fakeAdmissionStore struct {
	nextID int64
}

func (f *fakeAdmissionStore) DebitAndInsertOrder(ctx context.Context, userID int64, side, requiredCurrency string, amount, price, required decimal.Decimal) (int64, error) {
	f.nextID++
	return f.nextID, nil
}

func (f *fakeAdmissionStore) FindOrderOwner(ctx context.Context, orderID int64) (int64, string, error) {
	return 1, "sell", nil
}

func (f *fakeAdmissionStore) ListOrders(ctx context.Context, userID int64) ([]store.OrderView, error) {
	return []store.OrderView{
		{ID: 1, Side: "sell", Amount: decimal.FromInt(10), Price: decimal.FromInt(100), Status: store.StatusPending},
	}, nil
}

type fakeAuthenticator struct {
	validUserID int64
	validKey    string
}

func (f *fakeAuthenticator) AuthenticateAPIKey(ctx context.Context, userID int64, key string) (bool, error) {
	return userID == f.validUserID && key == f.validKey, nil
}

func newTestServer() *Server {
	events := matching.NewEventQueue(64)
	book := matching.NewOrderBook(events, nil)
	svc := admission.New(&fakeAdmissionStore{}, book)
	auth := &fakeAuthenticator{validUserID: 1, validKey: "secret"}
	return New(svc, auth, zerolog.Nop(), nil, nil)
}

func TestHealthzRequiresNoAuth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceOrderRequiresAuth(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(placeOrderRequest{Side: "sell", Amount: "10", Price: "100"})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrderSucceedsWithValidAuth(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(placeOrderRequest{Side: "sell", Amount: "10", Price: "100"})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.SetBasicAuth("1", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
}

func TestPlaceOrderRejectsInvalidAuth(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(placeOrderRequest{Side: "sell", Amount: "10", Price: "100"})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.SetBasicAuth("1", "wrong")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrderRejectsInvalidBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("not json")))
	req.SetBasicAuth("1", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrderRejectsValidationFailure(t *testing.T) {
	s := newTestServer()
	body, _ := json.Marshal(placeOrderRequest{Side: "hold", Amount: "10", Price: "100"})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req.SetBasicAuth("1", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrderSucceeds(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/order/1", nil)
	req.SetBasicAuth("1", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCancelOrderRejectsBadID(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/order/not-a-number", nil)
	req.SetBasicAuth("1", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrdersReturnsOrders(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.SetBasicAuth("1", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body["orders"], 1)
	assert.Equal(t, "sell", body["orders"][0].Side)
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.SetBasicAuth("1", "secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
