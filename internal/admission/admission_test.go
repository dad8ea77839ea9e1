package admission

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saga-markets/dexbook/internal/decimal"
	"github.com/saga-markets/dexbook/internal/matching"
	"github.com/saga-markets/dexbook/internal/store"
)

// fakeStore is an in-memory stand-in for *store.Store, just enough to
// drive Service without a database.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	balances map[string]decimal.Decimal // currency -> amount, single user
	owners   map[int64]struct {
		userID int64
		side   string
	}
	orders []store.OrderView
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID: 1,
		balances: map[string]decimal.Decimal{
			"EUR": decimal.FromInt(5000),
			"ETH": decimal.FromInt(50),
		},
		owners: make(map[int64]struct {
			userID int64
			side   string
		}),
	}
}

func (f *fakeStore) DebitAndInsertOrder(ctx context.Context, userID int64, side, requiredCurrency string, amount, price, required decimal.Decimal) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.balances[requiredCurrency]
	if current.Cmp(required) < 0 {
		return 0, store.ErrInsufficientFunds
	}
	remaining, err := current.Sub(required)
	if err != nil {
		return 0, err
	}
	f.balances[requiredCurrency] = remaining

	id := f.nextID
	f.nextID++
	f.owners[id] = struct {
		userID int64
		side   string
	}{userID, side}
	f.orders = append(f.orders, store.OrderView{ID: id, Side: side, Amount: amount, Price: price, Status: store.StatusPending})
	return id, nil
}

func (f *fakeStore) FindOrderOwner(ctx context.Context, orderID int64) (int64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	owner, ok := f.owners[orderID]
	if !ok {
		return 0, "", store.ErrNotFound
	}
	return owner.userID, owner.side, nil
}

func (f *fakeStore) ListOrders(ctx context.Context, userID int64) ([]store.OrderView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []store.OrderView
	for _, o := range f.orders {
		if owner, ok := f.owners[o.ID]; ok && owner.userID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *matching.OrderBook) {
	t.Helper()
	events := matching.NewEventQueue(64)
	book := matching.NewOrderBook(events, nil)
	fs := newFakeStore()
	return New(fs, book), fs, book
}

func TestPlaceOrderRestsWhenNoMatch(t *testing.T) {
	svc, _, book := newTestService(t)

	id, err := svc.PlaceOrder(context.Background(), 1, "sell", "10", "100")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	asks := book.Asks()
	require.Len(t, asks, 1)
	assert.Equal(t, id, asks[0].ID)
}

func TestPlaceOrderRejectsInvalidSide(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PlaceOrder(context.Background(), 1, "hold", "10", "100")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlaceOrderRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PlaceOrder(context.Background(), 1, "buy", "0", "100")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PlaceOrder(context.Background(), 1, "buy", "-5", "100")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlaceOrderInsufficientFunds(t *testing.T) {
	svc, _, _ := newTestService(t)

	// 60 * 100 = 6000 EUR needed against a 5000 EUR balance.
	_, err := svc.PlaceOrder(context.Background(), 1, "buy", "60", "100")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestPlaceOrderMatchesAgainstResting(t *testing.T) {
	svc, _, book := newTestService(t)

	_, err := svc.PlaceOrder(context.Background(), 1, "sell", "10", "100")
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), 2, "buy", "10", "100")
	require.NoError(t, err)

	assert.Empty(t, book.Asks())
	assert.Empty(t, book.Bids())

	var kinds []matching.EventKind
	for i := 0; i < 4; i++ {
		kinds = append(kinds, (<-book.Events).Kind)
	}
	assert.Equal(t, []matching.EventKind{
		matching.EventMatch, matching.EventMatch, matching.EventComplete, matching.EventComplete,
	}, kinds)
}

func TestCancelOrderRejectsWrongOwner(t *testing.T) {
	svc, _, _ := newTestService(t)

	id, err := svc.PlaceOrder(context.Background(), 1, "sell", "10", "100")
	require.NoError(t, err)

	err = svc.CancelOrder(context.Background(), 2, id)
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestCancelOrderRejectsUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.CancelOrder(context.Background(), 1, 999)
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestCancelOrderRemovesFromBook(t *testing.T) {
	svc, _, book := newTestService(t)

	id, err := svc.PlaceOrder(context.Background(), 1, "sell", "10", "100")
	require.NoError(t, err)

	err = svc.CancelOrder(context.Background(), 1, id)
	require.NoError(t, err)

	assert.Empty(t, book.Asks())

	event := <-book.Events
	assert.Equal(t, matching.EventCancelled, event.Kind)
}

func TestListOrdersReturnsOnlyOwnedOrders(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PlaceOrder(context.Background(), 1, "sell", "10", "100")
	require.NoError(t, err)
	_, err = svc.PlaceOrder(context.Background(), 2, "sell", "5", "100")
	require.NoError(t, err)

	views, err := svc.ListOrders(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "10", views[0].Amount.String()[:2])
}
