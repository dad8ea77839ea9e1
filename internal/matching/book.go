package matching

import "sync"

// Observer receives book-depth/throughput signals after each operation,
// outside the book's critical section. internal/metrics implements this;
// tests can pass nil.
type Observer interface {
	OrderPlaced(side Side)
	OrderCancelled(side Side)
	OrdersMatched(count int)
	BookDepth(bidOrders, askOrders int)
}

// OrderBook owns both sides of the market and the single mutex that
// guards all of their state. It is the only synchronization point for
// concurrent order admission; the persister side of the pipeline is
// decoupled entirely through the Events channel.
type OrderBook struct {
	mu       sync.Mutex
	bids     *BookSide // descending by price: best bid first
	asks     *BookSide // ascending by price: best ask first
	Events   EventQueue
	observer Observer
}

// NewOrderBook creates an empty book emitting onto the given queue.
// observer may be nil.
func NewOrderBook(events EventQueue, observer Observer) *OrderBook {
	return &OrderBook{
		bids:     newBookSide(false),
		asks:     newBookSide(true),
		Events:   events,
		observer: observer,
	}
}

// AddOrder admits a new order: it is matched against the opposite side
// first, and whatever remains (if anything) rests on its own side. Both
// steps happen under one critical section so a concurrent arrival can
// never cross an uninserted residual.
func (b *OrderBook) AddOrder(order *Order) error {
	var events []Event

	b.mu.Lock()
	opposite, same := b.sidesFor(order.Side)
	err := opposite.Match(order, &events)
	matches := 0
	for _, e := range events {
		if e.Kind == EventMatch {
			matches++
		}
	}
	if err == nil && !order.IsFilled() {
		same.Add(order)
	}
	bidDepth, askDepth := len(b.bids.byID), len(b.asks.byID)
	if err == nil {
		// Events are sent while b.mu is still held, so the queue receives
		// them in the order the book made its decisions, across concurrent
		// calls too. A full queue blocks admission rather than dropping.
		b.emit(events)
	}
	b.mu.Unlock()

	if err != nil {
		return err
	}

	if b.observer != nil {
		b.observer.OrderPlaced(order.Side)
		if matches > 0 {
			b.observer.OrdersMatched(matches)
		}
		b.observer.BookDepth(bidDepth, askDepth)
	}
	return nil
}

// CancelOrderByID removes an order by id from whichever side it rests
// on, if any. Idempotent: a second call for the same id (or an id that
// never existed) is a silent no-op and emits no event.
func (b *OrderBook) CancelOrderByID(id int64) {
	var events []Event

	b.mu.Lock()
	_, wasBid := b.bids.byID[id]
	_, wasAsk := b.asks.byID[id]
	b.bids.Cancel(id, &events)
	b.asks.Cancel(id, &events)
	bidDepth, askDepth := len(b.bids.byID), len(b.asks.byID)
	b.emit(events)
	b.mu.Unlock()

	if len(events) > 0 && b.observer != nil {
		side := SideSell
		if wasBid {
			side = SideBuy
		}
		_ = wasAsk
		b.observer.OrderCancelled(side)
		b.observer.BookDepth(bidDepth, askDepth)
	}
}

// sidesFor returns (opposite, same) for the given incoming order side.
func (b *OrderBook) sidesFor(side Side) (opposite, same *BookSide) {
	if side == SideBuy {
		return b.asks, b.bids
	}
	return b.bids, b.asks
}

// emit pushes every generated event onto the queue in order, blocking if
// the queue is full rather than dropping anything.
func (b *OrderBook) emit(events []Event) {
	for _, e := range events {
		b.Events <- e
	}
}

// Bids returns a snapshot of resting bid orders, best-price-first, FIFO
// within a price level. For tests and read-side introspection.
func (b *OrderBook) Bids() []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Orders()
}

// Asks returns a snapshot of resting ask orders, best-price-first, FIFO
// within a price level.
func (b *OrderBook) Asks() []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.Orders()
}

// BidLevels returns a snapshot of resting bid price levels, best first.
func (b *OrderBook) BidLevels() []*PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Levels()
}

// AskLevels returns a snapshot of resting ask price levels, best first.
func (b *OrderBook) AskLevels() []*PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.Levels()
}
