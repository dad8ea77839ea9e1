package matching

import (
	"github.com/tidwall/btree"
)

// levels is a price-ordered map from price to PriceLevel. Its iteration
// order already encodes the side's priority order: best level first.
type levels = btree.BTreeG[*PriceLevel]

// BookSide is one side of the book (bids or asks): a price-ordered set of
// PriceLevels plus an id index for O(level_size) cancellation.
type BookSide struct {
	ascending bool // true for asks (best = lowest price), false for bids
	byPrice   *levels
	byID      map[int64]*Order
}

func newBookSide(ascending bool) *BookSide {
	var less func(a, b *PriceLevel) bool
	if ascending {
		less = func(a, b *PriceLevel) bool { return a.Price.Cmp(b.Price) < 0 }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price.Cmp(b.Price) > 0 }
	}
	return &BookSide{
		ascending: ascending,
		byPrice:   btree.NewBTreeG(less),
		byID:      make(map[int64]*Order),
	}
}

// Add appends order to the level at order.Price, creating the level if
// it does not exist yet.
func (s *BookSide) Add(order *Order) {
	if level, ok := s.byPrice.Get(&PriceLevel{Price: order.Price}); ok {
		level.Orders = append(level.Orders, order)
	} else {
		s.byPrice.Set(newPriceLevel(order.Price, order))
	}
	s.byID[order.ID] = order
}

// crosses reports whether a resting level at levelPrice crosses an
// incoming order priced at incomingPrice, per the side's cross predicate.
func (s *BookSide) crosses(levelPrice, incomingPrice Decimal) bool {
	if s.ascending {
		// Ask side hit by a buy: cross iff level price <= incoming price.
		return levelPrice.Cmp(incomingPrice) <= 0
	}
	// Bid side hit by a sell: cross iff level price >= incoming price.
	return levelPrice.Cmp(incomingPrice) >= 0
}

// Match walks this side in priority order against incoming, transferring
// quantity slice by slice and appending every Event generated to events.
// Removal of filled resting orders is deferred: incoming always consumes
// a level's orders from the front, so the consumed prefix is sliced off
// only after the level's portion of the walk completes, never while the
// loop is still indexing into it.
func (s *BookSide) Match(incoming *Order, events *[]Event) error {
	for !incoming.IsFilled() {
		level, ok := s.byPrice.Min()
		if !ok || !s.crosses(level.Price, incoming.Price) {
			break
		}

		consumed := 0
		for consumed < len(level.Orders) && !incoming.IsFilled() {
			resting := level.Orders[consumed]

			qty, err := incoming.transfer(resting)
			if err != nil {
				return err
			}

			*events = append(*events,
				Event{Kind: EventMatch, OrderID: incoming.ID, MatchedOrderID: resting.ID, Amount: qty},
				Event{Kind: EventMatch, OrderID: resting.ID, MatchedOrderID: incoming.ID, Amount: qty},
			)

			if resting.IsFilled() {
				delete(s.byID, resting.ID)
				consumed++
				*events = append(*events, Event{Kind: EventComplete, OrderID: resting.ID})
			}
		}

		if consumed > 0 {
			level.Orders = level.Orders[consumed:]
		}
		if len(level.Orders) == 0 {
			s.byPrice.Delete(level)
		}
	}

	if incoming.IsFilled() {
		*events = append(*events, Event{Kind: EventComplete, OrderID: incoming.ID})
	}
	return nil
}

// Cancel removes order id from the side, if present, appending a
// Cancelled event with its unmatched remainder. A non-existent id is a
// silent no-op, making repeated cancellation idempotent.
func (s *BookSide) Cancel(id int64, events *[]Event) {
	order, ok := s.byID[id]
	if !ok {
		return
	}

	level, ok := s.byPrice.Get(&PriceLevel{Price: order.Price})
	if ok {
		if i := level.indexOf(id); i >= 0 {
			level.removeAt(i)
		}
		if len(level.Orders) == 0 {
			s.byPrice.Delete(level)
		}
	}
	delete(s.byID, id)

	*events = append(*events, Event{Kind: EventCancelled, OrderID: id, RemainingAmount: order.Remaining()})
}

// Orders returns a snapshot of every resting order in priority-then-FIFO
// order, for tests and introspection.
func (s *BookSide) Orders() []*Order {
	var out []*Order
	s.byPrice.Scan(func(level *PriceLevel) bool {
		out = append(out, level.Orders...)
		return true
	})
	return out
}

// Levels returns a snapshot of every resting PriceLevel in priority order.
func (s *BookSide) Levels() []*PriceLevel {
	return s.byPrice.Items()
}
