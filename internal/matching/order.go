package matching

import "github.com/saga-markets/dexbook/internal/decimal"

// Order is a resting or incoming book order. It is engine-only state;
// the durable Order row is a separate concern owned by internal/store.
type Order struct {
	ID            int64
	Side          Side
	Amount        Decimal // original requested quantity
	Price         Decimal
	MatchedAmount Decimal // monotonically non-decreasing, <= Amount
}

// NewOrder builds a fresh, unmatched Order ready for OrderBook.AddOrder.
func NewOrder(id int64, side Side, amount, price Decimal) *Order {
	return &Order{ID: id, Side: side, Amount: amount, Price: price, MatchedAmount: decimal.Zero}
}

// Remaining is the unmatched quantity: amount - matched_amount.
func (o *Order) Remaining() Decimal {
	// Amount and MatchedAmount are both scale-6 and bounded (invariant 1),
	// so this subtraction cannot overflow.
	r, _ := o.Amount.Sub(o.MatchedAmount)
	return r
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.Remaining().IsZero()
}

// transfer matches o against other, moving min(remaining) quantity onto
// both orders' MatchedAmount and returning the transferred amount.
func (o *Order) transfer(other *Order) (Decimal, error) {
	qty := decimal.Min(o.Remaining(), other.Remaining())

	matchedO, err := o.MatchedAmount.Add(qty)
	if err != nil {
		return Decimal{}, err
	}
	matchedOther, err := other.MatchedAmount.Add(qty)
	if err != nil {
		return Decimal{}, err
	}

	o.MatchedAmount = matchedO
	other.MatchedAmount = matchedOther
	return qty, nil
}
