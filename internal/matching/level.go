package matching

// PriceLevel is the FIFO queue of resting orders at a single price.
// Insertion order equals arrival order. A level is dropped from its side
// as soon as it is empty.
type PriceLevel struct {
	Price  Decimal
	Orders []*Order
}

func newPriceLevel(price Decimal, first *Order) *PriceLevel {
	return &PriceLevel{Price: price, Orders: []*Order{first}}
}

// removeAt drops the order at index i from the level, preserving FIFO
// order of what remains. O(level_size), as spec'd for cancel.
func (l *PriceLevel) removeAt(i int) {
	l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
}

// indexOf returns the slice index of the order with the given id, or -1.
func (l *PriceLevel) indexOf(id int64) int {
	for i, o := range l.Orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}
