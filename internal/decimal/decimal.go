// Package decimal implements the exact fixed-point arithmetic the matching
// engine uses for prices and amounts: precision 10, scale 6 (magnitudes up
// to 9999.999999). It wraps shopspring/decimal rather than rolling a
// bespoke scaled-integer type, truncating every result back to scale 6 and
// rejecting anything that would not fit in the Numeric(10,6) domain the
// durable schema commits to.
package decimal

import (
	"database/sql/driver"
	"errors"
	"fmt"

	shopspring "github.com/shopspring/decimal"
)

const scale = 6

// ErrOverflow is returned when a value or arithmetic result no longer fits
// in the precision-10/scale-6 domain (|x| >= 10^4).
var ErrOverflow = errors.New("decimal: overflow")

// ErrInvalid is returned by Parse when the input is not a valid number.
var ErrInvalid = errors.New("decimal: invalid value")

var bound = shopspring.NewFromInt(10000)

// Decimal is an exact scale-6 fixed-point value.
type Decimal struct {
	d shopspring.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: shopspring.Zero}

func fromShopspring(d shopspring.Decimal) (Decimal, error) {
	truncated := d.Truncate(scale)
	if truncated.Abs().Cmp(bound) >= 0 {
		return Decimal{}, fmt.Errorf("%w: %s", ErrOverflow, truncated.String())
	}
	return Decimal{d: truncated}, nil
}

// Parse reads a Decimal from its string representation, truncating to
// scale 6 and rejecting values that overflow the precision-10 domain.
func Parse(s string) (Decimal, error) {
	d, err := shopspring.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %s", ErrInvalid, s)
	}
	return fromShopspring(d)
}

// MustParse is Parse but panics on error; only for literals in tests.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromInt builds a Decimal from an integer, e.g. for seed balances.
func FromInt(i int64) Decimal {
	return Decimal{d: shopspring.NewFromInt(i)}
}

// String renders the value with a fixed scale of 6.
func (d Decimal) String() string {
	return d.d.StringFixed(scale)
}

// Add returns d+other, truncated to scale 6 and overflow-checked.
func (d Decimal) Add(other Decimal) (Decimal, error) {
	return fromShopspring(d.d.Add(other.d))
}

// Sub returns d-other, truncated to scale 6 and overflow-checked.
func (d Decimal) Sub(other Decimal) (Decimal, error) {
	return fromShopspring(d.d.Sub(other.d))
}

// Mul returns d*other, truncated back to scale 6 (the engine never
// introduces rounding beyond this truncation) and overflow-checked.
func (d Decimal) Mul(other Decimal) (Decimal, error) {
	return fromShopspring(d.d.Mul(other.d))
}

// Min returns the lesser of a and b.
func Min(a, b Decimal) Decimal {
	if a.d.Cmp(b.d) <= 0 {
		return a
	}
	return b
}

// Cmp returns -1, 0 or 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int {
	return d.d.Cmp(other.d)
}

// Sign returns -1, 0 or 1 for d's sign.
func (d Decimal) Sign() int {
	return d.d.Sign()
}

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool {
	return d.d.IsZero()
}

// IsPositive reports whether d is strictly greater than zero.
func (d Decimal) IsPositive() bool {
	return d.d.Sign() > 0
}

// MarshalJSON renders the value as a JSON string, matching the wire
// contract ("amounts/prices as strings") rather than a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so a Decimal can be bound straight into a
// lib/pq query as a Numeric(10,6) column value.
func (d Decimal) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner for reading Numeric(10,6) columns back.
func (d *Decimal) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	case float64:
		parsed, err := fromShopspring(shopspring.NewFromFloat(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case nil:
		*d = Zero
		return nil
	default:
		return fmt.Errorf("decimal: unsupported scan type %T", src)
	}
}
