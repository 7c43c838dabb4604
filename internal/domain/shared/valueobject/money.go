package valueobject

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits every monetary amount carries
const MoneyScale int32 = 2

// Money is a single-currency fixed-point amount with cents precision.
// The zero value is 0.00.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal, rejecting sub-cent precision
func NewMoney(amount decimal.Decimal) (Money, error) {
	if !amount.Equal(amount.Round(MoneyScale)) {
		return Money{}, fmt.Errorf("amount %s has more than %d fraction digits", amount.String(), MoneyScale)
	}
	return Money{amount: amount.Round(MoneyScale)}, nil
}

// MustMoney is NewMoney for literals known to be valid
func MustMoney(amount decimal.Decimal) Money {
	m, err := NewMoney(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney parses a decimal string such as "1000.00"
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return NewMoney(d)
}

// Cents builds Money from an integer number of cents
func Cents(cents int64) Money {
	return Money{amount: decimal.New(cents, -MoneyScale)}
}

// ZeroMoney returns 0.00
func ZeroMoney() Money {
	return Money{}
}

// Amount returns the underlying decimal
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Add returns m + other
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Neg returns -m
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// Cmp compares two amounts like decimal.Cmp
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equals reports numeric equality
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// String renders the amount with exactly two fraction digits
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// MarshalJSON renders Money as a fixed two-decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string ("12.30") or a JSON number (12.3)
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case float64:
		*m = Money{amount: decimal.NewFromFloat(v).Round(MoneyScale)}
		return nil
	case int64:
		*m = Money{amount: decimal.NewFromInt(v)}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	*m = Money{amount: d.Round(MoneyScale)}
	return nil
}

// FromDecimal wraps a decimal already known to be at cents precision,
// rounding half away from zero if it is not
func FromDecimal(d decimal.Decimal) Money {
	return Money{amount: d.Round(MoneyScale)}
}
