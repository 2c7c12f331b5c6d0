package money

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Money errors
var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidCurrency  = errors.New("currency code must be 3 letters")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
)

// zeroDecimalCurrencies have no minor unit (1 JPY is the smallest denomination)
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// Money is an exact fixed-point currency value: an integer count of the
// currency's minor units (pence, cents) plus an ISO 4217 code. All arithmetic
// is integer arithmetic; Money is never backed by a float.
type Money struct {
	amountMinor int64
	currency    string
}

// New creates a Money value from minor units and a currency code.
func New(amountMinor int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amountMinor: amountMinor, currency: currency}, nil
}

// MustNew is New but panics on error. For constants and tests.
func MustNew(amountMinor int64, currency string) Money {
	m, err := New(amountMinor, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// AmountMinor returns the amount in minor units.
func (m Money) AmountMinor() int64 {
	return m.amountMinor
}

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string {
	return m.currency
}

// IsZero reports whether m is the zero value (no currency assigned).
func (m Money) IsZero() bool {
	return m.currency == ""
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.amountMinor > 0
}

// SameCurrency reports whether both values share a currency.
func (m Money) SameCurrency(other Money) bool {
	return m.currency == other.currency
}

// Add returns m + other. Fails if the currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amountMinor: m.amountMinor + other.amountMinor, currency: m.currency}, nil
}

// Cmp compares m against other: -1 if m < other, 0 if equal, 1 if m > other.
// Fails if the currencies differ.
func (m Money) Cmp(other Money) (int, error) {
	if !m.SameCurrency(other) {
		return 0, ErrCurrencyMismatch
	}
	switch {
	case m.amountMinor < other.amountMinor:
		return -1, nil
	case m.amountMinor > other.amountMinor:
		return 1, nil
	default:
		return 0, nil
	}
}

// GreaterThan reports whether m > other. Fails if the currencies differ.
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// String formats the value for logs, e.g. "50.01 GBP". Formatting stays in
// integer arithmetic.
func (m Money) String() string {
	if m.IsZero() {
		return "<zero money>"
	}
	if zeroDecimalCurrencies[m.currency] {
		return fmt.Sprintf("%d %s", m.amountMinor, m.currency)
	}
	units := m.amountMinor / 100
	minor := m.amountMinor % 100
	if minor < 0 {
		minor = -minor
	}
	return fmt.Sprintf("%d.%02d %s", units, minor, m.currency)
}

// jsonMoney is the wire shape: integer minor units plus currency code.
type jsonMoney struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMoney{AmountMinor: m.amountMinor, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var jm jsonMoney
	if err := json.Unmarshal(data, &jm); err != nil {
		return err
	}
	parsed, err := New(jm.AmountMinor, jm.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
