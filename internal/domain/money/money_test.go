package money_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel-auction-engine/internal/domain/money"
)

func TestNew(t *testing.T) {
	t.Run("valid amount and currency", func(t *testing.T) {
		m, err := money.New(5000, "GBP")
		require.NoError(t, err)
		assert.Equal(t, int64(5000), m.AmountMinor())
		assert.Equal(t, "GBP", m.Currency())
	})

	t.Run("rejects malformed currency code", func(t *testing.T) {
		_, err := money.New(100, "POUNDS")
		assert.ErrorIs(t, err, money.ErrInvalidCurrency)

		_, err = money.New(100, "")
		assert.ErrorIs(t, err, money.ErrInvalidCurrency)
	})
}

func TestMoney_Add(t *testing.T) {
	t.Run("same currency", func(t *testing.T) {
		sum, err := money.MustNew(5000, "GBP").Add(money.MustNew(1, "GBP"))
		require.NoError(t, err)
		assert.Equal(t, int64(5001), sum.AmountMinor())
		assert.Equal(t, "GBP", sum.Currency())
	})

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := money.MustNew(5000, "GBP").Add(money.MustNew(1, "USD"))
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})
}

func TestMoney_Cmp(t *testing.T) {
	tests := []struct {
		name string
		a    int64
		b    int64
		want int
	}{
		{name: "less", a: 4999, b: 5000, want: -1},
		{name: "equal", a: 5000, b: 5000, want: 0},
		{name: "greater", a: 5001, b: 5000, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.MustNew(tt.a, "GBP").Cmp(money.MustNew(tt.b, "GBP"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := money.MustNew(100, "GBP").Cmp(money.MustNew(100, "EUR"))
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})
}

func TestMoney_GreaterThan(t *testing.T) {
	gt, err := money.MustNew(5001, "GBP").GreaterThan(money.MustNew(5000, "GBP"))
	require.NoError(t, err)
	assert.True(t, gt)

	gt, err = money.MustNew(5000, "GBP").GreaterThan(money.MustNew(5000, "GBP"))
	require.NoError(t, err)
	assert.False(t, gt)
}

func TestMoney_IsPositive(t *testing.T) {
	assert.True(t, money.MustNew(1, "GBP").IsPositive())
	assert.False(t, money.MustNew(0, "GBP").IsPositive())
	assert.False(t, money.MustNew(-1, "GBP").IsPositive())
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		code   string
		want   string
	}{
		{name: "fifty pounds", amount: 5000, code: "GBP", want: "50.00 GBP"},
		{name: "padded minor units", amount: 5001, code: "GBP", want: "50.01 GBP"},
		{name: "below one unit", amount: 99, code: "USD", want: "0.99 USD"},
		{name: "zero decimal currency", amount: 5000, code: "JPY", want: "5000 JPY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, money.MustNew(tt.amount, tt.code).String())
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	t.Run("marshals to minor units", func(t *testing.T) {
		data, err := json.Marshal(money.MustNew(5000, "GBP"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount_minor":5000,"currency":"GBP"}`, string(data))
	})

	t.Run("unmarshals", func(t *testing.T) {
		var m money.Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount_minor":5001,"currency":"GBP"}`), &m))
		assert.Equal(t, int64(5001), m.AmountMinor())
		assert.Equal(t, "GBP", m.Currency())
	})

	t.Run("rejects bad currency on unmarshal", func(t *testing.T) {
		var m money.Money
		err := json.Unmarshal([]byte(`{"amount_minor":100,"currency":"XX"}`), &m)
		assert.ErrorIs(t, err, money.ErrInvalidCurrency)
	})
}
