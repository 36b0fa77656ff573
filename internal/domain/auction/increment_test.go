package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardhaus/card-exchange-backend/internal/domain/values"
)

func TestNewIncrementTable_Validation(t *testing.T) {
	tests := []struct {
		name  string
		tiers []IncrementTier
	}{
		{name: "empty table"},
		{
			name: "missing unbounded tail",
			tiers: []IncrementTier{
				{MaxPrice: values.Euro("10"), Increment: values.Euro("1")},
			},
		},
		{
			name: "unbounded tier not last",
			tiers: []IncrementTier{
				{Increment: values.Euro("1"), Unbounded: true},
				{Increment: values.Euro("2"), Unbounded: true},
			},
		},
		{
			name: "non-increasing max price",
			tiers: []IncrementTier{
				{MaxPrice: values.Euro("10"), Increment: values.Euro("1")},
				{MaxPrice: values.Euro("10"), Increment: values.Euro("2")},
				{Increment: values.Euro("5"), Unbounded: true},
			},
		},
		{
			name: "decreasing increment",
			tiers: []IncrementTier{
				{MaxPrice: values.Euro("10"), Increment: values.Euro("2")},
				{MaxPrice: values.Euro("20"), Increment: values.Euro("1")},
				{Increment: values.Euro("5"), Unbounded: true},
			},
		},
		{
			name: "zero increment",
			tiers: []IncrementTier{
				{MaxPrice: values.Euro("10"), Increment: values.Euro("0")},
				{Increment: values.Euro("5"), Unbounded: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIncrementTable(tt.tiers)
			assert.Error(t, err)
		})
	}
}

func TestIncrementFor(t *testing.T) {
	table := DefaultIncrementTable()

	tests := []struct {
		price string
		want  string
	}{
		{price: "0", want: "0.05"},
		{price: "0.99", want: "0.05"},
		{price: "1.00", want: "0.25"},
		{price: "4.99", want: "0.25"},
		{price: "10", want: "1.00"},
		{price: "24.99", want: "1.00"},
		{price: "30", want: "5.00"},
		{price: "49.99", want: "5.00"},
		{price: "50", want: "10.00"},
		{price: "199.99", want: "10.00"},
		{price: "200", want: "25.00"},
		{price: "100000", want: "25.00"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got := table.IncrementFor(values.Euro(tt.price))
			assert.True(t, got.Equal(values.Euro(tt.want)),
				"increment_for(%s) = %s, want %s", tt.price, got, tt.want)
		})
	}
}

func TestIncrementFor_Monotone(t *testing.T) {
	table := DefaultIncrementTable()

	prices := []string{"0", "0.50", "0.99", "1", "3", "4.99", "5", "15", "24.99", "25", "40", "49.99", "50", "150", "199.99", "200", "5000"}
	prev := values.Euro("0")
	for _, p := range prices {
		inc := table.IncrementFor(values.Euro(p))
		require.False(t, inc.LessThan(prev), "increment decreased at price %s", p)
		prev = inc
	}
}
