package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 10.0, roundMoney(10.000001))
	assert.Equal(t, 12.35, roundMoney(12.3456))
	assert.Equal(t, 33.33, roundMoney(99.99/3))
	assert.Equal(t, 0.0, roundMoney(0))
}

func TestFeeSplitConservesMoney(t *testing.T) {
	// Комиссия и выплата в сумме дают ровно сумму сделки.
	cases := []struct {
		amount     float64
		feePercent float64
		wantFee    float64
		wantNet    float64
	}{
		{100, 10, 10, 90},
		{99.99, 10, 10, 89.99},
		{1000, 0, 0, 1000},
		{0.03, 33, 0.01, 0.02},
	}

	for _, tc := range cases {
		fee := roundMoney(tc.amount * tc.feePercent / 100)
		net := roundMoney(tc.amount - fee)
		assert.Equal(t, tc.wantFee, fee)
		assert.Equal(t, tc.wantNet, net)
		assert.Equal(t, tc.amount, roundMoney(fee+net))
	}
}
