package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAEDToFils(t *testing.T) {
	tests := []struct {
		aed  string
		fils int64
	}{
		{aed: "0", fils: 0},
		{aed: "1", fils: 100},
		{aed: "49.99", fils: 4999},
		{aed: "105.50", fils: 10550},
		{aed: "0.01", fils: 1},
	}

	for _, tt := range tests {
		t.Run(tt.aed, func(t *testing.T) {
			fils, err := AEDToFils(decimal.RequireFromString(tt.aed))
			require.NoError(t, err)
			assert.Equal(t, tt.fils, fils)
		})
	}
}

func TestAEDToFilsRejectsSubFils(t *testing.T) {
	_, err := AEDToFils(decimal.RequireFromString("10.005"))
	assert.Error(t, err)
}

func TestFilsRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "5", "49.99", "12345.67"} {
		aed := decimal.RequireFromString(s)
		fils, err := AEDToFils(aed)
		require.NoError(t, err)
		assert.True(t, FilsToAED(fils).Equal(aed), "round trip of %s", s)
	}
}
