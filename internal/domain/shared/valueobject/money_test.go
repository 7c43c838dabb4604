package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"whole", "1000", false},
		{"cents", "0.01", false},
		{"negative", "-12.50", false},
		{"trailing zeros beyond scale", "1.2300", false},
		{"sub cent", "0.001", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMoney(decimal.RequireFromString(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMoney_ArithmeticAvoidsFloatDrift(t *testing.T) {
	total := ZeroMoney()
	for i := 0; i < 10; i++ {
		total = total.Add(Cents(10))
	}
	assert.Equal(t, "1.00", total.String())
	assert.True(t, total.Sub(Cents(100)).IsZero())
}

func TestMoney_JSON(t *testing.T) {
	m := Cents(100000)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `"1000.00"`, string(data))

	var fromString, fromNumber Money
	require.NoError(t, json.Unmarshal([]byte(`"400.5"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`600.25`), &fromNumber))
	assert.Equal(t, "400.50", fromString.String())
	assert.Equal(t, "600.25", fromNumber.String())

	var bad Money
	assert.Error(t, json.Unmarshal([]byte(`"1.005"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &bad))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan([]byte("12.3400")))
	assert.Equal(t, "12.34", m.String())
	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())
	assert.Error(t, m.Scan(true))
}
