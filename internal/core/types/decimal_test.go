package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1"},
		{"1.999", "1.99"},
		{"0.29", "0.29"},
		{"100", "100"},
		{"-1.001", "-1.01"},
		{"0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := TruncateCurrency(MustMoney(tt.in))
			assert.True(t, got.Equal(MustMoney(tt.want)), "got %s", got)
		})
	}
}

func TestTruncateCurrency_Idempotent(t *testing.T) {
	for _, s := range []string{"0", "1.005", "12.3456", "-7.777", "99999.999999"} {
		once := TruncateCurrency(MustMoney(s))
		twice := TruncateCurrency(once)
		assert.True(t, once.Equal(twice), "value %s", s)
	}
}

func TestTruncateQuantity(t *testing.T) {
	assert.True(t, TruncateQuantity(MustMoney("3.14159")).Equal(MustMoney("3.1415")))
	assert.True(t, TruncateQuantity(MustMoney("2.00009")).Equal(MustMoney("2")))
	assert.True(t, TruncateQuantity(TruncateQuantity(MustMoney("5.55555"))).Equal(MustMoney("5.5555")))
}

func TestFixed2(t *testing.T) {
	assert.Equal(t, "85.50", Fixed2(MustMoney("85.5")))
	assert.Equal(t, "1.00", Fixed2(MustMoney("1.009")))
	assert.Equal(t, "0.00", Fixed2(Zero()))
}

func TestSumQuantity(t *testing.T) {
	got := SumQuantity(MustMoney("1.00009"), MustMoney("2.00009"))
	assert.True(t, got.Equal(MustMoney("3")), "got %s", got)
}
