package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sonnet = "claude-sonnet-4-5-20250929"

func TestCall(t *testing.T) {
	c := NewCalculator(DefaultRates())

	// 1500 input at $3/M plus 500 output at $15/M = 0.0045 + 0.0075
	assert.InDelta(t, 0.012, c.Call(sonnet, 1500, 500), 1e-9)
	assert.Zero(t, c.Call(sonnet, 0, 0))
}

func TestCall_UnknownModel(t *testing.T) {
	c := NewCalculator(DefaultRates())
	assert.Zero(t, c.Call("some-other-model", 1000, 1000))
}

func TestSavings(t *testing.T) {
	c := NewCalculator(DefaultRates())

	// 200 input-priced tokens at $3/M.
	assert.InDelta(t, 0.0006, c.Savings(sonnet, 200), 1e-9)
	assert.Zero(t, c.Savings("some-other-model", 200))
}

func TestDefaultRates_KnownModels(t *testing.T) {
	rates := DefaultRates()
	for _, m := range []string{
		"claude-haiku-4-5-20251001",
		"claude-sonnet-4-5-20250929",
		"claude-opus-4-1-20250805",
	} {
		rate, ok := rates.Models[m]
		assert.True(t, ok, m)
		assert.Greater(t, rate.Output, rate.Input, m)
	}
}
