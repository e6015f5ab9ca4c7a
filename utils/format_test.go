package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrettyFloat(t *testing.T) {
	assert.Equal(t, "999.00", PrettyFloat(999))
	assert.Equal(t, "34.61M", PrettyFloat(34_612_903.225806))
	assert.Equal(t, "1.00G", PrettyFloat(1e9))
	assert.Equal(t, "-2.50K", PrettyFloat(-2_500))
	assert.Equal(t, "1000.00T", PrettyFloat(1e15))
}

func TestAbbreviateDecimal(t *testing.T) {
	assert.Equal(t, "0.0₇28", AbbreviateDecimal(decimal.RequireFromString("0.000000027958993")))
	assert.Equal(t, "1.234", AbbreviateDecimal(decimal.RequireFromString("1.23456")))
	assert.Equal(t, "0.00123", AbbreviateDecimal(decimal.RequireFromString("0.00123")))
	assert.Equal(t, "0.000", AbbreviateDecimal(decimal.Zero))
}

func TestTrimSpace(t *testing.T) {
	assert.Equal(t, "Dog", TrimSpace("Dog\x00\x00\x00"))
	assert.Equal(t, "Dog", TrimSpace("  Dog  "))
	assert.Equal(t, "", TrimSpace("\x00\x00"))
	assert.Equal(t, "", TrimSpace(""))
}
