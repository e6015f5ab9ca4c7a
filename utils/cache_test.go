package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedQuote struct {
	Mint   string `json:"mint"`
	Output uint64 `json:"output"`
}

func TestCacheJSONRoundTrip(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	var got cachedQuote
	assert.False(t, c.GetJSON(ctx, "quote", &got))

	require.NoError(t, c.SetJSON(ctx, "quote", cachedQuote{Mint: "abc", Output: 42}, time.Minute))
	require.True(t, c.GetJSON(ctx, "quote", &got))
	assert.Equal(t, cachedQuote{Mint: "abc", Output: 42}, got)

	c.Invalidate(ctx, "quote")
	assert.False(t, c.GetJSON(ctx, "quote", &got))
}

func TestCacheUndecodableEntry(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "n", 7, time.Minute))
	var s struct{ A string }
	assert.False(t, c.GetJSON(ctx, "n", &s))
}
