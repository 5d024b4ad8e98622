package pricecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamashdown/polyquant/internal/series"
)

func TestCacheHitAndMiss(t *testing.T) {
	c := New(time.Minute)
	data := series.Series{{Date: time.Now().UTC(), Price: 0.5}}

	_, ok := c.Get("tok-a", 30)
	assert.False(t, ok)

	c.Set("tok-a", 30, data)
	got, ok := c.Get("tok-a", 30)
	require.True(t, ok)
	assert.Equal(t, data, got)

	// Same token, different window is a distinct key
	_, ok = c.Get("tok-a", 7)
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("tok-a", 30, series.Series{{Price: 0.5}})

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("tok-a", 30)
	assert.False(t, ok)

	// Expired entries linger until purged
	assert.Equal(t, 1, c.Len())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
