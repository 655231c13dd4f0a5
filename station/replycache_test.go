package station

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplyCacheHit(t *testing.T) {
	cache := NewReplyCache(time.Second)
	cache.Put("id-1", []byte(`[3,"id-1",{}]`))

	data, ok := cache.Get("id-1")
	assert.True(t, ok)
	assert.Equal(t, `[3,"id-1",{}]`, string(data))

	_, ok = cache.Get("id-2")
	assert.False(t, ok)
}

func TestReplyCacheExpiry(t *testing.T) {
	cache := NewReplyCache(5 * time.Millisecond)
	cache.Put("id-1", []byte("reply"))

	time.Sleep(25 * time.Millisecond)

	_, ok := cache.Get("id-1")
	assert.False(t, ok)
}

func TestReplyCacheOverwrite(t *testing.T) {
	cache := NewReplyCache(time.Second)
	cache.Put("id-1", []byte("first"))
	cache.Put("id-1", []byte("second"))

	data, ok := cache.Get("id-1")
	assert.True(t, ok)
	assert.Equal(t, "second", string(data))
}
