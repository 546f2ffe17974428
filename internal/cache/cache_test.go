package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[string](10, time.Millisecond)
	c.Set("k", "v")
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("x", "1")
	c.Set("y", "2")
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUStats(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Entries)

	c.Purge()
	assert.Equal(t, 0, c.Size())
}

func TestManagerCleansAndStops(t *testing.T) {
	c := NewLRUCache[int](100, time.Millisecond)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprint(i), i)
	}

	m := NewManager(nil)
	m.Register("numbers", c)
	m.StartCleanup(2 * time.Millisecond)

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()
}

func TestLRUOnEvict(t *testing.T) {
	c := NewLRUCache[int](2, 5*time.Millisecond)
	var evicted []string
	c.OnEvict(func(key string, _ int) { evicted = append(evicted, key) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("b", 3) // replace, not an eviction
	c.Set("c", 4) // evicts a
	c.Delete("b")
	assert.Equal(t, []string{"a"}, evicted)

	time.Sleep(10 * time.Millisecond)
	_, ok := c.Get("c")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "c"}, evicted)
}
