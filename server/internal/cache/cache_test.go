package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndLookup(t *testing.T) {
	c := New(1000)
	require.True(t, c.Insert("a.txt", []byte("hello")))

	got, ok := c.Lookup("a.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(got.Buf))

	// Lookup must return a copy, not a reference.
	got.Buf[0] = 'X'
	got2, _ := c.Lookup("a.txt")
	assert.Equal(t, "hello", string(got2.Buf))
}

func TestInsertRejectsOversizedEntry(t *testing.T) {
	c := New(10)
	assert.False(t, c.Insert("big", make([]byte, 11)))
}

func TestInsertRejectsDuplicateName(t *testing.T) {
	c := New(100)
	require.True(t, c.Insert("a", []byte("1")))
	assert.False(t, c.Insert("a", []byte("2")))

	got, _ := c.Lookup("a")
	assert.Equal(t, "1", string(got.Buf))
}

// TestLargestFirstEviction implements spec.md §8 scenario 6:
// max_cache_size=1000; insert files of sizes [600, 300, 200]; the third
// insert evicts only the 600-byte entry; post-state curr_bytes=500,
// entries={300,200}.
func TestLargestFirstEviction(t *testing.T) {
	c := New(1000)
	require.True(t, c.Insert("f600", make([]byte, 600)))
	require.True(t, c.Insert("f300", make([]byte, 300)))
	require.True(t, c.Insert("f200", make([]byte, 200)))

	stats := c.Stats()
	assert.Equal(t, 500, stats.CurrBytes)
	assert.Equal(t, 2, stats.Entries)

	_, ok := c.Lookup("f600")
	assert.False(t, ok, "the largest entry should have been evicted")

	_, ok = c.Lookup("f300")
	assert.True(t, ok)
	_, ok = c.Lookup("f200")
	assert.True(t, ok)

	assert.ElementsMatch(t, []string{"f300", "f200"}, c.Names())
}

func TestEvictionFreesExactlyWhatsNeeded(t *testing.T) {
	c := New(100)
	require.True(t, c.Insert("a", make([]byte, 40)))
	require.True(t, c.Insert("b", make([]byte, 40)))
	require.True(t, c.Insert("c", make([]byte, 40)))

	// a or b must have been evicted to make room for c; curr_bytes <= max.
	assert.LessOrEqual(t, c.Stats().CurrBytes, 100)
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestDelete(t *testing.T) {
	c := New(100)
	require.True(t, c.Insert("a", []byte("x")))
	require.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))

	_, ok := c.Lookup("a")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().CurrBytes)
}
