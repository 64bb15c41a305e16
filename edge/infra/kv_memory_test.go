package infra

import (
	"context"
	"testing"
	"time"

	"edge-dispatch/edge/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func TestMemoryKV_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, found, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Put(ctx, "a", []byte("1"), 0))
	v, found, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, kv.Delete(ctx, "a"))
	_, found, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryKV_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	in := []byte("abc")
	require.NoError(t, kv.Put(ctx, "k", in, 0))
	in[0] = 'X'

	out, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), out)
	out[0] = 'Y'

	again, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryKV_TTLExpiresAndCleanupRemoves(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	kv := NewMemoryKV(WithKVClock(clock.Now))

	require.NoError(t, kv.Put(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, kv.Put(ctx, "forever", []byte("v"), 0))

	clock.Advance(59 * time.Second)
	_, found, _ := kv.Get(ctx, "k")
	assert.True(t, found)

	clock.Advance(time.Second)
	_, found, _ = kv.Get(ctx, "k")
	assert.False(t, found)

	assert.Equal(t, 2, kv.Len())
	kv.Cleanup()
	assert.Equal(t, 1, kv.Len())
}

func TestMemoryKV_EmptyKey(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, _, err := kv.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrEmptyKey)
	assert.ErrorIs(t, kv.Put(ctx, "", nil, 0), domain.ErrEmptyKey)
	assert.ErrorIs(t, kv.Delete(ctx, ""), domain.ErrEmptyKey)
}
