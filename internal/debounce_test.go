package internal

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[T any] struct {
	mu   sync.Mutex
	seen []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, v)
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.seen))
	copy(out, r.seen)
	return out
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	rec := &recorder[int]{}
	d := NewDebouncer(30*time.Millisecond, rec.add)
	defer d.Stop()

	for i := 1; i <= 5; i++ {
		d.Push(i)
	}
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{5}, rec.values())
	assert.False(t, d.Pending())

	// Nothing else arrives once the window has passed.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []int{5}, rec.values())
}

func TestDebouncerSeparateBursts(t *testing.T) {
	rec := &recorder[string]{}
	d := NewDebouncer(20*time.Millisecond, rec.add)
	defer d.Stop()

	d.Push("a")
	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)
	d.Push("b")
	d.Push("c")
	require.Eventually(t, func() bool { return len(rec.values()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "c"}, rec.values())
}

func TestDebouncerFlush(t *testing.T) {
	rec := &recorder[int]{}
	d := NewDebouncer(time.Hour, rec.add)
	defer d.Stop()

	assert.False(t, d.Flush())
	d.Push(7)
	assert.True(t, d.Flush())
	assert.Equal(t, []int{7}, rec.values())
	assert.False(t, d.Pending())
	assert.False(t, d.Flush())
}

func TestDebouncerStop(t *testing.T) {
	rec := &recorder[int]{}
	d := NewDebouncer(10*time.Millisecond, rec.add)

	d.Push(1)
	d.Stop()
	d.Push(2)
	assert.False(t, d.Pending())
	assert.False(t, d.Flush())

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.values())
}

func TestDebouncerDefaultWindow(t *testing.T) {
	d := NewDebouncer(0, func(int) {})
	assert.Equal(t, DefaultDebounceWindow, d.window)
}
