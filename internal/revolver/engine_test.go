package revolver

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed всегда кладёт патрон в одну и ту же камору.
func fixed(idx int) Picker {
	return func(int) int { return idx }
}

func TestNew_InvalidChambers(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := New(n)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "chambers=%d", n)
	}
}

func TestReload_ExactlyOneLoaded(t *testing.T) {
	for n := 2; n <= 12; n++ {
		for idx := 0; idx < n; idx++ {
			e, err := New(n, WithPicker(fixed(idx)))
			require.NoError(t, err)

			st := e.reload()
			assert.Equal(t, n, st.Len())
			assert.Equal(t, 1, st.Loaded())
			assert.True(t, st.chambers[idx])
		}
	}
}

func TestReload_OutOfRangePickIsWrapped(t *testing.T) {
	e, err := New(6, WithPicker(fixed(-1)))
	require.NoError(t, err)

	st := e.reload()
	assert.Equal(t, 1, st.Loaded())
	assert.True(t, st.chambers[5])
}

func TestFire_FirstShotLoadsCylinder(t *testing.T) {
	e, err := New(DefaultChambers, WithPicker(fixed(0)))
	require.NoError(t, err)

	shot := e.Fire(1)
	assert.False(t, shot.Hit)
	assert.True(t, shot.Reloaded)
	assert.Equal(t, 5, shot.RemainingBefore)
	assert.Equal(t, 1, e.Chats())
}

func TestFire_ShrinkingPoolUntilHit(t *testing.T) {
	e, err := New(DefaultChambers, WithPicker(fixed(0)))
	require.NoError(t, err)

	// патрон в нулевой каморе, снимаем с конца - пять промахов подряд
	for want := 5; want >= 1; want-- {
		shot := e.Fire(42)
		require.False(t, shot.Hit)
		assert.Equal(t, want, shot.RemainingBefore)

		st, ok := e.snapshot(42)
		require.True(t, ok)
		assert.Equal(t, want, st.Len())
		assert.Equal(t, 1, st.Loaded())
	}

	shot := e.Fire(42)
	assert.True(t, shot.Hit)
	assert.Equal(t, 0, shot.RemainingBefore)
	assert.True(t, shot.Reloaded)

	// после попадания барабан уже полный
	st, ok := e.snapshot(42)
	require.True(t, ok)
	assert.Equal(t, DefaultChambers, st.Len())
	assert.Equal(t, 1, st.Loaded())
}

func TestFire_HitWithinEveryCycle(t *testing.T) {
	for n := 2; n <= 10; n++ {
		for idx := 0; idx < n; idx++ {
			e, err := New(n, WithPicker(fixed(idx)))
			require.NoError(t, err)

			shots := 0
			for {
				shots++
				shot := e.Fire(7)
				if shot.Hit {
					assert.Equal(t, idx, shot.RemainingBefore)
					break
				}
				require.Less(t, shots, n, "n=%d idx=%d: cylinder ran dry without a hit", n, idx)
			}
			assert.Equal(t, n-idx, shots)
		}
	}
}

func TestFire_ChatsAreIndependent(t *testing.T) {
	e, err := New(DefaultChambers, WithPicker(fixed(0)))
	require.NoError(t, err)

	e.Fire(1)
	e.Fire(1)
	shot := e.Fire(2)
	assert.Equal(t, 5, shot.RemainingBefore)

	a, _ := e.snapshot(1)
	b, _ := e.snapshot(2)
	assert.Equal(t, 4, a.Len())
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, 2, e.Chats())
}

func TestFire_ConcurrentSameChat(t *testing.T) {
	e, err := New(DefaultChambers, WithPicker(fixed(0)))
	require.NoError(t, err)

	const cycles = 100
	var hits, misses atomic.Int64
	var start, wg sync.WaitGroup
	start.Add(1)
	for i := 0; i < DefaultChambers*cycles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			if e.Fire(9).Hit {
				hits.Add(1)
			} else {
				misses.Add(1)
			}
		}()
	}
	start.Done()
	wg.Wait()

	assert.EqualValues(t, cycles, hits.Load())
	assert.EqualValues(t, (DefaultChambers-1)*cycles, misses.Load())

	st, ok := e.snapshot(9)
	require.True(t, ok)
	assert.Equal(t, DefaultChambers, st.Len())
}

func TestFire_ConcurrentOneCycle(t *testing.T) {
	e, err := New(DefaultChambers, WithPicker(fixed(0)))
	require.NoError(t, err)

	results := make(chan Shot, DefaultChambers)
	var wg sync.WaitGroup
	for i := 0; i < DefaultChambers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.Fire(3)
		}()
	}
	wg.Wait()
	close(results)

	hits := 0
	seen := make(map[int]bool)
	for shot := range results {
		if shot.Hit {
			hits++
		}
		assert.False(t, seen[shot.RemainingBefore], "duplicate remaining %d", shot.RemainingBefore)
		seen[shot.RemainingBefore] = true
	}
	assert.Equal(t, 1, hits)
	assert.Len(t, seen, DefaultChambers)
}

func TestFire_DefaultPickerKeepsInvariant(t *testing.T) {
	e, err := New(DefaultChambers)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		e.Fire(5)
		st, ok := e.snapshot(5)
		require.True(t, ok)
		require.False(t, st.Empty())
		require.Equal(t, 1, st.Loaded())
	}
}
