package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledger interface {
	Migrate(ctx context.Context) error
	Find(ctx context.Context, id int64) (*PlayerRecord, error)
	Register(ctx context.Context, id int64, profile Profile) error
	RecordMiss(ctx context.Context, id int64) error
	RecordDeath(ctx context.Context, id int64, penaltyMinutes int) error
	Erase(ctx context.Context, id int64) error
	EraseAll(ctx context.Context) error
	ListRanked(ctx context.Context) ([]PlayerRecord, error)
	Close() error
}

// testClock тикает на секунду при каждом обращении.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestSQLiteLedger(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T, clock *testClock) ledger {
		s, err := NewSQLite(MemoryPath, WithClock(clock.Now))
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteLedger_File(t *testing.T) {
	path := t.TempDir() + "/nested/roulette.db"
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrate must be repeatable")
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Register(ctx, 1, Profile{ProfileUsername: "alice"}))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

// Требует живой PostgreSQL, таблица roulette_players будет очищена.
func TestPostgresLedger(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN is not set")
	}
	runLedgerSuite(t, func(t *testing.T, clock *testClock) ledger {
		s, err := NewPostgres(context.Background(), dsn, WithClock(clock.Now))
		require.NoError(t, err)
		require.NoError(t, s.Ping(context.Background()))
		return s
	})
}

func runLedgerSuite(t *testing.T, open func(t *testing.T, clock *testClock) ledger) {
	setup := func(t *testing.T) (ledger, *testClock) {
		clock := newTestClock()
		s := open(t, clock)
		t.Cleanup(func() { s.Close() })
		ctx := context.Background()
		require.NoError(t, s.Migrate(ctx))
		require.NoError(t, s.EraseAll(ctx))
		return s, clock
	}
	ctx := context.Background()

	t.Run("find missing", func(t *testing.T) {
		s, _ := setup(t)
		_, err := s.Find(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("register zeroes counters", func(t *testing.T) {
		s, _ := setup(t)
		profile := Profile{ProfileUsername: "alice", ProfileFullName: "Alice Liddell"}
		require.NoError(t, s.Register(ctx, 1, profile))

		p, err := s.Find(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
		assert.Equal(t, "alice", p.Profile.String(ProfileUsername))
		assert.Equal(t, "Alice Liddell", p.Profile.String(ProfileFullName))
		assert.Zero(t, p.ShotCounter)
		assert.Zero(t, p.MissCounter)
		assert.Zero(t, p.DeadCounter)
		assert.Zero(t, p.TotalPenaltySeconds)
		assert.True(t, p.FirstShotAt.Equal(p.LastShotAt))
	})

	t.Run("register twice keeps history", func(t *testing.T) {
		s, _ := setup(t)
		require.NoError(t, s.Register(ctx, 1, Profile{ProfileUsername: "alice"}))
		require.NoError(t, s.RecordMiss(ctx, 1))

		err := s.Register(ctx, 1, Profile{ProfileUsername: "mallory"})
		assert.ErrorIs(t, err, ErrAlreadyRegistered)

		p, err := s.Find(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, p.ShotCounter)
		assert.Equal(t, "alice", p.Profile.String(ProfileUsername))
	})

	t.Run("record on missing player", func(t *testing.T) {
		s, _ := setup(t)
		assert.ErrorIs(t, s.RecordMiss(ctx, 7), ErrNotFound)
		assert.ErrorIs(t, s.RecordDeath(ctx, 7, 960), ErrNotFound)
	})

	t.Run("negative penalty rejected", func(t *testing.T) {
		s, _ := setup(t)
		require.NoError(t, s.Register(ctx, 1, nil))
		assert.Error(t, s.RecordDeath(ctx, 1, -1))

		p, err := s.Find(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, p.ShotCounter)
	})

	t.Run("counters stay consistent", func(t *testing.T) {
		s, _ := setup(t)
		require.NoError(t, s.Register(ctx, 1, nil))

		steps := []int{0, 0, 960, 0, 1920, 5760}
		for _, minutes := range steps {
			if minutes == 0 {
				require.NoError(t, s.RecordMiss(ctx, 1))
			} else {
				require.NoError(t, s.RecordDeath(ctx, 1, minutes))
			}
			p, err := s.Find(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, p.MissCounter+p.DeadCounter, p.ShotCounter)
			assert.False(t, p.LastShotAt.Before(p.FirstShotAt))
		}

		p, err := s.Find(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 6, p.ShotCounter)
		assert.Equal(t, 3, p.MissCounter)
		assert.Equal(t, 3, p.DeadCounter)
		assert.Equal(t, int64((960+1920+5760)*60), p.TotalPenaltySeconds)
		assert.Equal(t, 144*time.Hour, p.TotalPenalty())
		assert.True(t, p.LastShotAt.After(p.FirstShotAt))
	})

	t.Run("concurrent records are atomic", func(t *testing.T) {
		s, _ := setup(t)
		require.NoError(t, s.Register(ctx, 1, nil))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%4 == 0 {
					assert.NoError(t, s.RecordDeath(ctx, 1, 10))
				} else {
					assert.NoError(t, s.RecordMiss(ctx, 1))
				}
			}(i)
		}
		wg.Wait()

		p, err := s.Find(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 20, p.ShotCounter)
		assert.Equal(t, 5, p.DeadCounter)
		assert.Equal(t, 15, p.MissCounter)
		assert.Equal(t, int64(5*10*60), p.TotalPenaltySeconds)
	})

	t.Run("erase then register starts over", func(t *testing.T) {
		s, _ := setup(t)
		require.NoError(t, s.Register(ctx, 1, nil))
		require.NoError(t, s.RecordDeath(ctx, 1, 960))

		require.NoError(t, s.Erase(ctx, 1))
		require.NoError(t, s.Erase(ctx, 1), "erase must be idempotent")
		_, err := s.Find(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.Register(ctx, 1, nil))
		p, err := s.Find(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, p.ShotCounter)
		assert.Zero(t, p.DeadCounter)
		assert.Zero(t, p.TotalPenaltySeconds)
	})

	t.Run("erase all", func(t *testing.T) {
		s, _ := setup(t)
		for id := int64(1); id <= 3; id++ {
			require.NoError(t, s.Register(ctx, id, nil))
		}
		require.NoError(t, s.EraseAll(ctx))

		players, err := s.ListRanked(ctx)
		require.NoError(t, err)
		assert.Empty(t, players)
	})

	t.Run("list ranked", func(t *testing.T) {
		s, _ := setup(t)
		for id := int64(1); id <= 4; id++ {
			require.NoError(t, s.Register(ctx, id, Profile{ProfileUsername: "p"}))
		}
		require.NoError(t, s.RecordDeath(ctx, 2, 960))
		require.NoError(t, s.RecordDeath(ctx, 3, 5760))
		require.NoError(t, s.RecordDeath(ctx, 4, 960))
		require.NoError(t, s.RecordMiss(ctx, 1))

		players, err := s.ListRanked(ctx)
		require.NoError(t, err)
		require.Len(t, players, 4)

		ids := make([]int64, 0, len(players))
		for i, p := range players {
			ids = append(ids, p.ID)
			if i > 0 {
				assert.GreaterOrEqual(t, players[i-1].TotalPenaltySeconds, p.TotalPenaltySeconds)
			}
		}
		// равные штрафы идут в порядке регистрации
		assert.Equal(t, []int64{3, 2, 4, 1}, ids)

		again, err := s.ListRanked(ctx)
		require.NoError(t, err)
		assert.Equal(t, players, again)
	})
}
