//go:build integration
// +build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZRIAdventures/go-tour-capacity/internal/config"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
)

func setupRepoTestEnv(t *testing.T) (*DepartureRepository, func()) {
	cfg := config.Load()

	db, err := NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}

	if err := RunMigrations(db.DB, "../../../migrations"); err != nil {
		db.Close()
		t.Skipf("マイグレーションエラー: %v", err)
	}

	cleanup := func() {
		db.Exec("DELETE FROM tour_bookings")
		db.Exec("DELETE FROM group_tour_departures")
		db.Close()
	}

	return NewDepartureRepository(db), cleanup
}

func createRepoTestDeparture(t *testing.T, repo *DepartureRepository, maxCapacity int) *departure.Departure {
	t.Helper()
	d := departure.NewDeparture("IT-KYOTO-3D", time.Now().AddDate(0, 1, 0), maxCapacity, decimal.NewFromInt(25000))
	require.NoError(t, repo.Create(context.Background(), d))
	require.NotEmpty(t, d.ID)
	return d
}

func TestDepartureRepository_ReserveRelease(t *testing.T) {
	repo, cleanup := setupRepoTestEnv(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("残席を超える確保は失敗し、行は変化しない", func(t *testing.T) {
		d := createRepoTestDeparture(t, repo, 10)

		got, err := repo.Reserve(ctx, d.ID, 8)
		require.NoError(t, err)
		assert.Equal(t, 8, got.BookedCount)
		assert.Equal(t, departure.StatusOpen, got.GroupStatus)

		_, err = repo.Reserve(ctx, d.ID, 3)
		assert.ErrorIs(t, err, departure.ErrCapacityUnavailable)

		after, err := repo.GetByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, after.BookedCount)
		assert.Equal(t, departure.StatusOpen, after.GroupStatus)
	})

	t.Run("ちょうど残席分の確保で満席になる", func(t *testing.T) {
		d := createRepoTestDeparture(t, repo, 5)

		_, err := repo.Reserve(ctx, d.ID, 3)
		require.NoError(t, err)

		got, err := repo.Reserve(ctx, d.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, got.BookedCount)
		assert.Equal(t, departure.StatusFull, got.GroupStatus)

		_, err = repo.Reserve(ctx, d.ID, 1)
		assert.ErrorIs(t, err, departure.ErrCapacityUnavailable)
	})

	t.Run("満席からの解放で受付中に戻る", func(t *testing.T) {
		d := createRepoTestDeparture(t, repo, 4)
		_, err := repo.Reserve(ctx, d.ID, 4)
		require.NoError(t, err)

		got, err := repo.Release(ctx, d.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, got.BookedCount)
		assert.Equal(t, departure.StatusOpen, got.GroupStatus)
	})

	t.Run("過剰な解放は0で止まる", func(t *testing.T) {
		d := createRepoTestDeparture(t, repo, 10)
		_, err := repo.Reserve(ctx, d.ID, 2)
		require.NoError(t, err)

		got, err := repo.Release(ctx, d.ID, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, got.BookedCount)
		assert.Equal(t, departure.StatusOpen, got.GroupStatus)
	})

	t.Run("closedの日程は確保できず、解放してもclosedのまま", func(t *testing.T) {
		d := createRepoTestDeparture(t, repo, 10)
		_, err := repo.Reserve(ctx, d.ID, 3)
		require.NoError(t, err)

		d.GroupStatus = departure.StatusClosed
		require.NoError(t, repo.Update(ctx, d))

		_, err = repo.Reserve(ctx, d.ID, 1)
		assert.ErrorIs(t, err, departure.ErrCapacityUnavailable)
		assert.ErrorContains(t, err, departure.ErrDepartureClosed.Error())

		got, err := repo.Release(ctx, d.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, got.BookedCount)
		assert.Equal(t, departure.StatusClosed, got.GroupStatus)
	})

	t.Run("存在しない日程", func(t *testing.T) {
		_, err := repo.Reserve(ctx, "00000000-0000-0000-0000-000000000000", 1)
		assert.ErrorIs(t, err, departure.ErrDepartureNotFound)

		_, err = repo.Release(ctx, "00000000-0000-0000-0000-000000000000", 1)
		assert.ErrorIs(t, err, departure.ErrReleaseFailed)
	})
}

func TestDepartureRepository_Update(t *testing.T) {
	repo, cleanup := setupRepoTestEnv(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("定員を予約数未満に下げる編集は拒否される", func(t *testing.T) {
		d := createRepoTestDeparture(t, repo, 10)
		_, err := repo.Reserve(ctx, d.ID, 6)
		require.NoError(t, err)

		d.MaxCapacity = 5
		err = repo.Update(ctx, d)
		assert.ErrorIs(t, err, departure.ErrBookedExceedsCapacity)
	})

	t.Run("定員引き下げで満席に再導出される", func(t *testing.T) {
		d := createRepoTestDeparture(t, repo, 10)
		_, err := repo.Reserve(ctx, d.ID, 6)
		require.NoError(t, err)

		d.MaxCapacity = 6
		require.NoError(t, repo.Update(ctx, d))
		assert.Equal(t, departure.StatusFull, d.GroupStatus)
		assert.Equal(t, 6, d.BookedCount)
	})
}

// 50並行で残り1席を奪い合い、成功がちょうど1件であることを確認する
func TestDepartureRepository_ConcurrentReserve(t *testing.T) {
	repo, cleanup := setupRepoTestEnv(t)
	defer cleanup()
	ctx := context.Background()

	d := createRepoTestDeparture(t, repo, 1)

	const workers = 50
	var successCount, conflictCount int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(ctx, d.ID, 1)
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, departure.ErrCapacityUnavailable):
				atomic.AddInt32(&conflictCount, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount)
	assert.Equal(t, int32(workers-1), conflictCount)

	after, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.BookedCount)
	assert.Equal(t, departure.StatusFull, after.GroupStatus)
}
