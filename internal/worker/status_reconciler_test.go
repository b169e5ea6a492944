package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
)

// MockDriftRepository はDriftRepositoryのモック
type MockDriftRepository struct {
	mock.Mock
}

func (m *MockDriftRepository) ListDrifted(ctx context.Context, limit int) ([]*departure.Departure, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*departure.Departure), args.Error(1)
}

func (m *MockDriftRepository) FixStatus(ctx context.Context, id string, observed departure.Status, observedBooked int, to departure.Status) (bool, error) {
	args := m.Called(ctx, id, observed, observedBooked, to)
	return args.Bool(0), args.Error(1)
}

func TestNewStatusReconciler(t *testing.T) {
	mockRepo := new(MockDriftRepository)
	interval := 5 * time.Minute

	reconciler := NewStatusReconciler(mockRepo, nil, interval, 100)

	assert.NotNil(t, reconciler)
	assert.Equal(t, interval, reconciler.interval)
	assert.Equal(t, 100, reconciler.batchSize)
	assert.NotNil(t, reconciler.stopCh)
	assert.NotNil(t, reconciler.doneCh)
}

func TestStatusReconciler_Reconcile(t *testing.T) {
	t.Run("満席なのに open の行が full に修正される", func(t *testing.T) {
		mockRepo := new(MockDriftRepository)
		drifted := &departure.Departure{
			ID:          "dep-1",
			MaxCapacity: 10,
			BookedCount: 10,
			GroupStatus: departure.StatusOpen,
		}
		mockRepo.On("ListDrifted", mock.Anything, 100).Return([]*departure.Departure{drifted}, nil)
		mockRepo.On("FixStatus", mock.Anything, "dep-1", departure.StatusOpen, 10, departure.StatusFull).
			Return(true, nil)

		reconciler := NewStatusReconciler(mockRepo, nil, 5*time.Minute, 100)
		reconciler.reconcile(context.Background())

		mockRepo.AssertExpectations(t)
	})

	t.Run("空きがあるのに full の行が open に修正される", func(t *testing.T) {
		mockRepo := new(MockDriftRepository)
		drifted := &departure.Departure{
			ID:          "dep-2",
			MaxCapacity: 10,
			BookedCount: 4,
			GroupStatus: departure.StatusFull,
		}
		mockRepo.On("ListDrifted", mock.Anything, 100).Return([]*departure.Departure{drifted}, nil)
		mockRepo.On("FixStatus", mock.Anything, "dep-2", departure.StatusFull, 4, departure.StatusOpen).
			Return(true, nil)

		reconciler := NewStatusReconciler(mockRepo, nil, 5*time.Minute, 100)
		reconciler.reconcile(context.Background())

		mockRepo.AssertExpectations(t)
	})

	t.Run("ずれがない場合は何もしない", func(t *testing.T) {
		mockRepo := new(MockDriftRepository)
		mockRepo.On("ListDrifted", mock.Anything, 100).Return([]*departure.Departure{}, nil)

		reconciler := NewStatusReconciler(mockRepo, nil, 5*time.Minute, 100)
		reconciler.reconcile(context.Background())

		mockRepo.AssertNotCalled(t, "FixStatus")
	})

	t.Run("観測値が変わっていた行はスキップされる", func(t *testing.T) {
		mockRepo := new(MockDriftRepository)
		drifted := &departure.Departure{
			ID:          "dep-3",
			MaxCapacity: 10,
			BookedCount: 10,
			GroupStatus: departure.StatusOpen,
		}
		mockRepo.On("ListDrifted", mock.Anything, 100).Return([]*departure.Departure{drifted}, nil)
		// 照合と修正の間に行が更新された場合、FixStatus は適用されない
		mockRepo.On("FixStatus", mock.Anything, "dep-3", departure.StatusOpen, 10, departure.StatusFull).
			Return(false, nil)

		reconciler := NewStatusReconciler(mockRepo, nil, 5*time.Minute, 100)
		reconciler.reconcile(context.Background())

		mockRepo.AssertExpectations(t)
	})

	t.Run("取得に失敗しても落ちない", func(t *testing.T) {
		mockRepo := new(MockDriftRepository)
		mockRepo.On("ListDrifted", mock.Anything, 100).Return(nil, assert.AnError)

		reconciler := NewStatusReconciler(mockRepo, nil, 5*time.Minute, 100)
		reconciler.reconcile(context.Background())

		mockRepo.AssertNotCalled(t, "FixStatus")
	})
}

func TestStatusReconciler_StartStop(t *testing.T) {
	mockRepo := new(MockDriftRepository)
	mockRepo.On("ListDrifted", mock.Anything, 100).Return([]*departure.Departure{}, nil).Maybe()

	reconciler := NewStatusReconciler(mockRepo, nil, 10*time.Millisecond, 100)

	go reconciler.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	reconciler.Stop()

	// Stop 後に doneCh が閉じていることを確認
	select {
	case <-reconciler.doneCh:
	default:
		t.Fatal("doneCh should be closed after Stop")
	}
}
