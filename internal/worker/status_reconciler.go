package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/logger"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/metrics"
)

// DriftRepository はステータスの照合に必要なリポジトリ操作
type DriftRepository interface {
	ListDrifted(ctx context.Context, limit int) ([]*departure.Departure, error)
	FixStatus(ctx context.Context, id string, observed departure.Status, observedBooked int, to departure.Status) (bool, error)
}

// StatusReconciler は group_status が導出規則とずれた行を定期的に修正するワーカー
// 通常経路のアトミックな更新が正しければずれは起きない。直接SQLでの
// 手作業や移行時の取り込みで生じたずれを拾うための安全網
type StatusReconciler struct {
	repo      DriftRepository
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewStatusReconciler は新しいリコンサイラを作成
func NewStatusReconciler(repo DriftRepository, m *metrics.Metrics, interval time.Duration, batchSize int) *StatusReconciler {
	return &StatusReconciler{
		repo:      repo,
		metrics:   m,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はリコンサイラを開始
func (r *StatusReconciler) Start(ctx context.Context) {
	logger.Info("ステータスリコンサイラ開始",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("ステータスリコンサイラ停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("ステータスリコンサイラ停止（シグナル受信）")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// Stop はリコンサイラを停止
func (r *StatusReconciler) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// reconcile はずれた行を1バッチ分修正する
// 観測した値が変わっていた行はスキップされ、次回の実行で再評価される
func (r *StatusReconciler) reconcile(ctx context.Context) {
	log := logger.Get()
	log.Debug("ステータス照合開始")

	drifted, err := r.repo.ListDrifted(ctx, r.batchSize)
	if err != nil {
		log.Error("ずれた行の取得に失敗", zap.Error(err))
		return
	}
	if len(drifted) == 0 {
		log.Debug("ステータスのずれなし")
		return
	}

	fixed := 0
	for _, d := range drifted {
		want := departure.DeriveStatus(d.BookedCount, d.MaxCapacity, d.GroupStatus)
		if want == d.GroupStatus {
			continue
		}
		applied, err := r.repo.FixStatus(ctx, d.ID, d.GroupStatus, d.BookedCount, want)
		if err != nil {
			log.Error("ステータス修正に失敗",
				zap.String("departure_id", d.ID),
				zap.Error(err),
			)
			continue
		}
		if applied {
			fixed++
			if r.metrics != nil {
				r.metrics.StatusDriftRepairsTotal.Inc()
			}
			log.Warn("ずれたステータスを修正",
				zap.String("departure_id", d.ID),
				zap.String("from", string(d.GroupStatus)),
				zap.String("to", string(want)),
				zap.Int("booked_count", d.BookedCount),
				zap.Int("max_capacity", d.MaxCapacity),
			)
		}
	}

	log.Info("ステータス照合完了",
		zap.Int("drifted", len(drifted)),
		zap.Int("fixed", fixed),
	)
}
