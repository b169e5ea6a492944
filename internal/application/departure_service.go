package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
	redisinfra "github.com/ZRIAdventures/go-tour-capacity/internal/infrastructure/redis"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/logger"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/metrics"
)

const availabilityCacheTTL = 30 * time.Second

// DepartureService は出発日程と定員台帳の操作を提供する
type DepartureService struct {
	repo    departure.Repository
	cache   *redisinfra.AvailabilityCache
	metrics *metrics.Metrics
}

func NewDepartureService(repo departure.Repository, cache *redisinfra.AvailabilityCache, m *metrics.Metrics) *DepartureService {
	return &DepartureService{repo: repo, cache: cache, metrics: m}
}

type CreateDepartureInput struct {
	TourCode        string
	DepartsOn       time.Time
	MaxCapacity     int
	PricePerSeat    decimal.Decimal
	DiscountPercent decimal.Decimal
	GroupStatus     departure.Status // 空の場合は open
	LegacyID        *int64
}

// CreateDeparture は新しい出発日程を作成する
// BookedCount は常に0で開始する
func (s *DepartureService) CreateDeparture(ctx context.Context, input CreateDepartureInput) (*departure.Departure, error) {
	d := departure.NewDeparture(input.TourCode, input.DepartsOn, input.MaxCapacity, input.PricePerSeat)
	d.DiscountPercent = input.DiscountPercent
	d.LegacyID = input.LegacyID
	if input.GroupStatus != "" {
		d.GroupStatus = input.GroupStatus
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDeparture は参照形式を正規化して出発日程を取得する
func (s *DepartureService) GetDeparture(ctx context.Context, ref departure.Ref) (*departure.Departure, error) {
	return s.resolve(ctx, ref)
}

// ListDepartures は出発日程一覧を取得する
func (s *DepartureService) ListDepartures(ctx context.Context, limit, offset int) ([]*departure.Departure, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset)
}

type UpdateDepartureInput struct {
	Ref             departure.Ref
	TourCode        *string
	DepartsOn       *time.Time
	MaxCapacity     *int
	GroupStatus     *departure.Status
	PricePerSeat    *decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// UpdateDeparture は運用者による編集を反映する
// BookedCount はこの経路では変更できず、GroupStatus は現在の予約数に対して
// リポジトリ側のUPDATE文内で再導出される
func (s *DepartureService) UpdateDeparture(ctx context.Context, input UpdateDepartureInput) (*departure.Departure, error) {
	d, err := s.resolve(ctx, input.Ref)
	if err != nil {
		return nil, err
	}

	if input.TourCode != nil {
		d.TourCode = *input.TourCode
	}
	if input.DepartsOn != nil {
		d.DepartsOn = *input.DepartsOn
	}
	if input.MaxCapacity != nil {
		d.MaxCapacity = *input.MaxCapacity
	}
	if input.GroupStatus != nil {
		d.GroupStatus = *input.GroupStatus
	}
	if input.PricePerSeat != nil {
		d.PricePerSeat = *input.PricePerSeat
	}
	if input.DiscountPercent != nil {
		d.DiscountPercent = *input.DiscountPercent
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, d.ID)
	return d, nil
}

// Reserve は pax 席をアトミックに確保する
// 定員と受付状態の検査は書き込みと同一のアトミックな文で行われる
func (s *DepartureService) Reserve(ctx context.Context, ref departure.Ref, pax int) (*departure.Departure, error) {
	if pax <= 0 {
		return nil, departure.ErrInvalidPax
	}
	id, err := s.resolveID(ctx, ref)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	d, err := s.repo.Reserve(ctx, id, pax)
	s.observe("reserve", start, err)
	if err != nil {
		logger.Warn("座席確保に失敗",
			zap.String("departure_id", id),
			zap.Int("pax", pax),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Info("座席を確保",
		zap.String("departure_id", d.ID),
		zap.Int("pax", pax),
		zap.Int("booked_count", d.BookedCount),
		zap.String("group_status", string(d.GroupStatus)),
	)
	s.invalidateCache(ctx, d.ID)
	return d, nil
}

// Release は pax 席をアトミックに解放する
// 予約数を超える解放は0に切り下げられる（上流の補償処理を妨げないため）
func (s *DepartureService) Release(ctx context.Context, ref departure.Ref, pax int) (*departure.Departure, error) {
	if pax <= 0 {
		return nil, departure.ErrInvalidPax
	}
	id, err := s.resolveID(ctx, ref)
	if err != nil {
		if errors.Is(err, departure.ErrDepartureNotFound) {
			err = fmt.Errorf("%w: %v", departure.ErrReleaseFailed, err)
		}
		return nil, err
	}

	start := time.Now()
	d, err := s.repo.Release(ctx, id, pax)
	s.observe("release", start, err)
	if err != nil {
		logger.Error("座席解放に失敗（要手動確認）",
			zap.String("departure_id", id),
			zap.Int("pax", pax),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Info("座席を解放",
		zap.String("departure_id", d.ID),
		zap.Int("pax", pax),
		zap.Int("booked_count", d.BookedCount),
		zap.String("group_status", string(d.GroupStatus)),
	)
	s.invalidateCache(ctx, d.ID)
	return d, nil
}

// GetAvailability は残席数を返す（表示用の参考値）
// キャッシュの値は非権威であり、予約可否は常に Reserve 側で再検査される
func (s *DepartureService) GetAvailability(ctx context.Context, ref departure.Ref) (int, error) {
	id, err := s.resolveID(ctx, ref)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		remaining, err := s.cache.GetRemaining(ctx, id)
		if err == nil {
			s.countCache("hit")
			return remaining, nil
		}
		if errors.Is(err, redisinfra.ErrCacheMiss) {
			s.countCache("miss")
		} else {
			s.countCache("error")
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	remaining := d.Remaining()

	if s.cache != nil {
		if cacheErr := s.cache.SetRemaining(ctx, id, remaining, availabilityCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return remaining, nil
}

// resolve は参照を正規化して出発日程を取得する
func (s *DepartureService) resolve(ctx context.Context, ref departure.Ref) (*departure.Departure, error) {
	switch {
	case ref.ID != "":
		return s.repo.GetByID(ctx, ref.ID)
	case ref.LegacyID != 0:
		return s.repo.GetByLegacyID(ctx, ref.LegacyID)
	default:
		return nil, departure.ErrInvalidRef
	}
}

// resolveID は参照を正規のIDへ解決する
// 正規ID参照は追加の読み取りなしでそのまま使える
func (s *DepartureService) resolveID(ctx context.Context, ref departure.Ref) (string, error) {
	if ref.ID != "" {
		return ref.ID, nil
	}
	if ref.LegacyID != 0 {
		d, err := s.repo.GetByLegacyID(ctx, ref.LegacyID)
		if err != nil {
			return "", err
		}
		return d.ID, nil
	}
	return "", departure.ErrInvalidRef
}

func (s *DepartureService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("departure_id", id), zap.Error(err))
	}
}

func (s *DepartureService) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.CapacityOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	s.metrics.CapacityOperationsTotal.WithLabelValues(operation, classifyResult(err)).Inc()
}

func (s *DepartureService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.AvailabilityCacheTotal.WithLabelValues(result).Inc()
	}
}

func classifyResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, departure.ErrCapacityUnavailable):
		return "conflict"
	case errors.Is(err, departure.ErrDepartureNotFound):
		return "not_found"
	case errors.Is(err, departure.ErrReleaseFailed):
		return "conflict"
	default:
		return "error"
	}
}
