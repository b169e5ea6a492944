package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/booking"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/transaction"
	"github.com/ZRIAdventures/go-tour-capacity/internal/infrastructure/webhook"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/logger"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/pricing"
)

// PaymentNotifier は支払い状態変更の通知先
type PaymentNotifier interface {
	Notify(e webhook.Event)
}

// BookingService はツアー予約と定員台帳の連携を提供する
// グループツアーでは、予約の作成が座席確保を、削除が座席解放をトリガーする
type BookingService struct {
	txManager        transaction.Manager
	bookingRepo      booking.Repository
	departureRepo    departure.Repository
	departureService *DepartureService
	notifier         PaymentNotifier
}

func NewBookingService(
	tm transaction.Manager,
	br booking.Repository,
	dr departure.Repository,
	ds *DepartureService,
	notifier PaymentNotifier,
) *BookingService {
	return &BookingService{
		txManager:        tm,
		bookingRepo:      br,
		departureRepo:    dr,
		departureService: ds,
		notifier:         notifier,
	}
}

type CreateBookingInput struct {
	DepartureRef  departure.Ref
	TourType      booking.TourType
	TotalPax      int
	CustomerEmail string
}

// CreateBooking は予約を作成する
// グループツアーの場合、座席確保と予約行の挿入を同一トランザクションで行う
// 座席確保が失敗した場合、予約は一切永続化されない
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*booking.Booking, error) {
	if input.TotalPax <= 0 {
		return nil, booking.ErrInvalidTotalPax
	}

	// 単価と正規IDの取得のための読み取り
	// 定員の検査はここでは行わない（Reserve側のアトミックな文が行う）
	d, err := s.departureService.resolve(ctx, input.DepartureRef)
	if err != nil {
		return nil, fmt.Errorf("出発日程の取得に失敗: %w", err)
	}

	amount := pricing.Total(d.PricePerSeat, d.DiscountPercent, input.TotalPax)
	b := booking.NewBooking(d.ID, input.TourType, input.TotalPax, input.CustomerEmail, amount)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if b.IsGroupTour() {
		if _, err := s.departureRepo.ReserveTx(ctx, tx, d.ID, input.TotalPax); err != nil {
			return nil, err
		}
	}
	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	if b.IsGroupTour() {
		s.departureService.invalidateCache(ctx, d.ID)
	}
	logger.Info("予約を作成",
		zap.String("booking_id", b.ID),
		zap.String("departure_id", d.ID),
		zap.Int("total_pax", b.TotalPax),
	)
	return b, nil
}

// GetBooking はIDから予約を取得する
func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// ListBookingsByDeparture は出発日程に紐づく予約一覧を取得する
func (s *BookingService) ListBookingsByDeparture(ctx context.Context, ref departure.Ref, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	d, err := s.departureService.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.bookingRepo.ListByDeparture(ctx, d.ID, limit, offset)
}

// DeleteBooking は予約を削除し、グループツアーの場合は座席を解放する
// 削除のコミット後に解放が失敗しても削除は取り消されない
// 失敗はログに記録され、台帳は過剰計上のまま手動照合に委ねられる
func (s *BookingService) DeleteBooking(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.IsGroupTour() {
		if _, err := s.departureService.Release(ctx, departure.Ref{ID: b.DepartureID}, b.TotalPax); err != nil {
			// 削除は既に確定している。解放失敗で削除結果を覆い隠さない
			logger.Error("予約削除後の座席解放に失敗（要手動照合）",
				zap.String("booking_id", b.ID),
				zap.String("departure_id", b.DepartureID),
				zap.Int("total_pax", b.TotalPax),
				zap.Error(err),
			)
		}
	}
	return b, nil
}

// UpdatePaymentStatus は支払い状態を更新する
// 状態が変化した場合のみ外部Webhookへ通知する
// 変更前の値は更新と同一文で取得したものを明示的に引き回す
func (s *BookingService) UpdatePaymentStatus(ctx context.Context, id string, status booking.PaymentStatus) (*booking.Booking, error) {
	if !status.IsValid() {
		return nil, booking.ErrInvalidPaymentStatus
	}

	b, previous, err := s.bookingRepo.UpdatePaymentStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if previous != b.PaymentStatus && s.notifier != nil {
		s.notifier.Notify(webhook.Event{
			BookingID:      b.ID,
			DepartureID:    b.DepartureID,
			PreviousStatus: string(previous),
			CurrentStatus:  string(b.PaymentStatus),
		})
	}
	return b, nil
}
