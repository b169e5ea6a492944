package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// TourType はツアーの形態を表す
type TourType string

const (
	TourTypeGroup   TourType = "group"
	TourTypePrivate TourType = "private"
)

// PaymentStatus は支払い状態を表す
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsValid は支払い状態が定義済みの値かを返す
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Booking はツアー予約エンティティを表す
// グループツアーの場合、作成が台帳の Reserve を、削除が Release をトリガーする
type Booking struct {
	ID            string
	DepartureID   string // 正規化済みの出発日程ID
	TourType      TourType
	TotalPax      int
	CustomerEmail string
	PaymentStatus PaymentStatus
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewBooking は新しい予約を作成する
func NewBooking(departureID string, tourType TourType, totalPax int, customerEmail string, totalAmount decimal.Decimal) *Booking {
	now := time.Now()
	return &Booking{
		DepartureID:   departureID,
		TourType:      tourType,
		TotalPax:      totalPax,
		CustomerEmail: customerEmail,
		PaymentStatus: PaymentPending,
		TotalAmount:   totalAmount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsGroupTour はグループツアー予約かを返す
// 台帳への Reserve / Release はグループツアーのみが対象
func (b *Booking) IsGroupTour() bool {
	return b.TourType == TourTypeGroup
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.DepartureID == "" {
		return ErrDepartureIDRequired
	}
	if b.TourType != TourTypeGroup && b.TourType != TourTypePrivate {
		return ErrInvalidTourType
	}
	if b.TotalPax < 1 {
		return ErrInvalidTotalPax
	}
	if b.CustomerEmail == "" {
		return ErrCustomerEmailRequired
	}
	if !b.PaymentStatus.IsValid() {
		return ErrInvalidPaymentStatus
	}
	return nil
}
