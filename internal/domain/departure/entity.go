package departure

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は出発日程の予約受付状態を表す
type Status string

const (
	StatusOpen   Status = "open"
	StatusFull   Status = "full"
	StatusClosed Status = "closed"
)

// IsValid はステータスが定義済みの値かを返す
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusFull, StatusClosed:
		return true
	}
	return false
}

// Departure はグループツアーの出発日程エンティティを表す
// BookedCount と GroupStatus の整合性はリポジトリのアトミックな更新で保証される
type Departure struct {
	ID              string
	LegacyID        *int64 // 旧CMSの数値ID（移行期の参照互換用）
	TourCode        string
	DepartsOn       time.Time
	MaxCapacity     int
	BookedCount     int
	GroupStatus     Status
	PricePerSeat    decimal.Decimal
	DiscountPercent decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDeparture は新しい出発日程を作成する
// BookedCount は 0、GroupStatus は open で初期化される
func NewDeparture(tourCode string, departsOn time.Time, maxCapacity int, pricePerSeat decimal.Decimal) *Departure {
	now := time.Now()
	return &Departure{
		TourCode:     tourCode,
		DepartsOn:    departsOn,
		MaxCapacity:  maxCapacity,
		BookedCount:  0,
		GroupStatus:  StatusOpen,
		PricePerSeat: pricePerSeat,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DeriveStatus は予約数と最大定員から状態を導出する
// closed は運用者のみが設定する状態であり、自動では遷移しない
func DeriveStatus(bookedCount, maxCapacity int, current Status) Status {
	if current == StatusClosed {
		return StatusClosed
	}
	if bookedCount >= maxCapacity {
		return StatusFull
	}
	return StatusOpen
}

// Remaining は残席数を返す
func (d *Departure) Remaining() int {
	remaining := d.MaxCapacity - d.BookedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsOpen は予約を受け付けているかを返す
func (d *Departure) IsOpen() bool {
	return d.GroupStatus == StatusOpen
}

// Validate は出発日程の検証を行う
func (d *Departure) Validate() error {
	if d.TourCode == "" {
		return ErrTourCodeRequired
	}
	if d.MaxCapacity < 1 {
		return ErrInvalidMaxCapacity
	}
	if d.BookedCount < 0 || d.BookedCount > d.MaxCapacity {
		return ErrBookedExceedsCapacity
	}
	if !d.GroupStatus.IsValid() {
		return ErrInvalidStatus
	}
	if d.PricePerSeat.IsNegative() {
		return ErrInvalidPrice
	}
	if d.DiscountPercent.IsNegative() || d.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidDiscount
	}
	return nil
}
