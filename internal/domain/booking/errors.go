package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound       = errors.New("予約が見つかりません")
	ErrDepartureIDRequired   = errors.New("出発日程IDは必須です")
	ErrInvalidTourType       = errors.New("ツアー形態が不正です")
	ErrInvalidTotalPax       = errors.New("参加人数は1以上である必要があります")
	ErrCustomerEmailRequired = errors.New("顧客メールアドレスは必須です")
	ErrInvalidPaymentStatus  = errors.New("支払い状態が不正です")
)
