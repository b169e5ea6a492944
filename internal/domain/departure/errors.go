package departure

import "errors"

// Departure ドメインのエラー定義
var (
	ErrDepartureNotFound     = errors.New("出発日程が見つかりません")
	ErrCapacityUnavailable   = errors.New("満席または受付終了のため予約できません")
	ErrDepartureClosed       = errors.New("この出発日程は受付を終了しています")
	ErrReleaseFailed         = errors.New("座席の解放に失敗しました")
	ErrInvalidPax            = errors.New("人数は1以上である必要があります")
	ErrTourCodeRequired      = errors.New("ツアーコードは必須です")
	ErrInvalidMaxCapacity    = errors.New("最大定員は1以上である必要があります")
	ErrBookedExceedsCapacity = errors.New("予約数は0以上かつ最大定員以下である必要があります")
	ErrInvalidStatus         = errors.New("無効なステータスです")
	ErrInvalidPrice          = errors.New("座席単価は0以上である必要があります")
	ErrInvalidDiscount       = errors.New("割引率は0〜100の範囲である必要があります")
	ErrInvalidRef            = errors.New("出発日程の参照形式が不正です")
)
