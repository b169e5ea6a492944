package booking

import (
	"context"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（座席確保と同一トランザクションで実行する）
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// ListByDeparture は出発日程に紐づく予約一覧を取得する
	ListByDeparture(ctx context.Context, departureID string, limit, offset int) ([]*Booking, error)

	// Delete は予約を削除し、削除した予約を返す
	Delete(ctx context.Context, id string) (*Booking, error)

	// UpdatePaymentStatus は支払い状態を更新し、更新後の予約と変更前の状態を返す
	// 変更前後の比較はこの戻り値で行い、共有状態には持たない
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus) (*Booking, PaymentStatus, error)
}
