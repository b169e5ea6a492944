package departure

import (
	"context"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/transaction"
)

// Repository は出発日程リポジトリのインターフェース
// Reserve / Release は単一の条件付きUPDATEとして実装されなければならない
// （読み取り後に書き込む方式は並行予約の競合を再発させるため禁止）
type Repository interface {
	// Create は新しい出発日程を作成する
	Create(ctx context.Context, d *Departure) error

	// GetByID はIDから出発日程を取得する
	GetByID(ctx context.Context, id string) (*Departure, error)

	// GetByLegacyID は旧CMSの数値IDから出発日程を取得する
	GetByLegacyID(ctx context.Context, legacyID int64) (*Departure, error)

	// List は出発日程一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Departure, error)

	// Update は運用者による編集を反映する
	// BookedCount には触れず、ステータスの再導出は呼び出し側の責務
	Update(ctx context.Context, d *Departure) error

	// Reserve は pax 席をアトミックに確保する
	// 条件（open かつ残席 >= pax）を満たさない場合は ErrCapacityUnavailable
	Reserve(ctx context.Context, id string, pax int) (*Departure, error)

	// ReserveTx はトランザクション内で pax 席をアトミックに確保する
	// 予約行の挿入と座席確保を1コミットに載せるために使用する
	ReserveTx(ctx context.Context, tx transaction.Tx, id string, pax int) (*Departure, error)

	// Release は pax 席をアトミックに解放する（0未満にはならない）
	// 対象が存在しない場合は ErrReleaseFailed
	Release(ctx context.Context, id string, pax int) (*Departure, error)

	// ListDrifted は group_status が導出規則とずれている行を返す
	ListDrifted(ctx context.Context, limit int) ([]*Departure, error)

	// FixStatus は観測した値が変わっていない場合のみステータスを修正する
	// 修正が適用された場合は true を返す
	FixStatus(ctx context.Context, id string, observed Status, observedBooked int, to Status) (bool, error)
}
