package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/transaction"
)

type departureRow struct {
	ID              string          `db:"id"`
	LegacyID        *int64          `db:"legacy_id"`
	TourCode        string          `db:"tour_code"`
	DepartsOn       time.Time       `db:"departs_on"`
	MaxCapacity     int             `db:"max_capacity"`
	BookedCount     int             `db:"booked_count"`
	GroupStatus     string          `db:"group_status"`
	PricePerSeat    decimal.Decimal `db:"price_per_seat"`
	DiscountPercent decimal.Decimal `db:"discount_percent"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r *departureRow) toEntity() *departure.Departure {
	return &departure.Departure{
		ID: r.ID, LegacyID: r.LegacyID, TourCode: r.TourCode,
		DepartsOn: r.DepartsOn, MaxCapacity: r.MaxCapacity,
		BookedCount: r.BookedCount, GroupStatus: departure.Status(r.GroupStatus),
		PricePerSeat: r.PricePerSeat, DiscountPercent: r.DiscountPercent,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const departureColumns = `id, legacy_id, tour_code, departs_on, max_capacity, booked_count, group_status, price_per_seat, discount_percent, created_at, updated_at`

// DepartureRepository は出発日程リポジトリのPostgreSQL実装
// Reserve / Release は条件付きUPDATE1文で実装されており、
// 読み取りと書き込みの間に他のリクエストが割り込む余地がない
type DepartureRepository struct{ db *sqlx.DB }

func NewDepartureRepository(db *sqlx.DB) *DepartureRepository {
	return &DepartureRepository{db: db}
}

func (r *DepartureRepository) Create(ctx context.Context, d *departure.Departure) error {
	query := `
		INSERT INTO group_tour_departures
			(legacy_id, tour_code, departs_on, max_capacity, booked_count, group_status, price_per_seat, discount_percent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		d.LegacyID, d.TourCode, d.DepartsOn, d.MaxCapacity, d.BookedCount,
		string(d.GroupStatus), d.PricePerSeat, d.DiscountPercent, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("出発日程の作成に失敗しました: %w", err)
	}
	return nil
}

func (r *DepartureRepository) GetByID(ctx context.Context, id string) (*departure.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM group_tour_departures WHERE id = $1`
	var row departureRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, departure.ErrDepartureNotFound
		}
		return nil, fmt.Errorf("出発日程の取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

func (r *DepartureRepository) GetByLegacyID(ctx context.Context, legacyID int64) (*departure.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM group_tour_departures WHERE legacy_id = $1`
	var row departureRow
	if err := r.db.GetContext(ctx, &row, query, legacyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, departure.ErrDepartureNotFound
		}
		return nil, fmt.Errorf("出発日程の取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

func (r *DepartureRepository) List(ctx context.Context, limit, offset int) ([]*departure.Departure, error) {
	query := `
		SELECT ` + departureColumns + `
		FROM group_tour_departures
		ORDER BY departs_on ASC
		LIMIT $1 OFFSET $2
	`
	var rows []departureRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("出発日程一覧の取得に失敗しました: %w", err)
	}
	departures := make([]*departure.Departure, len(rows))
	for i, row := range rows {
		departures[i] = row.toEntity()
	}
	return departures, nil
}

// Update は運用者による編集を反映する
// booked_count には触れず、group_status は現在の予約数に対してSQL内で再導出する
// max_capacity を現在の予約数未満に下げる編集はWHERE句で弾かれる
func (r *DepartureRepository) Update(ctx context.Context, d *departure.Departure) error {
	query := `
		UPDATE group_tour_departures
		SET tour_code = $1,
		    departs_on = $2,
		    max_capacity = $3,
		    group_status = CASE
		      WHEN $4 = 'closed' THEN 'closed'
		      WHEN booked_count >= $3 THEN 'full'
		      ELSE 'open'
		    END,
		    price_per_seat = $5,
		    discount_percent = $6,
		    updated_at = NOW()
		WHERE id = $7
		  AND booked_count <= $3
		RETURNING ` + departureColumns

	var row departureRow
	err := r.db.GetContext(ctx, &row, query,
		d.TourCode, d.DepartsOn, d.MaxCapacity, string(d.GroupStatus),
		d.PricePerSeat, d.DiscountPercent, d.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.classifyUpdateFailure(ctx, d.ID)
		}
		return fmt.Errorf("出発日程の更新に失敗しました: %w", err)
	}
	*d = *row.toEntity()
	return nil
}

// classifyUpdateFailure は更新が0行だった理由を補足する
func (r *DepartureRepository) classifyUpdateFailure(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_tour_departures WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("出発日程の更新に失敗しました: %w", err)
	}
	if !exists {
		return departure.ErrDepartureNotFound
	}
	return departure.ErrBookedExceedsCapacity
}

const reserveQuery = `
	UPDATE group_tour_departures
	SET booked_count = booked_count + $1,
	    group_status = CASE
	      WHEN booked_count + $1 >= max_capacity THEN 'full'
	      ELSE group_status
	    END,
	    updated_at = NOW()
	WHERE id = $2
	  AND group_status = 'open'
	  AND booked_count + $1 <= max_capacity
	RETURNING ` + departureColumns

// Reserve は pax 席をアトミックに確保する
// 事前条件（open かつ残席 >= pax）はUPDATEのWHERE句で書き込み時点に再検査される
func (r *DepartureRepository) Reserve(ctx context.Context, id string, pax int) (*departure.Departure, error) {
	return r.reserve(ctx, r.db, id, pax)
}

// ReserveTx はトランザクション内で pax 席をアトミックに確保する
func (r *DepartureRepository) ReserveTx(ctx context.Context, tx transaction.Tx, id string, pax int) (*departure.Departure, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("サポートされないトランザクション型です")
	}
	return r.reserve(ctx, sqlxTx, id, pax)
}

func (r *DepartureRepository) reserve(ctx context.Context, q sqlx.QueryerContext, id string, pax int) (*departure.Departure, error) {
	var row departureRow
	if err := sqlx.GetContext(ctx, q, &row, reserveQuery, pax, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 0行更新は「満席」「closed」「存在しない」のいずれか
			// 区別のための読み取りは報告用であり、正当性には関与しない
			return nil, r.classifyReserveFailure(ctx, id)
		}
		return nil, fmt.Errorf("座席確保に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

func (r *DepartureRepository) classifyReserveFailure(ctx context.Context, id string) error {
	var status string
	err := r.db.GetContext(ctx, &status, `SELECT group_status FROM group_tour_departures WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return departure.ErrDepartureNotFound
		}
		// 読み取りに失敗しても結論は変わらない
		return departure.ErrCapacityUnavailable
	}
	if departure.Status(status) == departure.StatusClosed {
		return fmt.Errorf("%w: %v", departure.ErrCapacityUnavailable, departure.ErrDepartureClosed)
	}
	return departure.ErrCapacityUnavailable
}

// Release は pax 席をアトミックに解放する
// booked_count はGREATESTで0に切り下げられ、closed のステータスは保持される
func (r *DepartureRepository) Release(ctx context.Context, id string, pax int) (*departure.Departure, error) {
	query := `
		UPDATE group_tour_departures
		SET booked_count = GREATEST(booked_count - $1, 0),
		    group_status = CASE
		      WHEN group_status = 'closed' THEN 'closed'
		      WHEN booked_count - $1 < max_capacity THEN 'open'
		      ELSE group_status
		    END,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING ` + departureColumns

	var row departureRow
	if err := r.db.GetContext(ctx, &row, query, pax, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", departure.ErrReleaseFailed, departure.ErrDepartureNotFound)
		}
		return nil, fmt.Errorf("%w: %v", departure.ErrReleaseFailed, err)
	}
	return row.toEntity(), nil
}

// ListDrifted は group_status が導出規則とずれている行を返す
// closed は運用者の意思であり、ドリフトとして扱わない
func (r *DepartureRepository) ListDrifted(ctx context.Context, limit int) ([]*departure.Departure, error) {
	query := `
		SELECT ` + departureColumns + `
		FROM group_tour_departures
		WHERE group_status != 'closed'
		  AND group_status != CASE WHEN booked_count >= max_capacity THEN 'full' ELSE 'open' END
		LIMIT $1
	`
	var rows []departureRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("ドリフト行の取得に失敗しました: %w", err)
	}
	departures := make([]*departure.Departure, len(rows))
	for i, row := range rows {
		departures[i] = row.toEntity()
	}
	return departures, nil
}

// FixStatus は観測した値が変わっていない場合のみステータスを修正する
func (r *DepartureRepository) FixStatus(ctx context.Context, id string, observed departure.Status, observedBooked int, to departure.Status) (bool, error) {
	query := `
		UPDATE group_tour_departures
		SET group_status = $1, updated_at = NOW()
		WHERE id = $2 AND group_status = $3 AND booked_count = $4
	`
	result, err := r.db.ExecContext(ctx, query, string(to), id, string(observed), observedBooked)
	if err != nil {
		return false, fmt.Errorf("ステータス修正に失敗しました: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("修正結果の確認に失敗しました: %w", err)
	}
	return rows > 0, nil
}

var _ departure.Repository = (*DepartureRepository)(nil)
