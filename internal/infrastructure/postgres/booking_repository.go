package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/booking"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/transaction"
)

type bookingRow struct {
	ID            string          `db:"id"`
	DepartureID   string          `db:"departure_id"`
	TourType      string          `db:"tour_type"`
	TotalPax      int             `db:"total_pax"`
	CustomerEmail string          `db:"customer_email"`
	PaymentStatus string          `db:"payment_status"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, DepartureID: r.DepartureID,
		TourType: booking.TourType(r.TourType), TotalPax: r.TotalPax,
		CustomerEmail: r.CustomerEmail, PaymentStatus: booking.PaymentStatus(r.PaymentStatus),
		TotalAmount: r.TotalAmount, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const bookingColumns = `id, departure_id, tour_type, total_pax, customer_email, payment_status, total_amount, created_at, updated_at`

// BookingRepository は予約リポジトリのPostgreSQL実装
type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create は予約行を挿入する
// 座席確保と同一トランザクションで呼ばれることを前提とする
func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("サポートされないトランザクション型です")
	}
	query := `
		INSERT INTO tour_bookings
			(departure_id, tour_type, total_pax, customer_email, payment_status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := sqlxTx.QueryRowContext(ctx, query,
		b.DepartureID, string(b.TourType), b.TotalPax, b.CustomerEmail,
		string(b.PaymentStatus), b.TotalAmount, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("予約作成に失敗しました: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM tour_bookings WHERE id = $1`
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) ListByDeparture(ctx context.Context, departureID string, limit, offset int) ([]*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM tour_bookings
		WHERE departure_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, departureID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}
	bookings := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.toEntity()
	}
	return bookings, nil
}

// Delete は予約を削除し、削除した予約を返す
// 返り値は削除後の Release 呼び出しに使用される
func (r *BookingRepository) Delete(ctx context.Context, id string) (*booking.Booking, error) {
	query := `DELETE FROM tour_bookings WHERE id = $1 RETURNING ` + bookingColumns
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約削除に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// UpdatePaymentStatus は支払い状態を更新し、更新後の予約と変更前の状態を返す
// 変更前の値は同一UPDATE文のサブクエリで取得するため、別読み取りとの競合がない
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status booking.PaymentStatus) (*booking.Booking, booking.PaymentStatus, error) {
	query := `
		UPDATE tour_bookings t
		SET payment_status = $1, updated_at = NOW()
		FROM (SELECT id, payment_status FROM tour_bookings WHERE id = $2 FOR UPDATE) prev
		WHERE t.id = prev.id
		RETURNING t.id, t.departure_id, t.tour_type, t.total_pax, t.customer_email, t.payment_status, t.total_amount, t.created_at, t.updated_at, prev.payment_status AS previous_status
	`
	var row struct {
		bookingRow
		PreviousStatus string `db:"previous_status"`
	}
	if err := r.db.GetContext(ctx, &row, query, string(status), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", booking.ErrBookingNotFound
		}
		return nil, "", fmt.Errorf("支払い状態の更新に失敗しました: %w", err)
	}
	return row.toEntity(), booking.PaymentStatus(row.PreviousStatus), nil
}

var _ booking.Repository = (*BookingRepository)(nil)
