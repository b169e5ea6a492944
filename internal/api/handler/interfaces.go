package handler

import (
	"context"

	"github.com/ZRIAdventures/go-tour-capacity/internal/application"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/booking"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
)

// DepartureServiceInterface は出発日程サービスのインターフェース
type DepartureServiceInterface interface {
	CreateDeparture(ctx context.Context, input application.CreateDepartureInput) (*departure.Departure, error)
	GetDeparture(ctx context.Context, ref departure.Ref) (*departure.Departure, error)
	ListDepartures(ctx context.Context, limit, offset int) ([]*departure.Departure, error)
	UpdateDeparture(ctx context.Context, input application.UpdateDepartureInput) (*departure.Departure, error)
	Reserve(ctx context.Context, ref departure.Ref, pax int) (*departure.Departure, error)
	Release(ctx context.Context, ref departure.Ref, pax int) (*departure.Departure, error)
	GetAvailability(ctx context.Context, ref departure.Ref) (int, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	ListBookingsByDeparture(ctx context.Context, ref departure.Ref, limit, offset int) ([]*booking.Booking, error)
	DeleteBooking(ctx context.Context, id string) (*booking.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id string, status booking.PaymentStatus) (*booking.Booking, error)
}
