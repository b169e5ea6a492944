package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ZRIAdventures/go-tour-capacity/internal/application"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/booking"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	// 出発日程の参照（数値ID・文字列ID・オブジェクトのいずれも可）
	Departure     departure.Ref `json:"departure" validate:"required"`
	TourType      string        `json:"tour_type" validate:"required,oneof=group private" example:"group"`
	TotalPax      int           `json:"total_pax" validate:"required,min=1" example:"2"`
	CustomerEmail string        `json:"customer_email" validate:"required,email" example:"tanaka@example.com"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending paid refunded" example:"paid"`
}

type BookingResponse struct {
	ID            string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	DepartureID   string `json:"departure_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TourType      string `json:"tour_type" example:"group"`
	TotalPax      int    `json:"total_pax" example:"2"`
	CustomerEmail string `json:"customer_email" example:"tanaka@example.com"`
	PaymentStatus string `json:"payment_status" example:"pending"`
	TotalAmount   string `json:"total_amount" example:"50000"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) *BookingResponse {
	return &BookingResponse{
		ID:            b.ID,
		DepartureID:   b.DepartureID,
		TourType:      string(b.TourType),
		TotalPax:      b.TotalPax,
		CustomerEmail: b.CustomerEmail,
		PaymentStatus: string(b.PaymentStatus),
		TotalAmount:   b.TotalAmount.String(),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

// bookingError はドメインエラーをHTTPステータスへ対応付ける
func bookingError(err error) error {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, booking.ErrBookingNotFound.Error())
	case errors.Is(err, booking.ErrInvalidTotalPax),
		errors.Is(err, booking.ErrInvalidTourType),
		errors.Is(err, booking.ErrCustomerEmailRequired),
		errors.Is(err, booking.ErrInvalidPaymentStatus),
		errors.Is(err, booking.ErrDepartureIDRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return departureError(err)
	}
}

// Create godoc
// @Summary 予約を作成
// @Description グループツアーの場合、座席確保と予約挿入が同一トランザクションで行われます
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "満席または受付終了"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Departure.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "出発日程の参照は必須です")
	}

	b, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		DepartureRef:  req.Departure,
		TourType:      booking.TourType(req.TourType),
		TotalPax:      req.TotalPax,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// ListByDeparture godoc
// @Summary 出発日程の予約一覧を取得
// @Tags bookings
// @Produce json
// @Param id path string true "出発日程の参照"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /departures/{id}/bookings [get]
func (h *BookingHandler) ListByDeparture(c echo.Context) error {
	ref, err := pathRef(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.ListBookingsByDeparture(c.Request().Context(), ref, limit, offset)
	if err != nil {
		return bookingError(err)
	}
	resp := make([]*BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary 予約を削除
// @Description グループツアーの場合、削除後に座席が解放されます
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Delete(c echo.Context) error {
	b, err := h.service.DeleteBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// UpdatePaymentStatus godoc
// @Summary 支払い状態を更新
// @Description 状態が変化した場合は外部Webhookへ通知されます
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body UpdatePaymentStatusRequest true "支払い状態"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id}/payment-status [put]
func (h *BookingHandler) UpdatePaymentStatus(c echo.Context) error {
	var req UpdatePaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.UpdatePaymentStatus(c.Request().Context(), c.Param("id"), booking.PaymentStatus(req.PaymentStatus))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
