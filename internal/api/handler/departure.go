package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/ZRIAdventures/go-tour-capacity/internal/application"
	"github.com/ZRIAdventures/go-tour-capacity/internal/domain/departure"
)

type DepartureHandler struct {
	service DepartureServiceInterface
}

func NewDepartureHandler(s DepartureServiceInterface) *DepartureHandler {
	return &DepartureHandler{service: s}
}

type CreateDepartureRequest struct {
	TourCode        string `json:"tour_code" validate:"required" example:"KYOTO-3D"`
	DepartsOn       string `json:"departs_on" validate:"required" example:"2026-04-01"`
	MaxCapacity     int    `json:"max_capacity" validate:"required,min=1" example:"16"`
	PricePerSeat    string `json:"price_per_seat" validate:"required" example:"25000"`
	DiscountPercent string `json:"discount_percent" example:"10"`
	GroupStatus     string `json:"group_status" validate:"omitempty,oneof=open full closed" example:"open"`
	LegacyID        *int64 `json:"legacy_id,omitempty" example:"42"`
}

type UpdateDepartureRequest struct {
	TourCode        *string `json:"tour_code"`
	DepartsOn       *string `json:"departs_on"`
	MaxCapacity     *int    `json:"max_capacity" validate:"omitempty,min=1"`
	GroupStatus     *string `json:"group_status" validate:"omitempty,oneof=open full closed"`
	PricePerSeat    *string `json:"price_per_seat"`
	DiscountPercent *string `json:"discount_percent"`
}

type PaxRequest struct {
	Pax int `json:"pax" validate:"required,min=1" example:"2"`
}

type DepartureResponse struct {
	ID              string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	LegacyID        *int64 `json:"legacy_id,omitempty" example:"42"`
	TourCode        string `json:"tour_code" example:"KYOTO-3D"`
	DepartsOn       string `json:"departs_on" example:"2026-04-01"`
	MaxCapacity     int    `json:"max_capacity" example:"16"`
	BookedCount     int    `json:"booked_count" example:"3"`
	GroupStatus     string `json:"group_status" example:"open"`
	Remaining       int    `json:"remaining" example:"13"`
	PricePerSeat    string `json:"price_per_seat" example:"25000"`
	DiscountPercent string `json:"discount_percent" example:"10"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type AvailabilityResponse struct {
	Remaining int `json:"remaining" example:"13"`
}

func toDepartureResponse(d *departure.Departure) *DepartureResponse {
	return &DepartureResponse{
		ID:              d.ID,
		LegacyID:        d.LegacyID,
		TourCode:        d.TourCode,
		DepartsOn:       d.DepartsOn.Format("2006-01-02"),
		MaxCapacity:     d.MaxCapacity,
		BookedCount:     d.BookedCount,
		GroupStatus:     string(d.GroupStatus),
		Remaining:       d.Remaining(),
		PricePerSeat:    d.PricePerSeat.String(),
		DiscountPercent: d.DiscountPercent.String(),
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       d.UpdatedAt.Format(time.RFC3339),
	}
}

// pathRef はパスパラメータを参照へ正規化する
// UUID文字列と旧CMSの数値IDの両方を受け付ける
func pathRef(c echo.Context) (departure.Ref, error) {
	ref, err := departure.ParseRef(c.Param("id"))
	if err != nil {
		return departure.Ref{}, echo.NewHTTPError(http.StatusBadRequest, "出発日程の参照が不正です")
	}
	return ref, nil
}

// departureError はドメインエラーをHTTPステータスへ対応付ける
func departureError(err error) error {
	switch {
	case errors.Is(err, departure.ErrDepartureNotFound):
		return echo.NewHTTPError(http.StatusNotFound, departure.ErrDepartureNotFound.Error())
	case errors.Is(err, departure.ErrCapacityUnavailable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, departure.ErrReleaseFailed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, departure.ErrInvalidRef),
		errors.Is(err, departure.ErrInvalidPax),
		errors.Is(err, departure.ErrTourCodeRequired),
		errors.Is(err, departure.ErrInvalidMaxCapacity),
		errors.Is(err, departure.ErrBookedExceedsCapacity),
		errors.Is(err, departure.ErrInvalidStatus),
		errors.Is(err, departure.ErrInvalidPrice),
		errors.Is(err, departure.ErrInvalidDiscount):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Create godoc
// @Summary 出発日程を作成
// @Description 新しいグループツアー出発日程を作成します
// @Tags departures
// @Accept json
// @Produce json
// @Param request body CreateDepartureRequest true "出発日程情報"
// @Success 201 {object} DepartureResponse
// @Failure 400 {object} map[string]string
// @Router /departures [post]
func (h *DepartureHandler) Create(c echo.Context) error {
	var req CreateDepartureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	departsOn, err := time.Parse("2006-01-02", req.DepartsOn)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "出発日の形式が不正です")
	}
	price, err := decimal.NewFromString(req.PricePerSeat)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "座席単価の形式が不正です")
	}
	discount := decimal.Zero
	if req.DiscountPercent != "" {
		discount, err = decimal.NewFromString(req.DiscountPercent)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "割引率の形式が不正です")
		}
	}

	d, err := h.service.CreateDeparture(c.Request().Context(), application.CreateDepartureInput{
		TourCode:        req.TourCode,
		DepartsOn:       departsOn,
		MaxCapacity:     req.MaxCapacity,
		PricePerSeat:    price,
		DiscountPercent: discount,
		GroupStatus:     departure.Status(req.GroupStatus),
		LegacyID:        req.LegacyID,
	})
	if err != nil {
		return departureError(err)
	}
	return c.JSON(http.StatusCreated, toDepartureResponse(d))
}

// GetByID godoc
// @Summary 出発日程を取得
// @Description 指定参照の出発日程を取得します（UUID・旧数値IDの両方を受け付けます）
// @Tags departures
// @Produce json
// @Param id path string true "出発日程の参照"
// @Success 200 {object} DepartureResponse
// @Failure 404 {object} map[string]string
// @Router /departures/{id} [get]
func (h *DepartureHandler) GetByID(c echo.Context) error {
	ref, err := pathRef(c)
	if err != nil {
		return err
	}
	d, err := h.service.GetDeparture(c.Request().Context(), ref)
	if err != nil {
		return departureError(err)
	}
	return c.JSON(http.StatusOK, toDepartureResponse(d))
}

// List godoc
// @Summary 出発日程一覧を取得
// @Tags departures
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} DepartureResponse
// @Router /departures [get]
func (h *DepartureHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	departures, err := h.service.ListDepartures(c.Request().Context(), limit, offset)
	if err != nil {
		return departureError(err)
	}
	resp := make([]*DepartureResponse, len(departures))
	for i, d := range departures {
		resp[i] = toDepartureResponse(d)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary 出発日程を更新
// @Description 運用者による編集を反映します。予約数はこの経路では変更できません
// @Tags departures
// @Accept json
// @Produce json
// @Param id path string true "出発日程の参照"
// @Param request body UpdateDepartureRequest true "更新内容"
// @Success 200 {object} DepartureResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /departures/{id} [put]
func (h *DepartureHandler) Update(c echo.Context) error {
	ref, err := pathRef(c)
	if err != nil {
		return err
	}
	var req UpdateDepartureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	input := application.UpdateDepartureInput{
		Ref:         ref,
		TourCode:    req.TourCode,
		MaxCapacity: req.MaxCapacity,
	}
	if req.DepartsOn != nil {
		departsOn, err := time.Parse("2006-01-02", *req.DepartsOn)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "出発日の形式が不正です")
		}
		input.DepartsOn = &departsOn
	}
	if req.GroupStatus != nil {
		status := departure.Status(*req.GroupStatus)
		input.GroupStatus = &status
	}
	if req.PricePerSeat != nil {
		price, err := decimal.NewFromString(*req.PricePerSeat)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "座席単価の形式が不正です")
		}
		input.PricePerSeat = &price
	}
	if req.DiscountPercent != nil {
		discount, err := decimal.NewFromString(*req.DiscountPercent)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "割引率の形式が不正です")
		}
		input.DiscountPercent = &discount
	}

	d, err := h.service.UpdateDeparture(c.Request().Context(), input)
	if err != nil {
		return departureError(err)
	}
	return c.JSON(http.StatusOK, toDepartureResponse(d))
}

// Reserve godoc
// @Summary 座席を確保
// @Description 指定人数分の座席をアトミックに確保します
// @Tags departures
// @Accept json
// @Produce json
// @Param id path string true "出発日程の参照"
// @Param request body PaxRequest true "人数"
// @Success 200 {object} DepartureResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "満席または受付終了"
// @Router /departures/{id}/reserve [post]
func (h *DepartureHandler) Reserve(c echo.Context) error {
	ref, err := pathRef(c)
	if err != nil {
		return err
	}
	var req PaxRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	d, err := h.service.Reserve(c.Request().Context(), ref, req.Pax)
	if err != nil {
		return departureError(err)
	}
	return c.JSON(http.StatusOK, toDepartureResponse(d))
}

// Release godoc
// @Summary 座席を解放
// @Description 指定人数分の座席をアトミックに解放します（0未満にはなりません）
// @Tags departures
// @Accept json
// @Produce json
// @Param id path string true "出発日程の参照"
// @Param request body PaxRequest true "人数"
// @Success 200 {object} DepartureResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "解放失敗"
// @Router /departures/{id}/release [post]
func (h *DepartureHandler) Release(c echo.Context) error {
	ref, err := pathRef(c)
	if err != nil {
		return err
	}
	var req PaxRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	d, err := h.service.Release(c.Request().Context(), ref, req.Pax)
	if err != nil {
		return departureError(err)
	}
	return c.JSON(http.StatusOK, toDepartureResponse(d))
}

// Availability godoc
// @Summary 残席数を取得
// @Description 表示用の残席数を返します（予約可否の判定には使われません）
// @Tags departures
// @Produce json
// @Param id path string true "出発日程の参照"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} map[string]string
// @Router /departures/{id}/availability [get]
func (h *DepartureHandler) Availability(c echo.Context) error {
	ref, err := pathRef(c)
	if err != nil {
		return err
	}
	remaining, err := h.service.GetAvailability(c.Request().Context(), ref)
	if err != nil {
		return departureError(err)
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{Remaining: remaining})
}
