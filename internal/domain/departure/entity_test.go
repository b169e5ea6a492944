package departure

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeparture(t *testing.T) {
	departsOn := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	price := decimal.NewFromInt(45000)

	d := NewDeparture("ELLA-3D", departsOn, 12, price)

	assert.Equal(t, "ELLA-3D", d.TourCode)
	assert.Equal(t, departsOn, d.DepartsOn)
	assert.Equal(t, 12, d.MaxCapacity)
	assert.Equal(t, 0, d.BookedCount)
	assert.Equal(t, StatusOpen, d.GroupStatus)
	assert.True(t, price.Equal(d.PricePerSeat))
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name        string
		bookedCount int
		maxCapacity int
		current     Status
		expected    Status
	}{
		{"空きあり", 3, 10, StatusOpen, StatusOpen},
		{"定員到達", 10, 10, StatusOpen, StatusFull},
		{"定員超過でも full", 11, 10, StatusOpen, StatusFull},
		{"full から空きが出れば open", 9, 10, StatusFull, StatusOpen},
		{"closed は予約数に関わらず維持", 0, 10, StatusClosed, StatusClosed},
		{"closed は満席でも維持", 10, 10, StatusClosed, StatusClosed},
		{"予約0で open", 0, 10, StatusOpen, StatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveStatus(tt.bookedCount, tt.maxCapacity, tt.current))
		})
	}
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusOpen.IsValid())
	assert.True(t, StatusFull.IsValid())
	assert.True(t, StatusClosed.IsValid())
	assert.False(t, Status("cancelled").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestDeparture_Remaining(t *testing.T) {
	tests := []struct {
		name        string
		bookedCount int
		maxCapacity int
		expected    int
	}{
		{"残席あり", 8, 10, 2},
		{"満席", 10, 10, 0},
		{"超過時も0に丸める", 12, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Departure{BookedCount: tt.bookedCount, MaxCapacity: tt.maxCapacity}
			assert.Equal(t, tt.expected, d.Remaining())
		})
	}
}

func TestDeparture_IsOpen(t *testing.T) {
	assert.True(t, (&Departure{GroupStatus: StatusOpen}).IsOpen())
	assert.False(t, (&Departure{GroupStatus: StatusFull}).IsOpen())
	assert.False(t, (&Departure{GroupStatus: StatusClosed}).IsOpen())
}

func TestDeparture_Validate(t *testing.T) {
	valid := func() *Departure {
		return &Departure{
			TourCode:     "SIGIRIYA-1D",
			MaxCapacity:  10,
			BookedCount:  0,
			GroupStatus:  StatusOpen,
			PricePerSeat: decimal.NewFromInt(12000),
		}
	}

	t.Run("有効な出発日程", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("ツアーコードが空", func(t *testing.T) {
		d := valid()
		d.TourCode = ""
		assert.ErrorIs(t, d.Validate(), ErrTourCodeRequired)
	})

	t.Run("最大定員が0", func(t *testing.T) {
		d := valid()
		d.MaxCapacity = 0
		assert.ErrorIs(t, d.Validate(), ErrInvalidMaxCapacity)
	})

	t.Run("予約数が負", func(t *testing.T) {
		d := valid()
		d.BookedCount = -1
		assert.ErrorIs(t, d.Validate(), ErrBookedExceedsCapacity)
	})

	t.Run("予約数が最大定員を超過", func(t *testing.T) {
		d := valid()
		d.BookedCount = 11
		assert.ErrorIs(t, d.Validate(), ErrBookedExceedsCapacity)
	})

	t.Run("予約数が最大定員と同じは有効", func(t *testing.T) {
		d := valid()
		d.BookedCount = 10
		d.GroupStatus = StatusFull
		require.NoError(t, d.Validate())
	})

	t.Run("不明なステータス", func(t *testing.T) {
		d := valid()
		d.GroupStatus = Status("pending")
		assert.ErrorIs(t, d.Validate(), ErrInvalidStatus)
	})

	t.Run("単価が負", func(t *testing.T) {
		d := valid()
		d.PricePerSeat = decimal.NewFromInt(-1)
		assert.ErrorIs(t, d.Validate(), ErrInvalidPrice)
	})

	t.Run("割引率が100超", func(t *testing.T) {
		d := valid()
		d.DiscountPercent = decimal.NewFromInt(101)
		assert.ErrorIs(t, d.Validate(), ErrInvalidDiscount)
	})
}
