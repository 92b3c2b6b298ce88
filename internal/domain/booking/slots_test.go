package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

func fullDay() []string {
	return []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
		"15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
	}
}

func TestParseHM(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "09:00", want: 540},
		{in: "9:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "00:00", want: 0},
		{in: "24:00", wantErr: true},
		{in: "10:60", wantErr: true},
		{in: "10:5", wantErr: true},
		{in: "1000", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseHM(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatHM(t *testing.T) {
	assert.Equal(t, "09:00", FormatHM(540))
	assert.Equal(t, "17:30", FormatHM(1050))
	assert.Equal(t, "00:05", FormatHM(5))
}

func TestRoundUpToSlot(t *testing.T) {
	assert.Equal(t, 30, RoundUpToSlot(0))
	assert.Equal(t, 30, RoundUpToSlot(1))
	assert.Equal(t, 30, RoundUpToSlot(30))
	assert.Equal(t, 60, RoundUpToSlot(45))
	assert.Equal(t, 90, RoundUpToSlot(61))
}

func TestNewGrid(t *testing.T) {
	g, err := NewGrid("09:00", "18:00")
	require.NoError(t, err)
	assert.Equal(t, DefaultGrid(), g)

	_, err = NewGrid("18:00", "09:00")
	assert.Error(t, err)

	_, err = NewGrid("nine", "18:00")
	assert.Error(t, err)
}

func TestGrid_EmptyDayReturnsFullGrid(t *testing.T) {
	g := DefaultGrid()

	assert.Equal(t, fullDay(), g.Available(30, Occupancy{}))
}

func TestGrid_Overlapping(t *testing.T) {
	g := DefaultGrid()

	assert.Equal(t, []int{600}, g.Overlapping(600, 630))
	assert.Equal(t, []int{600, 630}, g.Overlapping(600, 645))
	// 10:15-10:45 straddles two grid slots.
	assert.Equal(t, []int{600, 630}, g.Overlapping(615, 645))
	assert.Nil(t, g.Overlapping(600, 600))
	// Before opening: still aligned to the grid origin.
	assert.Equal(t, []int{480, 510}, g.Overlapping(490, 540))
}

func TestGrid_FitsRejectsRunPastClosing(t *testing.T) {
	g := DefaultGrid()
	blocked := Occupancy{}

	assert.True(t, g.Fits(17*60, 60, blocked))
	assert.False(t, g.Fits(17*60+30, 60, blocked), "17:30 + 60m would end at 18:30")

	slots := g.Available(60, blocked)
	assert.Equal(t, "17:00", slots[len(slots)-1])
	assert.NotContains(t, slots, "17:30")
}

func TestGrid_BookingAndBreakScenario(t *testing.T) {
	g := DefaultGrid()
	blocked := Occupancy{}

	err := g.BlockBooking(blocked, models.Booking{
		ID:      1,
		Time:    "10:00",
		Status:  string(StatusConfirmed),
		Service: models.Service{ID: 3, DurationMin: 30},
	})
	require.NoError(t, err)
	require.NoError(t, g.BlockBreak(blocked, models.StaffBreak{StartTime: "13:00", EndTime: "13:30"}))

	slots := g.Available(30, blocked)

	assert.NotContains(t, slots, "10:00")
	assert.NotContains(t, slots, "13:00")
	assert.Contains(t, slots, "09:30")
	assert.Contains(t, slots, "10:30")
	assert.Contains(t, slots, "13:30")
	assert.Len(t, slots, len(fullDay())-2)
}

func TestGrid_LongServiceAvoidsOverlap(t *testing.T) {
	g := DefaultGrid()
	blocked := Occupancy{}
	require.NoError(t, g.BlockBooking(blocked, models.Booking{
		Time:    "11:00",
		Status:  string(StatusConfirmed),
		Service: models.Service{ID: 1, DurationMin: 60},
	}))

	slots := g.Available(60, blocked)

	// 10:30 would run into 11:00; 11:00 and 11:30 are taken.
	assert.NotContains(t, slots, "10:30")
	assert.NotContains(t, slots, "11:00")
	assert.NotContains(t, slots, "11:30")
	assert.Contains(t, slots, "10:00")
	assert.Contains(t, slots, "12:00")
}

func TestGrid_UnalignedDurationsRoundUp(t *testing.T) {
	g := DefaultGrid()
	blocked := Occupancy{}
	require.NoError(t, g.BlockBooking(blocked, models.Booking{
		Time:    "09:00",
		Status:  string(StatusConfirmed),
		Service: models.Service{ID: 1, DurationMin: 45},
	}))

	slots := g.Available(30, blocked)

	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "09:30")
	assert.Equal(t, "10:00", slots[0])
}

func TestGrid_CancelledBookingBlocksNothing(t *testing.T) {
	g := DefaultGrid()
	blocked := Occupancy{}
	require.NoError(t, g.BlockBooking(blocked, models.Booking{
		Time:   "10:00",
		Status: string(StatusCancelled),
	}))

	assert.Empty(t, blocked)
}

func TestGrid_MissingServiceUsesDefaultDuration(t *testing.T) {
	g := DefaultGrid()
	blocked := Occupancy{}
	require.NoError(t, g.BlockBooking(blocked, models.Booking{
		Time:   "10:00",
		Status: string(StatusConfirmed),
	}))

	assert.Equal(t, Occupancy{600: true}, blocked)
}

func TestGrid_InvalidTimesAreReported(t *testing.T) {
	g := DefaultGrid()

	assert.Error(t, g.BlockBooking(Occupancy{}, models.Booking{Time: "ten", Status: "confirmed"}))
	assert.Error(t, g.BlockBreak(Occupancy{}, models.StaffBreak{StartTime: "13:00", EndTime: "x"}))
}

func TestBreakApplies(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) // Tuesday
	tuesday, friday := 2, 5

	assert.True(t, BreakApplies("2025-06-10", nil, day))
	assert.False(t, BreakApplies("2025-06-11", nil, day))
	assert.True(t, BreakApplies("", &tuesday, day))
	assert.False(t, BreakApplies("", &friday, day))
	assert.True(t, BreakApplies("", nil, day))
}

func TestStatusTransitions(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	b := &models.Booking{Status: string(InitialStatus())}
	require.NoError(t, Cancel(b, now))
	assert.Equal(t, string(StatusCancelled), b.Status)
	assert.Equal(t, &now, b.CancelledAt)
	assert.Error(t, Complete(b, now))

	b = &models.Booking{Status: string(StatusConfirmed)}
	require.NoError(t, Complete(b, now))
	assert.Equal(t, string(StatusCompleted), b.Status)
	assert.Error(t, Cancel(b, now))
}
