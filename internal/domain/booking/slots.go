package booking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

const (
	SlotMinutes           = 30
	DefaultServiceMinutes = 30

	minutesPerDay = 24 * 60
	defaultOpen   = 9 * 60
	defaultClose  = 18 * 60
)

// ParseHM converts "HH:MM" into minutes since midnight.
func ParseHM(hm string) (int, error) {
	parts := strings.Split(strings.TrimSpace(hm), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q", hm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hm)
	}
	return h*60 + m, nil
}

func FormatHM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// RoundUpToSlot rounds a duration in minutes up to a whole number of slots.
// Non-positive durations count as one slot.
func RoundUpToSlot(minutes int) int {
	if minutes <= 0 {
		return SlotMinutes
	}
	return ((minutes + SlotMinutes - 1) / SlotMinutes) * SlotMinutes
}

// Grid is the business-hours slot grid: every SlotMinutes step in
// [Open, Close), in minutes since midnight.
type Grid struct {
	Open  int
	Close int
}

func DefaultGrid() Grid {
	return Grid{Open: defaultOpen, Close: defaultClose}
}

func NewGrid(openHM, closeHM string) (Grid, error) {
	o, err := ParseHM(openHM)
	if err != nil {
		return Grid{}, err
	}
	c, err := ParseHM(closeHM)
	if err != nil {
		return Grid{}, err
	}
	if c <= o || c > minutesPerDay {
		return Grid{}, fmt.Errorf("business close %s must be after open %s", closeHM, openHM)
	}
	return Grid{Open: o, Close: c}, nil
}

func (g Grid) Slots() []int {
	out := make([]int, 0, (g.Close-g.Open)/SlotMinutes+1)
	for s := g.Open; s < g.Close; s += SlotMinutes {
		out = append(out, s)
	}
	return out
}

// Contains reports whether m is the start of a slot on the grid.
func (g Grid) Contains(m int) bool {
	return m >= g.Open && m < g.Close && (m-g.Open)%SlotMinutes == 0
}

// Overlapping returns the grid-aligned slot starts whose [s, s+SlotMinutes)
// intersects [start, end). Slots outside business hours are included, so
// callers can block them without caring where the grid ends.
func (g Grid) Overlapping(start, end int) []int {
	if end <= start {
		return nil
	}
	first := g.Open + floorDiv(start-g.Open, SlotMinutes)*SlotMinutes
	var out []int
	for s := first; s < end; s += SlotMinutes {
		out = append(out, s)
	}
	return out
}

// Fits reports whether a run of duration minutes starting at start stays on
// the grid and avoids every blocked slot.
func (g Grid) Fits(start, duration int, blocked Occupancy) bool {
	need := RoundUpToSlot(duration)
	for off := 0; off < need; off += SlotMinutes {
		s := start + off
		if !g.Contains(s) || blocked[s] {
			return false
		}
	}
	return true
}

// Available returns, in ascending order, every grid slot where a service of
// duration minutes fits.
func (g Grid) Available(duration int, blocked Occupancy) []string {
	out := []string{}
	for _, s := range g.Slots() {
		if g.Fits(s, duration, blocked) {
			out = append(out, FormatHM(s))
		}
	}
	return out
}

// Occupancy is the set of blocked slot starts.
type Occupancy map[int]bool

func (o Occupancy) add(slots []int) {
	for _, s := range slots {
		o[s] = true
	}
}

// BlockBooking marks the slots a booking occupies. Cancelled bookings block
// nothing; a booking whose service is unknown counts as DefaultServiceMinutes.
func (g Grid) BlockBooking(o Occupancy, b models.Booking) error {
	if !Status(b.Status).BlocksSlots() {
		return nil
	}
	start, err := ParseHM(b.Time)
	if err != nil {
		return fmt.Errorf("booking %d: %w", b.ID, err)
	}
	o.add(g.Overlapping(start, start+ServiceMinutes(b.Service)))
	return nil
}

func (g Grid) BlockBreak(o Occupancy, br models.StaffBreak) error {
	start, err := ParseHM(br.StartTime)
	if err != nil {
		return fmt.Errorf("break %d: %w", br.ID, err)
	}
	end, err := ParseHM(br.EndTime)
	if err != nil {
		return fmt.Errorf("break %d: %w", br.ID, err)
	}
	o.add(g.Overlapping(start, end))
	return nil
}

// ServiceMinutes is the service's duration, or DefaultServiceMinutes when the
// service was not found (zero value) or has no duration.
func ServiceMinutes(s models.Service) int {
	if s.ID == 0 || s.DurationMin <= 0 {
		return DefaultServiceMinutes
	}
	return s.DurationMin
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
