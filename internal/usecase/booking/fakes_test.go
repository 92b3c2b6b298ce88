package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

// fakeRepo keeps everything in memory and mimics the gorm repository's
// preload of Booking.Service.
type fakeRepo struct {
	mu sync.Mutex

	barbers  map[uint]models.Barber
	services map[uint]models.Service
	clients  []models.Client
	bookings []models.Booking
	breaks   []models.StaffBreak

	listCalls int
	listErr   error

	// beforeCheck runs inside CreateBooking before the conflict check, to
	// simulate a concurrent insert.
	beforeCheck func(r *fakeRepo)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		barbers: map[uint]models.Barber{
			1: {ID: 1, Name: "Carlos", Active: true},
			2: {ID: 2, Name: "Retired", Active: false},
		},
		services: map[uint]models.Service{
			10: {ID: 10, Name: "Haircut", DurationMin: 30, Active: true},
			11: {ID: 11, Name: "Cut + Beard", DurationMin: 60, Active: true},
			12: {ID: 12, Name: "Old", DurationMin: 30, Active: false},
		},
	}
}

func (r *fakeRepo) addBooking(b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == 0 {
		b.ID = uint(len(r.bookings) + 1)
	}
	if b.Status == "" {
		b.Status = string(domain.StatusConfirmed)
	}
	r.bookings = append(r.bookings, b)
}

func (r *fakeRepo) GetBarber(_ context.Context, id uint) (*models.Barber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.barbers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r *fakeRepo) GetService(_ context.Context, id uint) (*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *fakeRepo) GetOrCreateClient(_ context.Context, name, phone, email string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.clients {
		if r.clients[i].Phone == phone {
			return &r.clients[i], nil
		}
	}
	c := models.Client{ID: uint(len(r.clients) + 1), Name: name, Phone: phone, Email: email}
	r.clients = append(r.clients, c)
	return &c, nil
}

func (r *fakeRepo) ListBookingsByBarberAndDate(_ context.Context, barberID uint, date string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.dayLocked(barberID, date, true), nil
}

func (r *fakeRepo) dayLocked(barberID uint, date string, withCancelled bool) []models.Booking {
	var out []models.Booking
	for _, b := range r.bookings {
		if b.BarberID != barberID || b.Date != date {
			continue
		}
		if !withCancelled && b.Status == string(domain.StatusCancelled) {
			continue
		}
		b.Service = r.services[b.ServiceID]
		out = append(out, b)
	}
	return out
}

func (r *fakeRepo) ListStaffBreaksForDate(_ context.Context, barberID uint, date string) ([]models.StaffBreak, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, err
	}
	var out []models.StaffBreak
	for _, br := range r.breaks {
		if br.BarberID == barberID && domain.BreakApplies(br.Date, br.DayOfWeek, day) {
			out = append(out, br)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateBooking(_ context.Context, b *models.Booking, check domain.ConflictCheck) error {
	if r.beforeCheck != nil {
		r.beforeCheck(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if check != nil {
		if err := check(r.dayLocked(b.BarberID, b.Date, false)); err != nil {
			return err
		}
	}
	b.ID = uint(len(r.bookings) + 1)
	r.bookings = append(r.bookings, *b)
	return nil
}

func (r *fakeRepo) GetBooking(_ context.Context, id uint) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID == id {
			b.Barber = r.barbers[b.BarberID]
			b.Service = r.services[b.ServiceID]
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) UpdateBooking(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if r.bookings[i].ID == b.ID {
			r.bookings[i] = *b
			return nil
		}
	}
	return fmt.Errorf("booking %d missing", b.ID)
}

func (r *fakeRepo) ListBookings(_ context.Context, date string, barberID *uint) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if date != "" && b.Date != date {
			continue
		}
		if barberID != nil && b.BarberID != *barberID {
			continue
		}
		b.Barber = r.barbers[b.BarberID]
		b.Service = r.services[b.ServiceID]
		out = append(out, b)
	}
	return out, nil
}

var _ domain.Repository = (*fakeRepo)(nil)

// memCache is an in-process cache.Availability that records invalidations.
type memCache struct {
	mu          sync.Mutex
	entries     map[string][]string
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]string{}}
}

func (c *memCache) k(barberID uint, date string, d int) string {
	return fmt.Sprintf("%d:%s:%d", barberID, date, d)
}

func (c *memCache) Get(_ context.Context, barberID uint, date string, d int) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[c.k(barberID, date, d)]
	return v, ok
}

func (c *memCache) Set(_ context.Context, barberID uint, date string, d int, slots []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.k(barberID, date, d)] = slots
}

func (c *memCache) InvalidateBarberDate(_ context.Context, barberID uint, date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, fmt.Sprintf("%d:%s", barberID, date))
	c.entries = map[string][]string{}
}

func (c *memCache) InvalidateBarber(_ context.Context, barberID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, fmt.Sprintf("%d", barberID))
	c.entries = map[string][]string{}
}

func (c *memCache) InvalidateAll(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, "*")
	c.entries = map[string][]string{}
}
