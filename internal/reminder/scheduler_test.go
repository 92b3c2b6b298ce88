package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

// mockStore implements Store in memory.
type mockStore struct {
	mu        sync.Mutex
	templates []models.ReminderTemplate
	bookings  []models.Booking
	barbers   map[uint]models.Barber
	logs      []models.ReminderLog
	nextLogID uint

	templateCalls int
	failTemplates error
	failSentLog   error

	// honorCtx makes writes fail once ctx is done, like a real driver.
	honorCtx bool
}

func newMockStore() *mockStore {
	return &mockStore{barbers: map[uint]models.Barber{}}
}

func (m *mockStore) ListActiveTemplates(ctx context.Context) ([]models.ReminderTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templateCalls++
	if m.failTemplates != nil {
		return nil, m.failTemplates
	}
	var out []models.ReminderTemplate
	for _, t := range m.templates {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) ListPendingBookings(ctx context.Context, fromDate string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == "confirmed" && b.Date >= fromDate {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockStore) GetBarber(ctx context.Context, id uint) (*models.Barber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.barbers[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &b, nil
}

func (m *mockStore) ListLogsByBooking(ctx context.Context, bookingID uint) ([]models.ReminderLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReminderLog
	for _, l := range m.logs {
		if l.BookingID == bookingID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockStore) CreateLog(ctx context.Context, log *models.ReminderLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if log.Status == models.ReminderStatusSent && m.failSentLog != nil {
		return m.failSentLog
	}
	if log.Status == models.ReminderStatusSent {
		for _, l := range m.logs {
			if l.BookingID == log.BookingID && l.TemplateID == log.TemplateID && l.Status == models.ReminderStatusSent {
				return ErrAlreadySent
			}
		}
	}
	m.nextLogID++
	log.ID = m.nextLogID
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockStore) MarkReminderSent(ctx context.Context, bookingID uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	for i := range m.bookings {
		if m.bookings[i].ID == bookingID && m.bookings[i].ReminderSent == nil {
			ts := at
			m.bookings[i].ReminderSent = &ts
		}
	}
	return nil
}

func (m *mockStore) logsWith(status string) []models.ReminderLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReminderLog
	for _, l := range m.logs {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

type sentMessage struct {
	To, Subject, Body string
}

// fakeSender records SMS and email calls; err makes every call fail.
type fakeSender struct {
	mu      sync.Mutex
	sms     []sentMessage
	email   []sentMessage
	err     error
	block   chan struct{}
	entered chan struct{}
	// onSend runs before every successful send.
	onSend func()
}

func (f *fakeSender) SendSMS(ctx context.Context, to, message string) error {
	f.wait()
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sms = append(f.sms, sentMessage{To: to, Body: message})
	return nil
}

func (f *fakeSender) SendEmail(ctx context.Context, to, subject, body string) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.email = append(f.email, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeSender) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeSender) smsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sms)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var (
	testLoc = time.UTC
	// Appointment used by most tests: 2025-06-10 10:00.
	testAppt = time.Date(2025, 6, 10, 10, 0, 0, 0, testLoc)
)

func smsTemplate(id uint, hours int) models.ReminderTemplate {
	return models.ReminderTemplate{
		ID:           id,
		Type:         models.ReminderTypeSMS,
		TriggerHours: hours,
		Message:      "Hi {customerName}, {barberName} sees you {date} at {time}",
		IsActive:     true,
	}
}

func emailTemplate(id uint, hours int) models.ReminderTemplate {
	return models.ReminderTemplate{
		ID:           id,
		Type:         models.ReminderTypeEmail,
		TriggerHours: hours,
		Message:      "Reminder for {customerName}",
		IsActive:     true,
	}
}

func confirmedBooking(id uint) models.Booking {
	return models.Booking{
		ID:            id,
		BarberID:      1,
		Date:          "2025-06-10",
		Time:          "10:00",
		Status:        "confirmed",
		CustomerName:  "Ana",
		CustomerPhone: "+15550001111",
		CustomerEmail: "ana@example.com",
	}
}

func newTestScheduler(store Store, sender *fakeSender, c *clock) *Scheduler {
	return New(store, sender, sender, zerolog.Nop(), Config{
		CheckInterval:   time.Hour,
		DispatchTimeout: time.Second,
		Location:        testLoc,
	}, WithClock(c.Now))
}

func TestTriggerCheck_SendsExactlyOnceAcrossCycles(t *testing.T) {
	store := newMockStore()
	store.barbers[1] = models.Barber{ID: 1, Name: "Joe"}
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(10)}

	sender := &fakeSender{}
	c := &clock{now: testAppt.Add(-24 * time.Hour)}
	s := newTestScheduler(store, sender, c)

	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	c.Set(testAppt.Add(-23 * time.Hour))
	res, err = s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Skipped)

	require.Len(t, sender.sms, 1)
	assert.Equal(t, "+15550001111", sender.sms[0].To)
	assert.Equal(t, "Hi Ana, Joe sees you Tuesday, June 10, 2025 at 10:00", sender.sms[0].Body)
	assert.Len(t, store.logsWith(models.ReminderStatusSent), 1)
	assert.NotNil(t, store.bookings[0].ReminderSent)
}

func TestTriggerCheck_NotDueBeforeWindowOrAfterAppointment(t *testing.T) {
	store := newMockStore()
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(10)}

	sender := &fakeSender{}
	c := &clock{now: testAppt.Add(-24*time.Hour - time.Minute)}
	s := newTestScheduler(store, sender, c)

	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Due)

	c.Set(testAppt.Add(time.Minute))
	res, err = s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Due)

	assert.Empty(t, sender.sms)
}

func TestTriggerCheck_FailureIsLoggedAndRetried(t *testing.T) {
	store := newMockStore()
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(10)}

	sender := &fakeSender{err: errors.New("provider down")}
	c := &clock{now: testAppt.Add(-2 * time.Hour)}
	s := newTestScheduler(store, sender, c)

	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	failed := store.logsWith(models.ReminderStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "provider down", failed[0].ErrorMessage)
	assert.Nil(t, store.bookings[0].ReminderSent)

	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	res, err = s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, sender.smsCount())
	assert.NotNil(t, store.bookings[0].ReminderSent)
}

func TestTriggerCheck_EveryTemplateFiresOncePerBooking(t *testing.T) {
	store := newMockStore()
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24), emailTemplate(2, 2)}
	store.bookings = []models.Booking{confirmedBooking(10)}

	sender := &fakeSender{}
	c := &clock{now: testAppt.Add(-20 * time.Hour)}
	s := newTestScheduler(store, sender, c)

	_, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Len(t, sender.sms, 1)
	assert.Empty(t, sender.email)
	firstStamp := *store.bookings[0].ReminderSent

	// The booking already has reminder_sent; the 2h email must still go out.
	c.Set(testAppt.Add(-90 * time.Minute))
	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	require.Len(t, sender.email, 1)
	assert.Equal(t, "ana@example.com", sender.email[0].To)
	assert.Equal(t, "Appointment reminder: Tuesday, June 10, 2025 at 10:00", sender.email[0].Subject)
	assert.Len(t, sender.sms, 1)
	assert.Equal(t, firstStamp, *store.bookings[0].ReminderSent)
}

func TestTriggerCheck_MissingContactLoggedOnce(t *testing.T) {
	store := newMockStore()
	store.templates = []models.ReminderTemplate{emailTemplate(2, 24)}
	b := confirmedBooking(10)
	b.CustomerEmail = ""
	store.bookings = []models.Booking{b}

	sender := &fakeSender{}
	c := &clock{now: testAppt.Add(-time.Hour)}
	s := newTestScheduler(store, sender, c)

	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	res, err = s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)

	failed := store.logsWith(models.ReminderStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, NoContactInfo, failed[0].ErrorMessage)
	assert.Empty(t, sender.email)
}

func TestTriggerCheck_SkipsUnparseableAndInactive(t *testing.T) {
	store := newMockStore()
	inactive := smsTemplate(2, 48)
	inactive.IsActive = false
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24), inactive}
	bad := confirmedBooking(11)
	bad.Time = "late"
	store.bookings = []models.Booking{bad, confirmedBooking(10)}

	sender := &fakeSender{}
	c := &clock{now: testAppt.Add(-time.Hour)}
	s := newTestScheduler(store, sender, c)

	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Templates)
	assert.Equal(t, 1, res.Unparsable)
	assert.Equal(t, 1, res.Sent)
}

func TestTriggerCheck_NoTemplatesSkipsBookingScan(t *testing.T) {
	store := newMockStore()
	store.bookings = []models.Booking{confirmedBooking(10)}

	res, err := newTestScheduler(store, &fakeSender{}, &clock{now: testAppt.Add(-time.Hour)}).
		TriggerCheck(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, res.Bookings)
}

func TestTriggerCheck_StoreErrorIsReported(t *testing.T) {
	store := newMockStore()
	store.failTemplates = errors.New("db down")
	s := newTestScheduler(store, &fakeSender{}, &clock{now: testAppt})

	_, err := s.TriggerCheck(context.Background())

	require.Error(t, err)
	assert.Equal(t, "list active templates: db down", s.Status().LastError)
}

func TestTriggerCheck_RejectsOverlappingCycle(t *testing.T) {
	store := newMockStore()
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(10)}

	sender := &fakeSender{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newTestScheduler(store, sender, &clock{now: testAppt.Add(-time.Hour)})

	done := make(chan error, 1)
	go func() {
		_, err := s.TriggerCheck(context.Background())
		done <- err
	}()

	<-sender.entered
	assert.True(t, s.Status().CycleInProgress)

	_, err := s.TriggerCheck(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(sender.block)
	require.NoError(t, <-done)
	assert.False(t, s.Status().CycleInProgress)
	assert.Equal(t, 1, sender.smsCount())
}

type heldLocker struct{}

func (heldLocker) TryLock(context.Context, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

type brokenLocker struct{}

func (brokenLocker) TryLock(context.Context, time.Duration) (func(), bool, error) {
	return nil, false, errors.New("redis unreachable")
}

func TestTriggerCheck_Locker(t *testing.T) {
	store := newMockStore()
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(10)}
	c := &clock{now: testAppt.Add(-time.Hour)}
	cfg := Config{CheckInterval: time.Hour, Location: testLoc}

	held := New(store, &fakeSender{}, &fakeSender{}, zerolog.Nop(), cfg, WithClock(c.Now), WithLocker(heldLocker{}))
	_, err := held.TriggerCheck(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	sender := &fakeSender{}
	broken := New(store, sender, sender, zerolog.Nop(), cfg, WithClock(c.Now), WithLocker(brokenLocker{}))
	res, err := broken.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}

type panickingSender struct{}

func (panickingSender) SendSMS(context.Context, string, string) error { panic("boom") }

func TestTriggerCheck_DispatchPanicIsRecorded(t *testing.T) {
	store := newMockStore()
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(10)}

	s := New(store, panickingSender{}, nil, zerolog.Nop(), Config{Location: testLoc},
		WithClock((&clock{now: testAppt.Add(-time.Hour)}).Now))

	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, store.logsWith(models.ReminderStatusFailed)[0].ErrorMessage, "boom")
}

func TestStartStop_Idempotent(t *testing.T) {
	store := newMockStore()
	s := newTestScheduler(store, &fakeSender{}, &clock{now: testAppt})

	assert.False(t, s.Stop(), "stop before start is a no-op")

	require.True(t, s.Start(context.Background()))
	assert.False(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.templateCalls >= 1
	}, time.Second, 10*time.Millisecond, "first cycle runs immediately")

	st := s.Status()
	assert.True(t, st.IsRunning)
	assert.Equal(t, int64(time.Hour/time.Millisecond), st.CheckIntervalMs)

	assert.True(t, s.Stop())
	assert.False(t, s.Stop())
	assert.False(t, s.Status().IsRunning)

	require.True(t, s.Start(context.Background()), "restart after stop")
	assert.True(t, s.Stop())
}

func TestStart_ParentContextCancelStopsLoop(t *testing.T) {
	store := newMockStore()
	s := newTestScheduler(store, &fakeSender{}, &clock{now: testAppt})

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.Status().IsRunning }, time.Second, 10*time.Millisecond)
	assert.True(t, s.Start(context.Background()))
	assert.True(t, s.Stop())
}

func TestNew_AppliesDefaults(t *testing.T) {
	s := New(newMockStore(), nil, nil, zerolog.Nop(), Config{})

	assert.Equal(t, 5*time.Minute, s.config.CheckInterval)
	assert.Equal(t, 15*time.Second, s.config.DispatchTimeout)
	assert.Equal(t, 5*time.Minute, s.config.LockTTL)
	assert.NotNil(t, s.config.Location)
}

func TestTriggerCheck_SendIsRecordedWhenCallerGoesAway(t *testing.T) {
	store := newMockStore()
	store.honorCtx = true
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{onSend: cancel}
	c := &clock{now: testAppt.Add(-2 * time.Hour)}
	s := newTestScheduler(store, sender, c)

	res, err := s.TriggerCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, store.logsWith(models.ReminderStatusSent), 1)

	store.mu.Lock()
	stamped := store.bookings[0].ReminderSent != nil
	store.mu.Unlock()
	assert.True(t, stamped)

	res, err = s.TriggerCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, sender.smsCount(), "a recorded send is never repeated")
}

func TestTriggerCheck_UnrecordedSendIsReported(t *testing.T) {
	store := newMockStore()
	store.failSentLog = errors.New("disk full")
	store.templates = []models.ReminderTemplate{smsTemplate(1, 24)}
	store.bookings = []models.Booking{confirmedBooking(1)}

	sender := &fakeSender{}
	c := &clock{now: testAppt.Add(-2 * time.Hour)}
	s := newTestScheduler(store, sender, c)

	res, err := s.TriggerCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sender.smsCount())
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Unrecorded)
	assert.Empty(t, store.logsWith(models.ReminderStatusSent))
}
