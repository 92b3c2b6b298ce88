// Package reminder sends SMS and email reminders ahead of confirmed bookings.
//
// A Scheduler wakes on a fixed interval (and once immediately on Start),
// loads the active reminder templates and upcoming confirmed bookings, and for
// every (booking, template) pair whose reminder window is open:
//  1. re-reads the booking's reminder logs and skips pairs already sent
//  2. renders the template
//  3. dispatches through the SMS or email sender under a timeout
//  4. appends a sent or failed ReminderLog
//
// A failed dispatch leaves the pair eligible for the next cycle. At most one
// cycle runs at a time per process; with a Redis Locker, across processes.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/barbershop-booking/internal/metrics"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

// ErrCycleInProgress is returned by TriggerCheck when a cycle is already
// running here or on another instance.
var ErrCycleInProgress = errors.New("reminder cycle in progress")

// NoContactInfo is the error message logged when a booking has no phone
// (sms) or email (email) for a due template.
const NoContactInfo = "no contact info"

const maxErrorMessage = 255

// reminderStatusUnrecorded only labels metrics; it is never stored.
const reminderStatusUnrecorded = "unrecorded"

// Config holds configuration for the reminder scheduler.
type Config struct {
	// CheckInterval is how often to look for due reminders (default: 5 minutes)
	CheckInterval time.Duration

	// DispatchTimeout bounds a single SMS or email call (default: 15 seconds)
	DispatchTimeout time.Duration

	// Location is the business timezone booking dates and times are read in.
	Location *time.Location

	// LockTTL is how long the cross-instance cycle lock survives a holder
	// that stops renewing it (default: CheckInterval)
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		CheckInterval:   5 * time.Minute,
		DispatchTimeout: 15 * time.Second,
		Location:        time.Local,
	}
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.locker = l
		}
	}
}

// CycleResult summarises one check cycle.
type CycleResult struct {
	CycleID    string        `json:"cycleId"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"durationNs"`
	Templates  int           `json:"templates"`
	Bookings   int           `json:"bookings"`
	Due        int           `json:"due"`
	Sent       int           `json:"sent"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Unparsable int           `json:"unparsable"`
	// Unrecorded counts sends whose sent log could not be written; those
	// pairs will likely be sent again.
	Unrecorded int           `json:"unrecorded"`
}

type Status struct {
	IsRunning       bool         `json:"isRunning"`
	CheckIntervalMs int64        `json:"checkIntervalMs"`
	CycleInProgress bool         `json:"cycleInProgress"`
	LastCheckAt     *time.Time   `json:"lastCheckAt,omitempty"`
	LastResult      *CycleResult `json:"lastResult,omitempty"`
	LastError       string       `json:"lastError,omitempty"`
}

type Scheduler struct {
	store  Store
	sms    SMSSender
	email  EmailSender
	locker Locker
	logger zerolog.Logger
	config Config
	now    func() time.Time

	// Runtime state
	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	lastResult *CycleResult
	lastError  string

	cycleMu      sync.Mutex
	cycleRunning atomic.Bool
}

func New(
	store Store,
	sms SMSSender,
	email EmailSender,
	logger zerolog.Logger,
	config Config,
	opts ...Option,
) *Scheduler {
	def := DefaultConfig()
	if config.CheckInterval <= 0 {
		config.CheckInterval = def.CheckInterval
	}
	if config.DispatchTimeout <= 0 {
		config.DispatchTimeout = def.DispatchTimeout
	}
	if config.Location == nil {
		config.Location = def.Location
	}
	if config.LockTTL <= 0 {
		config.LockTTL = config.CheckInterval
	}

	s := &Scheduler{
		store:  store,
		sms:    sms,
		email:  email,
		locker: nopLocker{},
		logger: logger.With().Str("component", "reminder-scheduler").Logger(),
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ======================================================
// LIFECYCLE
// ======================================================

// Start launches the loop. It reports false, and does nothing, when the
// scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Info().Msg("reminder scheduler already running")
		return false
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	metrics.SetSchedulerRunning(true)
	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Dur("dispatch_timeout", s.config.DispatchTimeout).
		Msg("starting reminder scheduler")

	go s.run(ctx, stopCh, doneCh)
	return true
}

// Stop ends the loop and waits for an in-flight cycle to finish. It reports
// false when the scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh

	metrics.SetSchedulerRunning(false)
	s.logger.Info().Msg("reminder scheduler stopped")
	return true
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning:       s.running,
		CheckIntervalMs: s.config.CheckInterval.Milliseconds(),
		CycleInProgress: s.cycleRunning.Load(),
		LastError:       s.lastError,
	}
	if s.lastResult != nil {
		res := *s.lastResult
		at := res.StartedAt
		st.LastResult = &res
		st.LastCheckAt = &at
	}
	return st
}

func (s *Scheduler) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.doneCh == doneCh && s.running {
			// Parent context ended without Stop.
			s.running = false
			metrics.SetSchedulerRunning(false)
		}
		s.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// In-flight cycles finish even when ctx is cancelled.
	cycleCtx := context.WithoutCancel(ctx)

	s.tick(cycleCtx)

	for {
		select {
		case <-ticker.C:
			s.tick(cycleCtx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.TriggerCheck(ctx); err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			s.logger.Debug().Msg("previous cycle still running, skipping tick")
			return
		}
		s.logger.Error().Err(err).Msg("reminder cycle failed")
	}
}

// ======================================================
// CYCLE
// ======================================================

// TriggerCheck runs one cycle synchronously. It never overlaps another cycle.
func (s *Scheduler) TriggerCheck(ctx context.Context) (res CycleResult, err error) {
	if !s.cycleMu.TryLock() {
		return CycleResult{}, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()

	release, ok, lockErr := s.locker.TryLock(ctx, s.config.LockTTL)
	switch {
	case lockErr != nil:
		s.logger.Warn().Err(lockErr).Msg("cycle lock unavailable, continuing with local guard")
	case !ok:
		return CycleResult{}, ErrCycleInProgress
	default:
		defer release()
	}

	s.cycleRunning.Store(true)
	defer s.cycleRunning.Store(false)

	started := time.Now()
	res = CycleResult{
		CycleID:   uuid.NewString(),
		StartedAt: s.now().In(s.config.Location),
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reminder cycle panic: %v", r)
		}

		res.Duration = time.Since(started)

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.RecordCycle(outcome, res.Duration)

		s.mu.Lock()
		last := res
		s.lastResult = &last
		s.lastError = ""
		if err != nil {
			s.lastError = err.Error()
		}
		s.mu.Unlock()
	}()

	err = s.cycle(ctx, &res)
	return res, err
}

func (s *Scheduler) cycle(ctx context.Context, res *CycleResult) error {
	now := res.StartedAt
	log := s.logger.With().Str("cycle_id", res.CycleID).Logger()

	templates, err := s.store.ListActiveTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list active templates: %w", err)
	}
	res.Templates = len(templates)
	if len(templates) == 0 {
		log.Debug().Msg("no active reminder templates")
		return nil
	}

	bookings, err := s.store.ListPendingBookings(ctx, now.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("list pending bookings: %w", err)
	}
	res.Bookings = len(bookings)

	for i := range bookings {
		b := &bookings[i]

		appt, err := AppointmentTime(b.Date, b.Time, s.config.Location)
		if err != nil {
			res.Unparsable++
			log.Warn().Err(err).Uint("booking_id", b.ID).Msg("skipping booking with unparseable date/time")
			continue
		}

		barberName := ""
		barberLoaded := false

		for _, t := range templates {
			if !IsDue(now, appt, t.TriggerHours) {
				continue
			}
			res.Due++

			if !barberLoaded {
				barberName = s.barberName(ctx, b.BarberID)
				barberLoaded = true
			}

			switch s.process(ctx, log, b, t, appt, barberName, now) {
			case outcomeSent:
				res.Sent++
			case outcomeFailed:
				res.Failed++
			case outcomeUnrecorded:
				res.Unrecorded++
			default:
				res.Skipped++
			}
		}
	}

	log.Info().
		Int("templates", res.Templates).
		Int("bookings", res.Bookings).
		Int("due", res.Due).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Int("unrecorded", res.Unrecorded).
		Msg("reminder cycle finished")

	return nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
	outcomeUnrecorded
)

func (s *Scheduler) process(
	ctx context.Context,
	log zerolog.Logger,
	b *models.Booking,
	t models.ReminderTemplate,
	appt time.Time,
	barberName string,
	now time.Time,
) outcome {

	log = log.With().Uint("booking_id", b.ID).Uint("template_id", t.ID).Str("type", t.Type).Logger()

	// Re-read right before dispatch so concurrent senders see each other.
	logs, err := s.store.ListLogsByBooking(ctx, b.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read reminder logs")
		return outcomeSkipped
	}
	if hasLog(logs, t.ID, func(l models.ReminderLog) bool { return l.Status == models.ReminderStatusSent }) {
		return outcomeSkipped
	}

	recipient, supported := recipientFor(b, t.Type)
	if !supported {
		log.Warn().Msg("unsupported reminder type")
		return outcomeSkipped
	}

	if recipient == "" {
		if hasLog(logs, t.ID, func(l models.ReminderLog) bool {
			return l.Status == models.ReminderStatusFailed && l.ErrorMessage == NoContactInfo
		}) {
			return outcomeSkipped
		}
		s.writeLog(ctx, log, &models.ReminderLog{
			BookingID:    b.ID,
			TemplateID:   t.ID,
			Type:         t.Type,
			Status:       models.ReminderStatusFailed,
			ErrorMessage: NoContactInfo,
		})
		metrics.RecordReminder(t.Type, models.ReminderStatusFailed)
		log.Info().Msg("booking has no contact info for reminder")
		return outcomeFailed
	}

	body := Render(t.Message, *b, appt, barberName)
	subject := Subject(t, *b, appt, barberName)

	if err := s.dispatch(ctx, t.Type, recipient, subject, body); err != nil {
		s.writeLog(ctx, log, &models.ReminderLog{
			BookingID:    b.ID,
			TemplateID:   t.ID,
			Type:         t.Type,
			Recipient:    recipient,
			Status:       models.ReminderStatusFailed,
			ErrorMessage: truncate(err.Error(), maxErrorMessage),
		})
		metrics.RecordReminder(t.Type, models.ReminderStatusFailed)
		log.Warn().Err(err).Msg("reminder dispatch failed, will retry next cycle")
		return outcomeFailed
	}

	// The provider accepted the message: record it even if ctx is gone.
	recordCtx := context.WithoutCancel(ctx)

	sentAt := now
	if err := s.store.CreateLog(recordCtx, &models.ReminderLog{
		BookingID:  b.ID,
		TemplateID: t.ID,
		Type:       t.Type,
		Recipient:  recipient,
		Status:     models.ReminderStatusSent,
		SentAt:     &sentAt,
	}); err != nil {
		if errors.Is(err, ErrAlreadySent) {
			log.Warn().Msg("reminder recorded as sent by another worker")
			return outcomeSkipped
		}
		metrics.RecordReminder(t.Type, reminderStatusUnrecorded)
		log.Error().Err(err).Msg("reminder sent but not recorded, it may be sent again")
		return outcomeUnrecorded
	}
	metrics.RecordReminder(t.Type, models.ReminderStatusSent)

	if b.ReminderSent == nil {
		if err := s.store.MarkReminderSent(recordCtx, b.ID, now); err != nil {
			log.Error().Err(err).Msg("failed to stamp reminder_sent")
		} else {
			b.ReminderSent = &sentAt
		}
	}

	log.Info().Msg("reminder sent")
	return outcomeSent
}

func (s *Scheduler) dispatch(ctx context.Context, typ, to, subject, body string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.DispatchTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()

	switch typ {
	case models.ReminderTypeSMS:
		if s.sms == nil {
			return errors.New("sms sender not configured")
		}
		return s.sms.SendSMS(ctx, to, body)
	case models.ReminderTypeEmail:
		if s.email == nil {
			return errors.New("email sender not configured")
		}
		return s.email.SendEmail(ctx, to, subject, body)
	}
	return fmt.Errorf("unsupported reminder type %q", typ)
}

func (s *Scheduler) writeLog(ctx context.Context, log zerolog.Logger, entry *models.ReminderLog) {
	if err := s.store.CreateLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("status", entry.Status).Msg("failed to write reminder log")
	}
}

func (s *Scheduler) barberName(ctx context.Context, id uint) string {
	barber, err := s.store.GetBarber(ctx, id)
	if err != nil || barber == nil {
		return DefaultBarberName
	}
	return barber.Name
}

func recipientFor(b *models.Booking, typ string) (string, bool) {
	switch typ {
	case models.ReminderTypeSMS:
		return b.CustomerPhone, true
	case models.ReminderTypeEmail:
		return b.CustomerEmail, true
	}
	return "", false
}

func hasLog(logs []models.ReminderLog, templateID uint, match func(models.ReminderLog) bool) bool {
	for _, l := range logs {
		if l.TemplateID == templateID && match(l) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
