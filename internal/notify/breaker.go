// Package notify holds the SMS and email providers reminders go out through,
// plus a circuit breaker that stops hammering a provider that keeps failing.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/BruksfildServices01/barbershop-booking/internal/metrics"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type BreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before a trial send.
	OpenTimeout time.Duration
	Interval    time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      time.Minute,
		Interval:         5 * time.Minute,
	}
}

func newBreaker(name string, cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}

	metrics.SetBreakerState(name, 0)

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// um número inválido é problema do cliente, não do provedor
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidRecipient)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notify breaker state change")
			metrics.SetBreakerState(name, stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func execute(cb *gobreaker.CircuitBreaker[struct{}], fn func() error) error {
	_, err := cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordBreakerRejection(cb.Name())
	}
	return err
}

// ======================================================
// SMS
// ======================================================

type BreakerSMS struct {
	next SMSSender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerSMS(next SMSSender, cfg BreakerConfig, logger zerolog.Logger) *BreakerSMS {
	return &BreakerSMS{
		next: next,
		cb:   newBreaker("sms", cfg, logger),
	}
}

func (b *BreakerSMS) SendSMS(ctx context.Context, to, message string) error {
	return execute(b.cb, func() error {
		return b.next.SendSMS(ctx, to, message)
	})
}

func (b *BreakerSMS) State() gobreaker.State {
	return b.cb.State()
}

// ======================================================
// EMAIL
// ======================================================

type BreakerEmail struct {
	next EmailSender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerEmail(next EmailSender, cfg BreakerConfig, logger zerolog.Logger) *BreakerEmail {
	return &BreakerEmail{
		next: next,
		cb:   newBreaker("email", cfg, logger),
	}
}

func (b *BreakerEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	return execute(b.cb, func() error {
		return b.next.SendEmail(ctx, to, subject, body)
	})
}

func (b *BreakerEmail) State() gobreaker.State {
	return b.cb.State()
}
