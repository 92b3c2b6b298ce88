package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	CountryCode string

	// BaseURL overrides the API host (tests, regional edges).
	BaseURL string
	Timeout time.Duration
}

// TwilioSender posts to the Messages resource of Twilio's REST API.
type TwilioSender struct {
	cfg    TwilioConfig
	http   *http.Client
	logger zerolog.Logger
}

func NewTwilioSender(cfg TwilioConfig, logger zerolog.Logger) *TwilioSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &TwilioSender{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("provider", "twilio").Logger(),
	}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Twilio error codes that blame the destination number, not the account or
// the API: invalid To, landline, opted out, unreachable, region not allowed.
var twilioRecipientCodes = map[int]bool{
	21211: true,
	21214: true,
	21408: true,
	21610: true,
	21612: true,
	21614: true,
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, message string) error {
	phone, err := NormalizePhone(to, s.cfg.CountryCode)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.cfg.BaseURL, url.PathEscape(s.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var te twilioError
		if json.Unmarshal(raw, &te) == nil && te.Message != "" {
			if resp.StatusCode < 500 && twilioRecipientCodes[te.Code] {
				return fmt.Errorf("%w: twilio returned %d (code %d): %s", ErrInvalidRecipient, resp.StatusCode, te.Code, te.Message)
			}
			return fmt.Errorf("twilio returned %d (code %d): %s", resp.StatusCode, te.Code, te.Message)
		}
		return fmt.Errorf("twilio returned %d", resp.StatusCode)
	}

	s.logger.Debug().Str("to", phone).Msg("sms sent")
	return nil
}

// LogSMSSender only logs. Used when no SMS provider is configured.
type LogSMSSender struct {
	logger zerolog.Logger
}

func NewLogSMSSender(logger zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger.With().Str("provider", "sms-log").Logger()}
}

func (s *LogSMSSender) SendSMS(_ context.Context, to, message string) error {
	s.logger.Info().Str("to", to).Int("length", len(message)).Msg("sms not sent: no provider configured")
	return nil
}
