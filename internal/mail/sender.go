// Package mail delivers account verification email through an HTTP mail
// provider. When no provider is configured the verification link is written
// to the log instead so local setups stay usable.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"yumetv/internal/observability/metrics"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxConcurrent = 4
)

// Config describes the outbound mail provider.
type Config struct {
	// Endpoint is the provider's send URL. Empty disables delivery.
	Endpoint string
	// APIKey is sent as a bearer token.
	APIKey string
	// From is the sender address shown to recipients.
	From string
	// Origin is the public site origin used to build verification links,
	// for example https://yume.tv.
	Origin string
	// Timeout bounds a single provider call.
	Timeout time.Duration
	// MaxConcurrent caps in-flight provider calls.
	MaxConcurrent int64
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Sender sends verification email.
type Sender struct {
	cfg      Config
	client   *http.Client
	logger   *slog.Logger
	metrics  *metrics.Recorder
	inflight *semaphore.Weighted
}

// Option customises a Sender.
type Option func(*Sender)

// WithLogger sets the logger used for delivery outcomes and fallback links.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the recorder that counts sends and fallbacks.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Sender) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// NewSender builds a Sender from cfg.
func NewSender(cfg Config, opts ...Option) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	sender := &Sender{
		cfg:      cfg,
		client:   client,
		logger:   slog.Default(),
		inflight: semaphore.NewWeighted(cfg.MaxConcurrent),
	}
	for _, opt := range opts {
		opt(sender)
	}
	return sender
}

// Configured reports whether a provider endpoint is set.
func (s *Sender) Configured() bool {
	return strings.TrimSpace(s.cfg.Endpoint) != ""
}

// VerificationLink builds the in-app link a recipient follows to confirm
// their address.
func (s *Sender) VerificationLink(token string) string {
	origin := strings.TrimRight(strings.TrimSpace(s.cfg.Origin), "/")
	if origin == "" {
		origin = "http://localhost:4200"
	}
	return fmt.Sprintf("%s/#/verify-email/%s", origin, token)
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendVerification delivers the verification link for token to the given
// address. Delivery problems are logged and the link is written to the log so
// the account can still be confirmed; the returned error reports the provider
// failure for callers that want it.
func (s *Sender) SendVerification(ctx context.Context, email, username, token string) error {
	link := s.VerificationLink(token)
	logger := s.logger.With("email", email)

	if !s.Configured() {
		s.metrics.IncMailFallback()
		logger.Warn("mail provider not configured, verification link follows", "link", link)
		return nil
	}

	if err := s.inflight.Acquire(ctx, 1); err != nil {
		s.metrics.IncMailFallback()
		logger.Warn("mail send cancelled, verification link follows", "link", link, "error", err)
		return err
	}
	defer s.inflight.Release(1)

	body := sendRequest{
		From:    s.cfg.From,
		To:      email,
		Subject: "Verify your Yume TV account",
		HTML:    verificationBody(username, link),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode mail payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.IncMailFallback()
		logger.Warn("mail send failed, verification link follows", "link", link, "error", err)
		return fmt.Errorf("send verification mail: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.metrics.IncMailFallback()
		logger.Warn("mail provider rejected send, verification link follows", "link", link, "status", resp.StatusCode)
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}

	s.metrics.IncMailSent()
	logger.Info("verification mail sent")
	return nil
}

func verificationBody(username, link string) string {
	var b strings.Builder
	b.WriteString("<p>Hi " + htmlEscape(username) + ",</p>")
	b.WriteString("<p>Welcome to Yume TV! Confirm your email address to activate your account:</p>")
	b.WriteString(fmt.Sprintf("<p><a href=%q>Verify email</a></p>", link))
	b.WriteString("<p>The link expires in 24 hours. If you did not sign up, you can ignore this message.</p>")
	return b.String()
}

func htmlEscape(value string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(value)
}
