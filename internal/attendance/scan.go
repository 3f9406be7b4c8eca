package attendance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScanOutcome describes how a successful scan was applied.
type ScanOutcome string

const (
	ScanCheckedIn        ScanOutcome = "checked_in"
	ScanAlreadyCheckedIn ScanOutcome = "already_checked_in"
)

// ScanResult is returned for every scan that resolved to an attendee.
type ScanResult struct {
	Outcome  ScanOutcome `json:"outcome"`
	Attendee Attendee    `json:"attendee"`
	Session  Session     `json:"session"`
	Log      Log         `json:"log"`
}

// Cooldown suppresses repeated scans of the same code.
type Cooldown interface {
	// Acquire reports false when key was already acquired within window.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisCooldown keeps cool-down keys in Redis so every API replica shares them.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

// NewRedisCooldown builds a cool-down tracker using SET NX with expiry.
func NewRedisCooldown(client *redis.Client, prefix string) *RedisCooldown {
	if prefix == "" {
		prefix = "rollcall:scan:"
	}
	return &RedisCooldown{client: client, prefix: prefix}
}

// Acquire implements Cooldown.
func (c *RedisCooldown) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.prefix+key, 1, window).Result()
}

// MemoryCooldown is a process-local Cooldown for dev and tests.
type MemoryCooldown struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryCooldown creates an empty tracker.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{seen: make(map[string]time.Time), now: time.Now}
}

// Acquire implements Cooldown.
func (c *MemoryCooldown) Acquire(_ context.Context, key string, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if until, ok := c.seen[key]; ok && now.Before(until) {
		return false, nil
	}
	c.seen[key] = now.Add(window)
	for k, until := range c.seen {
		if !now.Before(until) && k != key {
			delete(c.seen, k)
		}
	}
	return true, nil
}

// Scanner turns a scanned QR payload into an attendance record for the active session.
type Scanner struct {
	svc      *Service
	cooldown Cooldown
	window   time.Duration
}

// NewScanner creates a scanner. A nil cooldown or non-positive window disables debouncing.
func NewScanner(svc *Service, cooldown Cooldown, window time.Duration) *Scanner {
	return &Scanner{svc: svc, cooldown: cooldown, window: window}
}

// Scan records the attendee identified by code at the active session.
func (s *Scanner) Scan(ctx context.Context, code string) (ScanResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ScanResult{}, ErrUnknownAttendee
	}

	if s.cooldown != nil && s.window > 0 {
		ok, err := s.cooldown.Acquire(ctx, code, s.window)
		switch {
		case err != nil:
			// The cool-down is a convenience; a Redis outage must not block check-in.
			slog.WarnContext(ctx, "scan cooldown unavailable", "error", err)
		case !ok:
			return ScanResult{}, ErrCooldown
		}
	}

	sess, err := s.svc.ActiveSession(ctx)
	if err != nil {
		return ScanResult{}, err
	}

	attendee, err := s.svc.GetAttendee(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ScanResult{}, ErrUnknownAttendee
		}
		return ScanResult{}, err
	}

	l, created, err := s.svc.MarkPresent(ctx, attendee.ID, sess.ID)
	if err != nil {
		return ScanResult{}, err
	}
	res := ScanResult{Outcome: ScanCheckedIn, Attendee: attendee, Session: sess, Log: l}
	if !created {
		res.Outcome = ScanAlreadyCheckedIn
	}
	slog.InfoContext(ctx, "scan processed", "attendee_id", attendee.ID, "session_id", sess.ID, "outcome", res.Outcome)
	return res, nil
}
