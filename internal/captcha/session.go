package captcha

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dodocap/captcha-server/internal/config"
	"github.com/dodocap/captcha-server/internal/metrics"
	"github.com/dodocap/captcha-server/internal/protocol"
)

// Sender is the outbound half of a message channel. The WebSocket connection
// satisfies it; tests substitute a recording fake.
type Sender interface {
	WriteMessage(data []byte) error
}

// Session tracks one connection's captcha state: the pending solution code,
// the expiration timer, and the verification token, if any. All state is
// guarded by a single mutex because the expiration timer fires on its own
// goroutine.
//
// State machine: no pending code -> challenged (code set, timer armed) ->
// verified (token issued, code cleared) or back to unchallenged via
// expiration or Close. Expiration and Close both revoke any issued token.
type Session struct {
	ID string

	cfg      config.Config
	sender   Sender
	gen      *CodeGenerator
	renderer *Renderer
	registry *Registry

	mu       sync.Mutex
	code     string // pending solution; empty when no challenge is outstanding
	token    string // issued token; empty until verified
	timer    *time.Timer
	timerGen uint64 // arm-cycle counter; a firing timer is ignored unless its gen is current
	closed   bool
}

// NewSession creates a session bound to the given outbound channel. The
// generator, renderer, and registry are shared across sessions.
func NewSession(id string, sender Sender, cfg config.Config, gen *CodeGenerator, renderer *Renderer, registry *Registry) *Session {
	return &Session{
		ID:       id,
		cfg:      cfg,
		sender:   sender,
		gen:      gen,
		renderer: renderer,
		registry: registry,
	}
}

// RequestChallenge generates and renders a new challenge, stores its solution
// as the pending code, and (re)arms the expiration timer, replacing any
// previously armed timer. It returns the rendered document for transmission.
//
// A render failure leaves the previous pending code and timer untouched, so
// an outstanding challenge survives a failed re-render. A token issued from
// an earlier verification is deliberately left valid across a re-challenge;
// only expiration or Close revokes it.
func (s *Session) RequestChallenge(ctx context.Context) (string, error) {
	code, glyphs := s.gen.Generate()

	// Render outside the lock; it is the slow path and must not serialize
	// timer callbacks behind it.
	doc, err := s.renderer.Render(ctx, glyphs)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("captcha: session %s is closed", s.ID)
	}

	s.code = code
	s.armTimerLocked()

	metrics.ChallengesIssued.Inc()
	return doc, nil
}

// SubmitSolution compares the candidate against the pending code using exact,
// case-sensitive equality. On match it issues a fresh token, registers it,
// clears the pending code (the timer stays armed so the token still dies at
// expiration), and returns the token. On mismatch, including when no
// challenge is pending, it returns ok=false and leaves the pending code and
// timer untouched so the client may retry until expiration.
func (s *Session) SubmitSolution(candidate string) (token string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.code == "" || candidate != s.code {
		metrics.VerificationsTotal.WithLabelValues("not_verified").Inc()
		return "", false
	}

	s.code = ""
	// A session backs at most one registry token; a repeat verification
	// replaces the earlier one rather than accumulating it.
	if s.token != "" {
		s.registry.Remove(s.token)
	}
	s.token = newToken()
	s.registry.Add(s.token)

	metrics.VerificationsTotal.WithLabelValues("verified").Inc()
	return s.token, true
}

// Token returns the currently issued token, or empty if the session is not
// verified.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Close disarms any timer, revokes any issued token, and marks the session
// dead so in-flight renders are discarded instead of transmitted. It is
// idempotent and safe to call from any goroutine.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.code = ""
	if s.token != "" {
		s.registry.Remove(s.token)
		s.token = ""
	}
	s.mu.Unlock()

	log.Printf("captcha: session closed session=%s", s.ID)
}

// armTimerLocked cancels any live timer and schedules a new expiration.
// The generation counter makes re-arming atomic with respect to a timer that
// already fired and is waiting on the mutex: such a timer sees a stale
// generation and does nothing, preserving the at-most-one-live-timer
// invariant.
func (s *Session) armTimerLocked() {
	s.timerGen++
	gen := s.timerGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.ExpirationTime, func() {
		s.expire(gen)
	})
}

// expire is the timer callback. It clears the pending code, revokes any
// issued token, and notifies the client, returning the session to the
// unchallenged state regardless of whether it was verified.
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.timerGen {
		// Superseded by a re-challenge or a close between firing and
		// acquiring the lock.
		s.mu.Unlock()
		return
	}
	s.code = ""
	s.timer = nil
	if s.token != "" {
		s.registry.Remove(s.token)
		s.token = ""
	}
	notice := s.renderer.ExpiredNotice()
	s.mu.Unlock()

	metrics.ChallengesExpired.Inc()
	log.Printf("captcha: challenge expired session=%s", s.ID)

	data, err := protocol.NewServerMessage(protocol.TypeExpired, notice)
	if err != nil {
		log.Printf("captcha: failed to build expired message session=%s: %v", s.ID, err)
		return
	}
	// The channel may have died between firing and sending; that is a
	// resource fault, not a session error.
	if err := s.sender.WriteMessage(data); err != nil {
		log.Printf("captcha: failed to send expired message session=%s: %v", s.ID, err)
	}
}

// newToken derives an opaque verification token from a fresh random UUID and
// the current timestamp. Unguessability is all that is required; the token is
// not cryptographically bound to the client.
func newToken() string {
	h := sha256.Sum256(fmt.Appendf(nil, "captcha%s%d", uuid.NewString(), time.Now().UnixNano()))
	return hex.EncodeToString(h[:])
}
