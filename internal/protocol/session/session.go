// Package session drives the companion radio session: the startup
// handshake, device time replies, and the queue-drain exchange that keeps
// the radio's message queue moving.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostyorkshire/MCWB/internal/observability"
	"github.com/hostyorkshire/MCWB/internal/protocol"
)

// State is the session lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateHandshaking
	StateReady
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

// SendFunc writes one protocol payload to the radio as a framed command.
type SendFunc func(payload []byte) error

// Session tracks the radio session state. All sends go through the
// SendFunc supplied at construction so the transport write discipline
// stays in one place.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	nodeName string

	send SendFunc
	now  func() time.Time
	rng  *rand.Rand
	ack  chan protocol.SelfInfo
}

func New(cfg Config, send SendFunc) *Session {
	if cfg.AppName == "" {
		cfg.AppName = DefaultConfig().AppName
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultConfig().HandshakeTimeout
	}
	if cfg.MaxHandshakeAttempts <= 0 {
		cfg.MaxHandshakeAttempts = DefaultConfig().MaxHandshakeAttempts
	}
	return &Session{
		cfg:  cfg,
		send: send,
		now:  time.Now,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		ack:  make(chan protocol.SelfInfo, 1),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Ready() bool {
	return s.State() == StateReady
}

// NodeName reports the radio's node name once the handshake has seen a
// self-info frame.
func (s *Session) NodeName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodeName
}

// Handshake drives Disconnected -> Handshaking -> Ready. Each attempt
// sends a session-start frame and waits for the radio's self-info
// acknowledgment; attempts retry with backoff up to the configured bound
// before the handshake is surfaced as a failure.
func (s *Session) Handshake(ctx context.Context) error {
	s.setState(StateHandshaking)

	// Discard any acknowledgment left over from a previous session.
	select {
	case <-s.ack:
	default:
	}

	for attempt := 1; attempt <= s.cfg.MaxHandshakeAttempts; attempt++ {
		if attempt > 1 {
			observability.RecordHandshakeRetry()
			delay := NextBackoffDelay(s.cfg.Backoff, attempt, s.rng)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				s.setState(StateDisconnected)
				return ctx.Err()
			}
		}

		if err := s.send(protocol.AppStart(s.cfg.AppName)); err != nil {
			s.setState(StateDisconnected)
			return fmt.Errorf("session: send app start: %w", err)
		}

		select {
		case info := <-s.ack:
			s.mu.Lock()
			s.nodeName = info.NodeName
			s.state = StateReady
			s.mu.Unlock()
			log.Info().Str("node", info.NodeName).Int("attempt", attempt).Msg("session ready")
			return nil
		case <-time.After(s.cfg.HandshakeTimeout):
			log.Warn().Int("attempt", attempt).Dur("timeout", s.cfg.HandshakeTimeout).
				Msg("no handshake acknowledgment")
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return ctx.Err()
		}
	}

	s.setState(StateDisconnected)
	return fmt.Errorf("%w after %d attempts", protocol.ErrHandshakeTimeout, s.cfg.MaxHandshakeAttempts)
}

// HandleSelfInfo feeds a self-info frame into the handshake wait. Outside
// a handshake it just refreshes the recorded node name.
func (s *Session) HandleSelfInfo(info protocol.SelfInfo) {
	s.mu.Lock()
	s.nodeName = info.NodeName
	s.mu.Unlock()
	select {
	case s.ack <- info:
	default:
	}
}

// HandleTimeRequest answers a device time request with the host clock.
// The radio stalls its session when this reply is late, so it is sent
// inline from the dispatch path.
func (s *Session) HandleTimeRequest() error {
	if err := s.send(protocol.TimeResponse(s.now())); err != nil {
		return fmt.Errorf("session: time reply: %w", err)
	}
	observability.RecordTimeReply()
	return nil
}

// SyncClock pushes the host clock into the radio RTC.
func (s *Session) SyncClock() error {
	if err := s.send(protocol.SetTime(s.now())); err != nil {
		return fmt.Errorf("session: clock sync: %w", err)
	}
	return nil
}

// DrainQueue issues one queue-drain command. The radio only processes a
// just-sent frame and releases queued inbound frames when asked, so this
// must follow every outbound application send. A queue-empty response to
// the drain is steady-state, not an error.
func (s *Session) DrainQueue() error {
	if err := s.send(protocol.SyncNext()); err != nil {
		return fmt.Errorf("session: queue drain: %w", err)
	}
	observability.RecordQueueDrain()
	return nil
}

// Disconnect forces the state back after transport loss.
func (s *Session) Disconnect() {
	s.setState(StateDisconnected)
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		log.Debug().Stringer("from", prev).Stringer("to", next).Msg("session state")
	}
}
