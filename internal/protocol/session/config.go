package session

import "time"

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines session reliability defaults.
type Config struct {
	// AppName is sent in the session-start frame. The radio shows it as
	// the connected companion application.
	AppName string
	// HandshakeTimeout bounds the wait for the radio's self-info
	// acknowledgment after each session-start attempt.
	HandshakeTimeout time.Duration
	// MaxHandshakeAttempts bounds session-start retries before the
	// handshake is surfaced as a transport failure.
	MaxHandshakeAttempts int
	Backoff              BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		AppName:              "MCWB",
		HandshakeTimeout:     3 * time.Second,
		MaxHandshakeAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}
