package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns the delay before retry attempt N (1-based).
// Handshake retries and serial reconnects both schedule with it: the
// first attempt waits InitialDelay, later attempts grow geometrically
// up to MaxDelay. With Jitter set the delay is scaled by a random
// factor in [0.5, 1.5) so restarted bridges do not re-probe the radio
// in lockstep.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}

	mult := cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}

	if cfg.Jitter {
		factor := 0.5
		if rng != nil {
			factor += rng.Float64()
		}
		delay *= factor
	}
	return time.Duration(delay)
}
