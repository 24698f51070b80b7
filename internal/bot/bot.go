// Package bot turns inbound channel messages into weather lookups and
// replies on the channel each request arrived on.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostyorkshire/MCWB/internal/bridge"
	"github.com/hostyorkshire/MCWB/internal/weather"
)

const (
	// DefaultAnnounceInterval matches the three-hour cadence the bot
	// has always advertised on.
	DefaultAnnounceInterval = 3 * time.Hour
	// DefaultAnnounceMessage is the periodic channel greeting.
	DefaultAnnounceMessage = "Hello this is the WX BoT. To get a weather update simply type WX and your location."

	lookupTimeout = 30 * time.Second
)

// commandPattern accepts "wx <location>" or "weather <location>",
// case-insensitive, and captures the location text.
var commandPattern = regexp.MustCompile(`(?i)^(?:wx|weather)\s+(.+)$`)

// Reporter produces a weather report for a free-text location.
type Reporter interface {
	Report(ctx context.Context, location string) (string, error)
}

// Sender is the outbound half of the radio link the bot needs.
type Sender interface {
	Send(content string, target bridge.Target) error
	LastSlot() int
}

// Config tunes filtering and announcements. The zero value answers on
// every channel and never announces.
type Config struct {
	// AllowedSlot restricts command handling to one channel slot when
	// non-nil. Messages on other slots are ignored entirely.
	AllowedSlot *int
	// Announce enables the periodic greeting.
	Announce         bool
	AnnounceInterval time.Duration
	AnnounceMessage  string
}

type Bot struct {
	cfg      Config
	sender   Sender
	reporter Reporter

	wg sync.WaitGroup
}

func New(cfg Config, sender Sender, reporter Reporter) *Bot {
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = DefaultAnnounceInterval
	}
	if cfg.AnnounceMessage == "" {
		cfg.AnnounceMessage = DefaultAnnounceMessage
	}
	return &Bot{cfg: cfg, sender: sender, reporter: reporter}
}

// ParseCommand extracts the location from a weather command, or
// reports false for any other text.
func ParseCommand(text string) (string, bool) {
	m := commandPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// HandleMessage is the bridge message handler. Lookups run on their
// own goroutine so a slow API call never stalls the serial reader.
func (b *Bot) HandleMessage(m bridge.Message) {
	if b.cfg.AllowedSlot != nil && m.ChannelSlot != *b.cfg.AllowedSlot {
		log.Debug().Int("slot", m.ChannelSlot).Int("allowed", *b.cfg.AllowedSlot).
			Msg("ignoring message outside configured channel")
		return
	}
	location, ok := ParseCommand(m.Content)
	if !ok {
		return
	}
	log.Info().Str("sender", m.Sender).Str("location", location).
		Int("slot", m.ChannelSlot).Msg("weather request")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.respond(location, m.ChannelSlot)
	}()
}

func (b *Bot) respond(location string, slot int) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	reply, err := b.reporter.Report(ctx, location)
	switch {
	case errors.Is(err, weather.ErrLocationNotFound):
		reply = fmt.Sprintf("Location not found: %s", location)
	case err != nil:
		log.Error().Err(err).Str("location", location).Msg("weather lookup failed")
		reply = fmt.Sprintf("Weather error: %v", err)
	}
	if err := b.sender.Send(reply, bridge.ToSlot(slot)); err != nil {
		log.Error().Err(err).Int("slot", slot).Msg("reply failed")
	}
}

// Run drives the announcement loop until ctx ends. The first
// announcement goes out immediately; later ones follow the interval.
// Announcements go to the channel that most recently carried traffic.
func (b *Bot) Run(ctx context.Context) {
	if !b.cfg.Announce {
		<-ctx.Done()
		b.wg.Wait()
		return
	}
	b.announce()
	ticker := time.NewTicker(b.cfg.AnnounceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return
		case <-ticker.C:
			b.announce()
		}
	}
}

func (b *Bot) announce() {
	slot := b.sender.LastSlot()
	if err := b.sender.Send(b.cfg.AnnounceMessage, bridge.ToSlot(slot)); err != nil {
		log.Warn().Err(err).Int("slot", slot).Msg("announcement failed")
		return
	}
	log.Info().Int("slot", slot).Msg("announcement sent")
}
