// Package bridge turns the byte-oriented serial link to a MeshCore
// companion radio into dispatched application messages. It owns the
// single reader loop, the frame write discipline, and the reconnect
// supervisor; decoded frames route through one dispatcher into the
// session machine or the registered message handlers.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostyorkshire/MCWB/internal/channel"
	"github.com/hostyorkshire/MCWB/internal/observability"
	"github.com/hostyorkshire/MCWB/internal/protocol"
	"github.com/hostyorkshire/MCWB/internal/protocol/frame"
	"github.com/hostyorkshire/MCWB/internal/protocol/session"
	"github.com/hostyorkshire/MCWB/internal/transport"
)

var (
	ErrNotConnected = errors.New("bridge: not connected")
	ErrNotReady     = errors.New("bridge: session not ready")
)

// DialFunc opens the link to the radio. The default dials the configured
// serial port, falling back to USB port auto-detection.
type DialFunc func() (transport.Conn, error)

type Config struct {
	// Port is the serial device path. Empty means auto-detect.
	Port string
	Baud int

	Session   session.Config
	Limits    frame.Limits
	Reconnect session.BackoffConfig

	// Dial overrides the serial dialer; tests attach an in-memory pipe.
	Dial DialFunc
}

func DefaultConfig() Config {
	return Config{
		Baud:    transport.DefaultBaud,
		Session: session.DefaultConfig(),
		Limits:  frame.DefaultLimits(),
		Reconnect: session.BackoffConfig{
			InitialDelay: time.Second,
			Multiplier:   2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
	}
}

type Bridge struct {
	cfg      Config
	channels *channel.Map
	sess     *session.Session
	rng      *rand.Rand

	// writeMu serializes whole-frame writes and guards conn; sendMu
	// keeps each application send paired with its queue drain before the
	// next send is admitted.
	writeMu sync.Mutex
	sendMu  sync.Mutex
	conn    transport.Conn

	handlerMu sync.RWMutex
	handlers  []Handler

	infoMu     sync.Mutex
	deviceInfo protocol.DeviceInfo

	lastSlot   atomic.Int32
	readerDone chan struct{}
	done       chan struct{}
	closed     atomic.Bool
	wg         sync.WaitGroup
}

func New(cfg Config) *Bridge {
	def := DefaultConfig()
	if cfg.Baud <= 0 {
		cfg.Baud = def.Baud
	}
	if cfg.Limits.MaxPayloadBytes <= 0 {
		cfg.Limits = def.Limits
	}
	if cfg.Reconnect.InitialDelay <= 0 {
		cfg.Reconnect = def.Reconnect
	}

	b := &Bridge{
		cfg:      cfg,
		channels: channel.NewMap(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		done:     make(chan struct{}),
	}
	b.sess = session.New(cfg.Session, b.writeFrame)
	if b.cfg.Dial == nil {
		b.cfg.Dial = b.dialSerial
	}
	return b
}

// OnMessage registers a handler for inbound channel messages. Handlers
// only fire once the session is Ready.
func (b *Bridge) OnMessage(fn Handler) {
	b.handlerMu.Lock()
	b.handlers = append(b.handlers, fn)
	b.handlerMu.Unlock()
}

// Channels exposes the local label map.
func (b *Bridge) Channels() *channel.Map { return b.channels }

// SessionState reports the current session position.
func (b *Bridge) SessionState() session.State { return b.sess.State() }

// NodeName reports the radio's node name once handshaken.
func (b *Bridge) NodeName() string { return b.sess.NodeName() }

// DeviceInfo reports the firmware probe result, zero until the radio
// answers the device query.
func (b *Bridge) DeviceInfo() protocol.DeviceInfo {
	b.infoMu.Lock()
	defer b.infoMu.Unlock()
	return b.deviceInfo
}

// LastSlot is the slot of the most recent inbound message, slot 0 before
// any traffic. Periodic announcements follow it.
func (b *Bridge) LastSlot() int { return int(b.lastSlot.Load()) }

// Start connects, handshakes, and begins reading. The first connection
// failure is returned to the caller; later transport losses reconnect
// with backoff in the background.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.connect(ctx); err != nil {
		return err
	}
	b.wg.Add(1)
	go b.supervise(ctx)
	return nil
}

// Close tears the link down and waits for the reader and supervisor to
// exit. Closing the transport handle is what unblocks the reader.
func (b *Bridge) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	close(b.done)
	b.writeMu.Lock()
	conn := b.conn
	b.conn = nil
	b.writeMu.Unlock()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	b.wg.Wait()
	return err
}

// Send transmits content on the resolved channel slot, then issues the
// mandatory queue drain. Omitting the drain stalls the radio session
// without any error, so the pair is atomic with respect to other sends.
func (b *Bridge) Send(content string, target Target) error {
	if !b.sess.Ready() {
		return ErrNotReady
	}
	slot, err := b.resolveTarget(target)
	if err != nil {
		return err
	}
	payload, err := protocol.ChannelText(slot, time.Now(), content)
	if err != nil {
		return err
	}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	if err := b.writeFrame(payload); err != nil {
		return err
	}
	observability.RecordMessageSent(slot)
	log.Debug().Int("slot", slot).Int("len", len(content)).Msg("channel message sent")
	return b.sess.DrainQueue()
}

func (b *Bridge) resolveTarget(target Target) (int, error) {
	if target.Slot != nil {
		slot := *target.Slot
		if slot < 0 || slot > protocol.MaxChannelSlot {
			return 0, fmt.Errorf("%w: %d", protocol.ErrInvalidSlot, slot)
		}
		return slot, nil
	}
	return b.channels.SlotFor(target.Label)
}

// writeFrame is the single write path: one lock, one whole frame.
func (b *Bridge) writeFrame(payload []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	return frame.WriteFrame(b.conn, payload, b.cfg.Limits)
}

func (b *Bridge) dialSerial() (transport.Conn, error) {
	if b.cfg.Port != "" {
		return transport.OpenSerial(transport.SerialConfig{Port: b.cfg.Port, Baud: b.cfg.Baud})
	}
	ports, err := transport.DetectPorts()
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, port := range ports {
		conn, err := transport.OpenSerial(transport.SerialConfig{Port: port, Baud: b.cfg.Baud})
		if err == nil {
			log.Info().Str("port", port).Msg("auto-detected serial port")
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (b *Bridge) connect(ctx context.Context) error {
	conn, err := b.cfg.Dial()
	if err != nil {
		return err
	}
	// Close may have run while the dial was in flight; it cannot see a
	// connection that is not installed yet, so refuse it here.
	if b.closed.Load() {
		conn.Close()
		return transport.ErrClosed
	}

	readerDone := make(chan struct{})
	b.writeMu.Lock()
	b.conn = conn
	b.readerDone = readerDone
	b.writeMu.Unlock()

	b.wg.Add(1)
	go b.readLoop(conn, readerDone)

	// Probe the firmware before the handshake; the device-info answer is
	// picked up by the dispatcher whenever it arrives.
	if err := b.writeFrame(protocol.DeviceQuery()); err != nil {
		b.teardownConn(conn, readerDone)
		return err
	}

	if err := b.sess.Handshake(ctx); err != nil {
		b.teardownConn(conn, readerDone)
		return err
	}

	if err := b.sess.SyncClock(); err != nil {
		log.Warn().Err(err).Msg("clock sync failed")
	}
	// Drain anything queued while this process was offline.
	return b.sess.DrainQueue()
}

func (b *Bridge) teardownConn(conn transport.Conn, readerDone chan struct{}) {
	conn.Close()
	<-readerDone
	b.writeMu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.writeMu.Unlock()
}

// supervise reconnects after transport loss, backing off between
// attempts. It never gives up; the radio side returning is the only
// recovery for a long outage.
func (b *Bridge) supervise(ctx context.Context) {
	defer b.wg.Done()
	for {
		b.writeMu.Lock()
		readerDone := b.readerDone
		b.writeMu.Unlock()

		select {
		case <-b.done:
			return
		case <-ctx.Done():
			return
		case <-readerDone:
		}

		b.sess.Disconnect()
		if b.closed.Load() {
			return
		}
		log.Warn().Msg("transport lost, reconnecting")

		for attempt := 1; ; attempt++ {
			observability.RecordReconnect()
			delay := session.NextBackoffDelay(b.cfg.Reconnect, attempt, b.rng)
			select {
			case <-b.done:
				return
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if err := b.connect(ctx); err != nil {
				log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
				continue
			}
			// Close may have raced the reconnect and harvested the old
			// connection; the new one is ours to tear down, or its reader
			// would outlive the bridge.
			if b.closed.Load() {
				b.writeMu.Lock()
				conn, readerDone := b.conn, b.readerDone
				b.writeMu.Unlock()
				if conn != nil {
					b.teardownConn(conn, readerDone)
				}
				return
			}
			log.Info().Int("attempt", attempt).Msg("reconnected")
			break
		}
	}
}

// readLoop is the only reader of the serial handle. All decode and
// dispatch work happens synchronously here; frames are serialized by the
// physical link, so no further scheduling is needed.
func (b *Bridge) readLoop(conn transport.Conn, done chan struct{}) {
	defer b.wg.Done()
	defer close(done)
	for {
		payload, err := frame.ReadFrame(conn, b.cfg.Limits)
		if err == nil {
			observability.RecordFrameDecoded()
			b.dispatch(payload)
			continue
		}
		switch {
		case errors.Is(err, frame.ErrNotAFrame):
			// Expected link noise between frames. Anything louder than
			// trace here misleads operators into thinking commands were
			// rejected.
			observability.RecordNoiseBytes(1)
			log.Trace().Err(err).Msg("non-frame byte discarded")
		case errors.Is(err, frame.ErrEmptyFrame),
			errors.Is(err, frame.ErrShortHeader),
			errors.Is(err, frame.ErrPayloadTooLarge):
			observability.RecordFramingError()
			log.Debug().Err(err).Msg("frame dropped, resynchronizing")
		default:
			if !b.closed.Load() {
				log.Warn().Err(err).Msg("serial link lost")
			}
			return
		}
	}
}
