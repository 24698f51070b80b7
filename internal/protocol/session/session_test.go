package session

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hostyorkshire/MCWB/internal/protocol"
)

type sendRecorder struct {
	mu       sync.Mutex
	payloads [][]byte
	onSend   func(payload []byte)
	err      error
}

func (r *sendRecorder) send(payload []byte) error {
	r.mu.Lock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	r.payloads = append(r.payloads, cp)
	cb := r.onSend
	err := r.err
	r.mu.Unlock()
	if cb != nil {
		cb(cp)
	}
	return err
}

func (r *sendRecorder) sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.payloads))
	copy(out, r.payloads)
	return out
}

func fastConfig() Config {
	return Config{
		AppName:              "MCWB",
		HandshakeTimeout:     50 * time.Millisecond,
		MaxHandshakeAttempts: 3,
		Backoff:              BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1.0},
	}
}

func selfInfoPayload(name string) protocol.SelfInfo {
	return protocol.SelfInfo{NodeName: name}
}

func TestHandshakeReachesReady(t *testing.T) {
	rec := &sendRecorder{}
	s := New(fastConfig(), rec.send)
	rec.onSend = func(payload []byte) {
		if payload[0] == protocol.CmdAppStart {
			go s.HandleSelfInfo(selfInfoPayload("WX BoT"))
		}
	}

	if err := s.Handshake(context.Background()); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("state: %v", s.State())
	}
	if s.NodeName() != "WX BoT" {
		t.Fatalf("node name: %q", s.NodeName())
	}

	sent := rec.sent()
	if len(sent) != 1 || sent[0][0] != protocol.CmdAppStart {
		t.Fatalf("expected one app-start frame, got %d", len(sent))
	}
	if string(sent[0][2:]) != "      MCWB" {
		t.Fatalf("app start tail: %q", string(sent[0][2:]))
	}
}

func TestHandshakeRetriesThenFails(t *testing.T) {
	rec := &sendRecorder{}
	s := New(fastConfig(), rec.send)

	err := s.Handshake(context.Background())
	if !errors.Is(err, protocol.ErrHandshakeTimeout) {
		t.Fatalf("expected ErrHandshakeTimeout, got %v", err)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state after failure: %v", s.State())
	}
	if got := len(rec.sent()); got != 3 {
		t.Fatalf("expected 3 app-start attempts, got %d", got)
	}
}

func TestHandshakeHonorsContextCancel(t *testing.T) {
	rec := &sendRecorder{}
	s := New(fastConfig(), rec.send)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Handshake(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHandleTimeRequestRepliesWithHostClock(t *testing.T) {
	rec := &sendRecorder{}
	s := New(fastConfig(), rec.send)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	if err := s.HandleTimeRequest(); err != nil {
		t.Fatalf("time request: %v", err)
	}
	sent := rec.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(sent))
	}
	if sent[0][0] != protocol.RespCurrTime {
		t.Fatalf("reply code: 0x%02x", sent[0][0])
	}
	if ts := binary.LittleEndian.Uint32(sent[0][1:5]); ts != 1700000000 {
		t.Fatalf("reply timestamp: %d", ts)
	}
}

func TestDrainQueueSendsSyncNext(t *testing.T) {
	rec := &sendRecorder{}
	s := New(fastConfig(), rec.send)

	if err := s.DrainQueue(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	sent := rec.sent()
	if len(sent) != 1 || len(sent[0]) != 1 || sent[0][0] != protocol.CmdSyncNextMessage {
		t.Fatalf("drain payload: %x", sent)
	}
}

func TestSendFailureSurfacesAndDisconnects(t *testing.T) {
	rec := &sendRecorder{err: errors.New("port gone")}
	s := New(fastConfig(), rec.send)

	if err := s.Handshake(context.Background()); err == nil {
		t.Fatal("expected error from failed send")
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state: %v", s.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateHandshaking, "handshaking"},
		{StateReady, "ready"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Fatalf("%d: got %q want %q", tc.state, got, tc.want)
		}
	}
}

func TestNextBackoffDelayGrowth(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2.0, MaxDelay: 500 * time.Millisecond}
	if d := NextBackoffDelay(cfg, 1, nil); d != 100*time.Millisecond {
		t.Fatalf("attempt 1: %v", d)
	}
	if d := NextBackoffDelay(cfg, 2, nil); d != 200*time.Millisecond {
		t.Fatalf("attempt 2: %v", d)
	}
	if d := NextBackoffDelay(cfg, 4, nil); d != 500*time.Millisecond {
		t.Fatalf("attempt 4 should cap at MaxDelay: %v", d)
	}
}
