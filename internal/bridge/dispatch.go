package bridge

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostyorkshire/MCWB/internal/observability"
	"github.com/hostyorkshire/MCWB/internal/protocol"
)

// selfInfoMinLen disambiguates payload code 0x05, which the protocol uses
// both for the radio's self-info response and for its device time
// request. Self-info carries a fixed block of at least 56 bytes; a time
// request is a bare code byte.
const selfInfoMinLen = 56

// dispatch routes one decoded frame payload. It runs on the reader
// goroutine; everything here must stay prompt, the time-request reply in
// particular.
func (b *Bridge) dispatch(payload []byte) {
	if len(payload) == 0 {
		return
	}
	code := payload[0]

	switch code {
	case protocol.RespOK:
		// NOP / keepalive.

	case protocol.RespErr:
		// 0x01 doubles as the session-start command code, but on the
		// radio-to-host path it is always the error response.
		log.Debug().Msg("radio reported command error")

	case protocol.RespSelfInfo: // == CmdGetDeviceTime
		if len(payload) >= selfInfoMinLen {
			info, err := protocol.ParseSelfInfo(payload)
			if err != nil {
				log.Debug().Err(err).Msg("bad self info frame")
				return
			}
			b.sess.HandleSelfInfo(info)
			return
		}
		// Device time request: the radio stalls until answered.
		if err := b.sess.HandleTimeRequest(); err != nil {
			log.Warn().Err(err).Msg("time reply failed")
		}

	case protocol.RespDeviceInfo:
		info, err := protocol.ParseDeviceInfo(payload)
		if err != nil {
			log.Debug().Err(err).Msg("bad device info frame")
			return
		}
		b.infoMu.Lock()
		b.deviceInfo = info
		b.infoMu.Unlock()
		log.Info().Str("fw", info.FirmwareVersion).Str("mfr", info.Manufacturer).
			Msg("device info")

	case protocol.RespSent, protocol.PushSendConfirmed:
		// Send confirmation bookkeeping only; never surfaced as noise.
		log.Debug().Uint8("code", code).Msg("send confirmed")

	case protocol.PushMsgWaiting:
		if err := b.sess.DrainQueue(); err != nil {
			log.Warn().Err(err).Msg("queue drain failed")
		}

	case protocol.RespChannelMsgRecv, protocol.RespChannelMsgRecvV3, protocol.PushChanMsg:
		b.dispatchChannelMessage(payload)

	case protocol.RespNoMoreMessages:
		// Queue empty: steady-state idle.

	case protocol.RespCurrTime:
		log.Debug().Msg("device time response")

	default:
		log.Trace().Uint8("code", code).Int("len", len(payload)).Msg("unhandled frame code")
	}
}

func (b *Bridge) dispatchChannelMessage(payload []byte) {
	msg, err := protocol.ParseChannelMessage(payload)
	if err != nil {
		log.Debug().Err(err).Msg("bad channel message frame")
		return
	}

	observability.RecordMessageReceived(msg.Slot)
	b.lastSlot.Store(int32(msg.Slot))

	if b.sess.Ready() {
		label, _ := b.channels.LabelFor(msg.Slot)
		out := Message{
			Sender:       msg.Sender,
			Content:      msg.Text,
			ChannelSlot:  msg.Slot,
			ChannelLabel: label,
			SNR:          msg.SNR,
			ReceivedAt:   time.Now(),
		}
		log.Debug().Int("slot", out.ChannelSlot).Str("sender", out.Sender).
			Int("len", len(out.Content)).Msg("channel message")
		b.deliver(out)
	}

	// Ask for the next queued message regardless; the radio holds its
	// queue until drained.
	if err := b.sess.DrainQueue(); err != nil {
		log.Warn().Err(err).Msg("queue drain failed")
	}
}

func (b *Bridge) deliver(msg Message) {
	b.handlerMu.RLock()
	handlers := b.handlers
	b.handlerMu.RUnlock()
	for _, fn := range handlers {
		fn(msg)
	}
}
