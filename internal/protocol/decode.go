package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Channel message fixed header sizes. The v3 layout inserts a signal
// quality byte and two reserved bytes ahead of the channel field, shifting
// every later field by exactly three bytes.
const (
	chanMsgV1HeaderLen = 8  // code(1) channel(1) path_len(1) txt_type(1) ts(4)
	chanMsgV3HeaderLen = 11 // code(1) snr(1) reserved(2) channel(1) path_len(1) txt_type(1) ts(4)
)

// ChannelMessage is a decoded inbound channel text frame.
type ChannelMessage struct {
	Slot      int
	SNR       int8 // v3 frames only; zero otherwise
	Timestamp time.Time
	Sender    string
	Text      string
}

// ParseChannelMessage decodes both channel message layouts. The payload's
// declared code selects the fixed field offsets; RespChannelMsgRecv and
// PushChanMsg share the v1 layout, RespChannelMsgRecvV3 carries the extra
// signal quality fields.
func ParseChannelMessage(payload []byte) (ChannelMessage, error) {
	if len(payload) == 0 {
		return ChannelMessage{}, ErrTruncated
	}

	var (
		msg       ChannelMessage
		headerLen int
		slotAt    int
		tsAt      int
	)
	switch payload[0] {
	case RespChannelMsgRecv, PushChanMsg:
		headerLen, slotAt, tsAt = chanMsgV1HeaderLen, 1, 4
	case RespChannelMsgRecvV3:
		headerLen, slotAt, tsAt = chanMsgV3HeaderLen, 4, 7
		if len(payload) > 1 {
			msg.SNR = int8(payload[1])
		}
	default:
		return ChannelMessage{}, fmt.Errorf("%w: 0x%02x", ErrCodeMismatch, payload[0])
	}

	if len(payload) < headerLen {
		return ChannelMessage{}, fmt.Errorf("%w: channel message needs %d header bytes, have %d",
			ErrTruncated, headerLen, len(payload))
	}

	msg.Slot = int(payload[slotAt])
	msg.Timestamp = time.Unix(int64(binary.LittleEndian.Uint32(payload[tsAt:tsAt+4])), 0)
	msg.Sender, msg.Text = splitSender(string(payload[headerLen:]))
	return msg, nil
}

// splitSender separates the "Name: text" prefix the radio prepends to
// channel messages.
func splitSender(raw string) (sender, text string) {
	if i := strings.Index(raw, ": "); i > 0 {
		return raw[:i], raw[i+2:]
	}
	return "unknown", raw
}

// SelfInfo is the radio's answer to CmdAppStart.
type SelfInfo struct {
	NodeName string
}

const selfInfoNameOffset = 56

// ParseSelfInfo decodes the handshake acknowledgment.
func ParseSelfInfo(payload []byte) (SelfInfo, error) {
	if len(payload) == 0 || payload[0] != RespSelfInfo {
		return SelfInfo{}, ErrCodeMismatch
	}
	if len(payload) < selfInfoNameOffset {
		return SelfInfo{}, fmt.Errorf("%w: self info needs %d bytes, have %d",
			ErrTruncated, selfInfoNameOffset, len(payload))
	}
	return SelfInfo{NodeName: trimFixed(payload[selfInfoNameOffset:])}, nil
}

// DeviceInfo is the radio's answer to CmdDeviceQuery.
type DeviceInfo struct {
	FirmwareVerCode byte
	MaxContacts     int
	BuildDate       string
	Manufacturer    string
	FirmwareVersion string
}

// ParseDeviceInfo decodes the firmware probe response. Only the fixed
// string block present in firmware v9 builds is read; shorter payloads
// still yield the version code.
func ParseDeviceInfo(payload []byte) (DeviceInfo, error) {
	if len(payload) == 0 || payload[0] != RespDeviceInfo {
		return DeviceInfo{}, ErrCodeMismatch
	}
	info := DeviceInfo{}
	if len(payload) > 1 {
		info.FirmwareVerCode = payload[1]
	}
	if len(payload) > 2 {
		info.MaxContacts = int(payload[2]) * 2
	}
	if len(payload) >= 80 {
		info.BuildDate = trimFixed(payload[7:19])
		info.Manufacturer = trimFixed(payload[19:59])
		info.FirmwareVersion = trimFixed(payload[59:79])
	}
	return info, nil
}

func trimFixed(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
