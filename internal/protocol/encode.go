package protocol

import (
	"encoding/binary"
	"time"
)

// appStartReserved pads CmdAppStart between the version byte and the app
// name, per the companion radio contract.
const appStartReserved = "      "

// AppStart builds the session-start payload: code, protocol version, six
// reserved bytes, then the application name.
func AppStart(appName string) []byte {
	buf := make([]byte, 0, 2+len(appStartReserved)+len(appName))
	buf = append(buf, CmdAppStart, AppVersion)
	buf = append(buf, appStartReserved...)
	buf = append(buf, appName...)
	return buf
}

// DeviceQuery builds the firmware probe payload.
func DeviceQuery() []byte {
	return []byte{CmdDeviceQuery, FirmwareVer}
}

// ChannelText builds a channel text message payload for the given slot.
// Layout: code(1) txt_type(1) channel(1) timestamp(u32 LE) text.
func ChannelText(slot int, at time.Time, text string) ([]byte, error) {
	if slot < 0 || slot > MaxChannelSlot {
		return nil, ErrInvalidSlot
	}
	buf := make([]byte, 7, 7+len(text))
	buf[0] = CmdSendChannelTextMsg
	buf[1] = TxtTypePlain
	buf[2] = byte(slot)
	binary.LittleEndian.PutUint32(buf[3:7], uint32(at.Unix()))
	return append(buf, text...), nil
}

// TimeResponse builds the reply to a device time request.
func TimeResponse(at time.Time) []byte {
	buf := make([]byte, 5)
	buf[0] = RespCurrTime
	binary.LittleEndian.PutUint32(buf[1:5], uint32(at.Unix()))
	return buf
}

// SetTime builds the RTC sync payload.
func SetTime(at time.Time) []byte {
	buf := make([]byte, 5)
	buf[0] = CmdSetDeviceTime
	binary.LittleEndian.PutUint32(buf[1:5], uint32(at.Unix()))
	return buf
}

// SyncNext builds the queue-drain payload. It must follow every outbound
// send so the radio releases queued inbound frames.
func SyncNext() []byte {
	return []byte{CmdSyncNextMessage}
}
