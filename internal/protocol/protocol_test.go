package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func chanMsgV1(slot byte, ts uint32, text string) []byte {
	p := []byte{RespChannelMsgRecv, slot, 0, TxtTypePlain}
	p = binary.LittleEndian.AppendUint32(p, ts)
	return append(p, text...)
}

func chanMsgV3(slot byte, snr int8, ts uint32, text string) []byte {
	p := []byte{RespChannelMsgRecvV3, byte(snr), 0, 0, slot, 0, TxtTypePlain}
	p = binary.LittleEndian.AppendUint32(p, ts)
	return append(p, text...)
}

func TestParseChannelMessageVariants(t *testing.T) {
	tests := []struct {
		name       string
		payload    []byte
		wantSlot   int
		wantSender string
		wantText   string
	}{
		{name: "v1 layout", payload: chanMsgV1(2, 1700000000, "USER1: wx London"), wantSlot: 2, wantSender: "USER1", wantText: "wx London"},
		{name: "v3 layout", payload: chanMsgV3(2, -12, 1700000000, "USER1: wx London"), wantSlot: 2, wantSender: "USER1", wantText: "wx London"},
		{name: "push inline", payload: append([]byte{PushChanMsg, 5, 0, TxtTypePlain, 0, 0, 0, 0}, "op: hello"...), wantSlot: 5, wantSender: "op", wantText: "hello"},
		{name: "no sender prefix", payload: chanMsgV1(0, 0, "wx leeds"), wantSlot: 0, wantSender: "unknown", wantText: "wx leeds"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ParseChannelMessage(tc.payload)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if msg.Slot != tc.wantSlot {
				t.Fatalf("slot: got %d want %d", msg.Slot, tc.wantSlot)
			}
			if msg.Sender != tc.wantSender {
				t.Fatalf("sender: got %q want %q", msg.Sender, tc.wantSender)
			}
			if msg.Text != tc.wantText {
				t.Fatalf("text: got %q want %q", msg.Text, tc.wantText)
			}
		})
	}
}

// The v3 layout shifts the text start by exactly three bytes. A wrong fixed
// offset drops the first character of every message, so both variants are
// checked against text with a meaningful head character.
func TestParseChannelMessageKeepsLeadingCharacter(t *testing.T) {
	for _, payload := range [][]byte{
		chanMsgV1(1, 0, "op: wx leeds"),
		chanMsgV3(1, 4, 0, "op: wx leeds"),
	} {
		msg, err := ParseChannelMessage(payload)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if msg.Text != "wx leeds" {
			t.Fatalf("leading character lost: got %q", msg.Text)
		}
	}
}

func TestParseChannelMessageTruncated(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "v1 short header", payload: []byte{RespChannelMsgRecv, 1, 0}},
		{name: "v3 short header", payload: []byte{RespChannelMsgRecvV3, 1, 0, 0, 2, 0, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseChannelMessage(tc.payload); !errors.Is(err, ErrTruncated) {
				t.Fatalf("expected ErrTruncated, got %v", err)
			}
		})
	}
}

func TestParseChannelMessageWrongCode(t *testing.T) {
	if _, err := ParseChannelMessage([]byte{RespCurrTime, 0, 0, 0, 0}); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
}

func TestAppStartLayout(t *testing.T) {
	got := AppStart("MCWB")
	want := append([]byte{CmdAppStart, AppVersion}, "      MCWB"...)
	if !bytes.Equal(got, want) {
		t.Fatalf("app start payload: got %x want %x", got, want)
	}
}

func TestChannelTextLayout(t *testing.T) {
	at := time.Unix(1700000000, 0)
	got, err := ChannelText(3, at, "reply")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got[0] != CmdSendChannelTextMsg || got[1] != TxtTypePlain || got[2] != 3 {
		t.Fatalf("header bytes: %x", got[:3])
	}
	if ts := binary.LittleEndian.Uint32(got[3:7]); ts != 1700000000 {
		t.Fatalf("timestamp: got %d", ts)
	}
	if string(got[7:]) != "reply" {
		t.Fatalf("text: %q", string(got[7:]))
	}
}

func TestChannelTextRejectsBadSlot(t *testing.T) {
	for _, slot := range []int{-1, MaxChannelSlot + 1} {
		if _, err := ChannelText(slot, time.Now(), "x"); !errors.Is(err, ErrInvalidSlot) {
			t.Fatalf("slot %d: expected ErrInvalidSlot, got %v", slot, err)
		}
	}
}

func TestTimeResponseLayout(t *testing.T) {
	got := TimeResponse(time.Unix(1700000000, 0))
	if got[0] != RespCurrTime {
		t.Fatalf("code: 0x%02x", got[0])
	}
	if ts := binary.LittleEndian.Uint32(got[1:5]); ts != 1700000000 {
		t.Fatalf("timestamp: got %d", ts)
	}
}

func TestParseSelfInfoNodeName(t *testing.T) {
	payload := make([]byte, selfInfoNameOffset)
	payload[0] = RespSelfInfo
	payload = append(payload, "WX BoT\x00\x00"...)
	info, err := ParseSelfInfo(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.NodeName != "WX BoT" {
		t.Fatalf("node name: %q", info.NodeName)
	}
}

func TestParseDeviceInfoStrings(t *testing.T) {
	payload := make([]byte, 80)
	payload[0] = RespDeviceInfo
	payload[1] = FirmwareVer
	payload[2] = 100
	copy(payload[7:19], "19 Nov 2024")
	copy(payload[19:59], "Heltec V2")
	copy(payload[59:79], "v1.13.0")
	info, err := ParseDeviceInfo(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.FirmwareVerCode != FirmwareVer {
		t.Fatalf("fw code: %d", info.FirmwareVerCode)
	}
	if info.MaxContacts != 200 {
		t.Fatalf("max contacts: %d", info.MaxContacts)
	}
	if info.Manufacturer != "Heltec V2" || info.FirmwareVersion != "v1.13.0" {
		t.Fatalf("strings: %+v", info)
	}
}
