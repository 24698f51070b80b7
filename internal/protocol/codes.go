package protocol

// MeshCore companion radio binary protocol codes.
// Reference: MeshCore v1.13.0 companion radio firmware (ArduinoSerialInterface).

// Commands (host to radio). The first payload byte of a host frame.
const (
	CmdAppStart           byte = 0x01
	CmdSendTextMsg        byte = 0x02
	CmdSendChannelTextMsg byte = 0x03
	CmdGetDeviceTime      byte = 0x05
	CmdSetDeviceTime      byte = 0x06
	CmdSendSelfAdvert     byte = 0x07
	CmdSyncNextMessage    byte = 0x0A
	CmdGetBattAndStorage  byte = 0x14
	CmdDeviceQuery        byte = 0x16
	CmdGetChannel         byte = 0x1F
	CmdGetStats           byte = 0x38
)

// Responses (radio to host). The first payload byte of a radio frame.
const (
	RespOK               byte = 0x00
	RespErr              byte = 0x01
	RespSelfInfo         byte = 0x05
	RespSent             byte = 0x06
	RespChannelMsgRecv   byte = 0x08
	RespCurrTime         byte = 0x09
	RespNoMoreMessages   byte = 0x0A
	RespBattAndStorage   byte = 0x0C
	RespDeviceInfo       byte = 0x0D
	RespChannelMsgRecvV3 byte = 0x11
	RespChannelInfo      byte = 0x12
)

// Pushes (unsolicited, radio to host). High bit set distinguishes pushes
// from command responses.
const (
	PushSendConfirmed byte = 0x82
	PushMsgWaiting    byte = 0x83
	PushChanMsg       byte = 0x88 // inline channel message, v1 layout
	PushNewAdvert     byte = 0x8A
)

// Channel slots. The radio exposes a fixed bank of eight numeric channels;
// slot 0 is the unnamed public channel.
const (
	DefaultChannelSlot = 0
	MaxChannelSlot     = 7
)

const (
	// FirmwareVer is the companion protocol version sent with CmdDeviceQuery.
	FirmwareVer byte = 9
	// AppVersion is the protocol version tag sent with CmdAppStart.
	AppVersion byte = 3
	// TxtTypePlain is the text type byte for plain channel messages.
	TxtTypePlain byte = 0
)
