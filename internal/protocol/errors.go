package protocol

import "errors"

var (
	ErrTruncated        = errors.New("protocol: truncated payload")
	ErrCodeMismatch     = errors.New("protocol: unexpected payload code")
	ErrChannelCapacity  = errors.New("protocol: all channel slots assigned")
	ErrInvalidSlot      = errors.New("protocol: channel slot out of range")
	ErrHandshakeTimeout = errors.New("protocol: no handshake acknowledgment")
)
