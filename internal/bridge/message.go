package bridge

import "time"

// Message is one inbound channel text message, translated for the
// application layer.
type Message struct {
	Sender  string
	Content string
	// ChannelSlot is the numeric slot the message arrived on. It is the
	// only reply target that is meaningful across devices; see
	// internal/channel for why labels are not.
	ChannelSlot int
	// ChannelLabel is the locally assigned label for the slot, empty when
	// the slot has none. Informational only.
	ChannelLabel string
	SNR          int8
	ReceivedAt   time.Time
}

// Handler receives inbound messages. Handlers run on the reader
// goroutine; slow work delays frame processing.
type Handler func(Message)

// Target selects the outbound channel for Send. An explicit Slot always
// wins over Label: a slot learned from an inbound frame must never be
// round-tripped through the local label map, which other devices do not
// share.
type Target struct {
	Slot  *int
	Label string
}

// ToSlot targets an explicit numeric slot, typically the slot an inbound
// message arrived on.
func ToSlot(slot int) Target {
	return Target{Slot: &slot}
}

// ToLabel targets a named channel via the local label map, assigning a
// slot on first use.
func ToLabel(label string) Target {
	return Target{Label: label}
}
