// Package channel owns the mapping between human-readable channel labels
// and the radio's fixed bank of eight numeric channel slots.
//
// The mapping is strictly local to this process. Two radios that both call
// a channel "weather" may keep it in different slots, so a slot number
// learned from an inbound frame is the only reply target that is safe to
// use; translating slot -> label -> slot through a local Map is not.
package channel

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hostyorkshire/MCWB/internal/protocol"
)

// Map assigns labels to slots 1..7 in first-use order. Slot 0 is the
// unnamed public channel and never takes a label. Assignments are never
// released for the life of the process.
type Map struct {
	mu      sync.RWMutex
	forward map[string]int
	inverse map[int]string
	next    int
}

func NewMap() *Map {
	return &Map{
		forward: make(map[string]int),
		inverse: make(map[int]string),
		next:    1,
	}
}

// SlotFor returns the slot for label, assigning the next free slot on
// first use. An empty label means the public channel, slot 0. Once slots
// 1..7 are all taken, further distinct labels fail with
// protocol.ErrChannelCapacity rather than overwriting an existing
// assignment.
func (m *Map) SlotFor(label string) (int, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return protocol.DefaultChannelSlot, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if slot, ok := m.forward[label]; ok {
		return slot, nil
	}
	if m.next > protocol.MaxChannelSlot {
		return 0, fmt.Errorf("%w: %q would be label %d of %d",
			protocol.ErrChannelCapacity, label, len(m.forward)+1, protocol.MaxChannelSlot)
	}
	slot := m.next
	m.next++
	m.forward[label] = slot
	m.inverse[slot] = label
	return slot, nil
}

// LabelFor returns the label assigned to slot, if any. Slot 0 and slots
// never assigned a label report false.
func (m *Map) LabelFor(slot int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	label, ok := m.inverse[slot]
	return label, ok
}

// Len reports how many labels are assigned.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.forward)
}

// Snapshot copies the current label assignments.
func (m *Map) Snapshot() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.forward))
	for label, slot := range m.forward {
		out[label] = slot
	}
	return out
}
