package core

import "strconv"

// DebugWriter is a function type for writing diagnostic messages
type DebugWriter func(string)

// TimingEvent captures a motion event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Clock     uint32 // Clock.Micros at event
	Position  int32  // Motor position at event
	Value     int32  // Context-dependent value
}

// Event type codes
const (
	EvtStateChange = 1 // Value = new SystemState
	EvtLimit       = 2 // Value = limit index
	EvtHomed       = 3 // Value = position before reset
	EvtBackOffDone = 4 // Value = steps driven
	EvtReject      = 5 // Value = state at rejection
	EvtFault       = 6 // Value = steps travelled
	EvtMoveStart   = 7 // Value = target position
)

// TimingRingSize is the number of events kept for post-mortem
const TimingRingSize = 32

// EventRing is a fixed-size ring of the most recent motion events.
// Recording never allocates and never blocks.
type EventRing struct {
	events [TimingRingSize]TimingEvent
	head   uint8 // Next write position
}

// Record captures an event, overwriting the oldest one when full
func (r *EventRing) Record(eventType uint8, clock uint32, position, value int32) {
	idx := r.head
	r.events[idx] = TimingEvent{
		EventType: eventType,
		Clock:     clock,
		Position:  position,
		Value:     value,
	}
	r.head = (idx + 1) % TimingRingSize
}

// Events returns the recorded events from oldest to newest
func (r *EventRing) Events() []TimingEvent {
	out := make([]TimingEvent, 0, TimingRingSize)
	start := r.head
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := r.events[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// Clear empties the ring
func (r *EventRing) Clear() {
	for i := range r.events {
		r.events[i] = TimingEvent{}
	}
	r.head = 0
}

// Dump writes the ring, oldest first
func (r *EventRing) Dump(w DebugWriter) {
	if w == nil {
		return
	}
	w("[TRACE] === Event Ring Dump ===")
	for _, evt := range r.Events() {
		w("[TRACE] " + eventName(evt) +
			" clock=" + strconv.FormatUint(uint64(evt.Clock), 10) +
			" pos=" + strconv.Itoa(int(evt.Position)) +
			" v=" + eventValue(evt))
	}
	w("[TRACE] === End Dump ===")
}

func eventName(evt TimingEvent) string {
	switch evt.EventType {
	case EvtStateChange:
		return "STATE"
	case EvtLimit:
		return "LIMIT"
	case EvtHomed:
		return "HOMED"
	case EvtBackOffDone:
		return "BACKOFF_DONE"
	case EvtReject:
		return "REJECT"
	case EvtFault:
		return "FAULT!"
	case EvtMoveStart:
		return "MOVE"
	default:
		return "UNKNOWN"
	}
}

func eventValue(evt TimingEvent) string {
	switch evt.EventType {
	case EvtStateChange, EvtReject:
		return SystemState(evt.Value).String()
	}
	return strconv.Itoa(int(evt.Value))
}
