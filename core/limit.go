package core

import "strconv"

// ResponseKind is the corrective action attached to a limit
type ResponseKind uint8

const (
	ResponseNone ResponseKind = iota
	ResponseStop
	ResponseReverse
	ResponseBackOff
)

// Response describes what the controller does when a limit is reached
type Response struct {
	Kind     ResponseKind
	Distance int32 // Steps to back off (ResponseBackOff only)
}

// NoAction reports the limit without acting on it
func NoAction() Response { return Response{Kind: ResponseNone} }

// StopMotion disables the motor
func StopMotion() Response { return Response{Kind: ResponseStop} }

// ReverseMotion flips the direction and restarts the profile slowly
func ReverseMotion() Response { return Response{Kind: ResponseReverse} }

// BackOff drives distance steps away from the limit, then resumes
func BackOff(distance int32) Response {
	return Response{Kind: ResponseBackOff, Distance: distance}
}

func (r Response) String() string {
	switch r.Kind {
	case ResponseStop:
		return "STOP"
	case ResponseReverse:
		return "REVERSE"
	case ResponseBackOff:
		return "BACK_OFF(" + strconv.Itoa(int(r.Distance)) + ")"
	default:
		return "NONE"
	}
}

// Limit decides whether a boundary has been reached
type Limit interface {
	Name() string
	IsReached(position int32, dir Direction) bool
	Response() Response
}

// Resetter is implemented by limits that carry internal state
type Resetter interface {
	Reset()
}

// Referencer is implemented by limits measured from a reference position
type Referencer interface {
	SetReference(position int32)
}

type limitBase struct {
	name     string
	response Response
}

func (l *limitBase) Name() string       { return l.name }
func (l *limitBase) Response() Response { return l.response }

// PositionLimit triggers at a fixed position threshold
type PositionLimit struct {
	limitBase
	threshold int32
	direction Direction // Required travel direction; Stopped = either
}

// NewPositionLimit creates a threshold limit. dir filters the travel
// direction it applies to; Stopped applies it to both.
func NewPositionLimit(name string, threshold int32, dir Direction, r Response) *PositionLimit {
	return &PositionLimit{
		limitBase: limitBase{name: name, response: r},
		threshold: threshold,
		direction: dir,
	}
}

// IsReached reports forward travel at or past the threshold, or reverse travel at or below it
func (l *PositionLimit) IsReached(position int32, dir Direction) bool {
	if l.direction != Stopped && dir != l.direction {
		return false
	}
	switch dir {
	case Forward:
		return position >= l.threshold
	case Reverse:
		return position <= l.threshold
	}
	return false
}

// Threshold returns the trigger position
func (l *PositionLimit) Threshold() int32 {
	return l.threshold
}

// SensorLimit triggers while a hardware sensor is active
type SensorLimit struct {
	limitBase
	sensor    Sensor
	direction Direction
}

// NewSensorLimit creates a sensor limit. dir filters the travel direction
// it applies to; Stopped applies it to both.
func NewSensorLimit(name string, sensor Sensor, dir Direction, r Response) *SensorLimit {
	return &SensorLimit{
		limitBase: limitBase{name: name, response: r},
		sensor:    sensor,
		direction: dir,
	}
}

// IsReached samples the sensor
func (l *SensorLimit) IsReached(position int32, dir Direction) bool {
	if l.direction != Stopped && dir != l.direction {
		return false
	}
	return l.sensor.Active()
}

// Reset clears any oversampling state of the sensor
func (l *SensorLimit) Reset() {
	if r, ok := l.sensor.(Resetter); ok {
		r.Reset()
	}
}

// DistanceLimit triggers after travelling maxDistance steps from a reference point.
// It is disarmed until SetReference is called.
type DistanceLimit struct {
	limitBase
	maxDistance int32
	reference   int32
	armed       bool
}

// NewDistanceLimit creates a disarmed cumulative distance limit
func NewDistanceLimit(name string, maxDistance int32, r Response) *DistanceLimit {
	return &DistanceLimit{
		limitBase:   limitBase{name: name, response: r},
		maxDistance: maxDistance,
	}
}

// IsReached reports |position - reference| >= maxDistance while armed
func (l *DistanceLimit) IsReached(position int32, dir Direction) bool {
	if !l.armed {
		return false
	}
	d := position - l.reference
	if d < 0 {
		d = -d
	}
	return d >= l.maxDistance
}

// SetReference arms the limit at position
func (l *DistanceLimit) SetReference(position int32) {
	l.reference = position
	l.armed = true
}

// Reset disarms the limit
func (l *DistanceLimit) Reset() {
	l.armed = false
	l.reference = 0
}

// Armed reports whether a reference has been set
func (l *DistanceLimit) Armed() bool {
	return l.armed
}
