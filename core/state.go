package core

// SystemState is the controller state machine state
type SystemState uint8

const (
	StateIdle SystemState = iota
	StateHoming
	StateHomed
	StateMovingToTarget
	StateAtTarget
	StateReturningToOrigin
	StateAtOrigin
	StateError
)

func (s SystemState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateHoming:
		return "HOMING"
	case StateHomed:
		return "HOMED"
	case StateMovingToTarget:
		return "MOVING_TO_TARGET"
	case StateAtTarget:
		return "AT_TARGET"
	case StateReturningToOrigin:
		return "RETURNING_TO_ORIGIN"
	case StateAtOrigin:
		return "AT_ORIGIN"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Settled reports states from which new motion commands are accepted
// without a stop or re-home.
func (s SystemState) Settled() bool {
	return s == StateHomed || s == StateAtTarget || s == StateAtOrigin
}

// Moving reports states in which the motor is driven
func (s SystemState) Moving() bool {
	return s == StateHoming || s == StateMovingToTarget || s == StateReturningToOrigin
}
