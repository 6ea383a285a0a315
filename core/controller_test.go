package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rig wires a controller to a virtual clock and recording GPIO. The homing
// sensor reports active at or below sensorAt.
type rig struct {
	clock    *fakeClock
	gpio     *fakeGPIO
	motor    *Motor
	profile  *MotionProfile
	limits   *LimitManager
	ctrl     *Controller
	sensorAt int32
	messages []string
}

func newRig(t *testing.T, cfg ControllerConfig, extra ...Limit) *rig {
	t.Helper()
	motor, gpio, clock := newTestMotor()
	r := &rig{
		clock:    clock,
		gpio:     gpio,
		motor:    motor,
		profile:  NewMotionProfile(100, 10, 4),
		limits:   NewLimitManager(),
		sensorAt: 0,
	}

	home := NewSensorLimit("home", sensorFunc(func() bool { return r.motor.Position() <= r.sensorAt }), Reverse, StopMotion())
	require.True(t, r.limits.Add(home))
	for _, l := range extra {
		require.True(t, r.limits.Add(l))
	}

	if cfg.HomingLimit == "" {
		cfg.HomingLimit = "home"
	}
	r.ctrl = NewController(motor, r.profile, r.limits, clock, cfg)
	r.ctrl.SetDebugWriter(func(msg string) { r.messages = append(r.messages, msg) })
	return r
}

// run advances virtual time and updates the controller until done reports
// true or the iteration budget is spent
func (r *rig) run(done func() bool, maxIter int) bool {
	for i := 0; i < maxIter; i++ {
		if done() {
			return true
		}
		r.clock.advance(25)
		r.ctrl.Update()
	}
	return done()
}

func (r *rig) runUntilState(s SystemState) bool {
	return r.run(func() bool { return r.ctrl.State() == s }, 500000)
}

func (r *rig) home(t *testing.T) {
	t.Helper()
	require.NoError(t, r.ctrl.StartHoming())
	require.True(t, r.runUntilState(StateHomed))
}

func (r *rig) hasEvent(eventType uint8) bool {
	for _, evt := range r.ctrl.Events().Events() {
		if evt.EventType == eventType {
			return true
		}
	}
	return false
}

func TestControllerStartsIdle(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200})
	assert.Equal(t, StateIdle, r.ctrl.State())
	assert.False(t, r.ctrl.Enabled())
	assert.Equal(t, int32(3200), r.ctrl.Target())
}

func TestControllerHoming(t *testing.T) {
	r := newRig(t, ControllerConfig{})
	r.motor.SetPosition(1000)
	r.sensorAt = 500

	require.NoError(t, r.ctrl.StartHoming())
	assert.Equal(t, StateHoming, r.ctrl.State())
	assert.True(t, r.ctrl.Enabled())
	assert.Equal(t, Reverse, r.ctrl.Direction())
	assert.Equal(t, uint32(1000), r.profile.CurrentInterval(), "homing starts at the slow interval")

	require.True(t, r.runUntilState(StateHomed))
	assert.Equal(t, int32(0), r.ctrl.Position())
	assert.False(t, r.ctrl.Enabled())
	assert.Equal(t, Stopped, r.ctrl.Direction())

	var homed *TimingEvent
	for _, evt := range r.ctrl.Events().Events() {
		if evt.EventType == EvtHomed {
			evt := evt
			homed = &evt
		}
	}
	require.NotNil(t, homed)
	assert.Equal(t, int32(500), homed.Value, "homing travelled 500 steps")
}

func TestControllerMoveToTargetAndReturn(t *testing.T) {
	r := newRig(t, ControllerConfig{})
	r.home(t)

	require.NoError(t, r.ctrl.SetTargetPosition(3200))
	require.NoError(t, r.ctrl.MoveToTarget())
	assert.Equal(t, StateMovingToTarget, r.ctrl.State())
	assert.Equal(t, Forward, r.ctrl.Direction())

	maxPos := int32(0)
	ok := r.run(func() bool {
		if p := r.ctrl.Position(); p > maxPos {
			maxPos = p
		}
		return r.ctrl.State() == StateAtTarget
	}, 500000)
	require.True(t, ok)
	assert.InDelta(t, 3200, r.ctrl.Position(), ArrivalTolerance)
	assert.LessOrEqual(t, maxPos, int32(3200+ArrivalTolerance), "no overshoot past the tolerance band")
	assert.False(t, r.ctrl.Enabled())

	require.NoError(t, r.ctrl.ReturnToOrigin())
	assert.Equal(t, StateReturningToOrigin, r.ctrl.State())
	require.True(t, r.runUntilState(StateAtOrigin))
	assert.InDelta(t, 0, r.ctrl.Position(), ArrivalTolerance)
	assert.False(t, r.ctrl.Enabled())

	require.NoError(t, r.ctrl.MoveToTarget(), "a target move is accepted from AT_ORIGIN")
}

func TestControllerArrivalIsIdempotent(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 200})
	r.home(t)
	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.runUntilState(StateAtTarget))

	pos := r.ctrl.Position()
	writes := len(r.gpio.writes)
	for i := 0; i < 1000; i++ {
		r.clock.advance(1000)
		r.ctrl.Update()
	}
	assert.Equal(t, pos, r.ctrl.Position())
	assert.Equal(t, StateAtTarget, r.ctrl.State())
	assert.Len(t, r.gpio.writes, writes)
}

func TestControllerStepWaitsForInterval(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 200})
	r.home(t)
	require.NoError(t, r.ctrl.MoveToTarget())

	r.ctrl.Update()
	assert.Equal(t, int32(0), r.ctrl.Position(), "no step before the interval elapsed")

	r.clock.advance(r.profile.CurrentInterval() - 1)
	r.ctrl.Update()
	assert.Equal(t, int32(0), r.ctrl.Position())

	r.clock.advance(1)
	r.ctrl.Update()
	assert.Equal(t, int32(1), r.ctrl.Position())

	r.clock.advance(100000)
	r.ctrl.Update()
	assert.Equal(t, int32(2), r.ctrl.Position(), "at most one step per update")
}

func TestControllerClockWraparound(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200})
	r.clock.now = 0xFFFFFFFF - 5000
	r.motor.SetPosition(300)

	r.home(t)
	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.runUntilState(StateAtTarget))
	assert.InDelta(t, 3200, r.ctrl.Position(), ArrivalTolerance)
	assert.Less(t, r.clock.now, uint32(0xFFFFFFFF-5000), "clock wrapped during the run")
}

func TestControllerSetTargetPosition(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200})

	tests := []struct {
		value   int32
		wantErr bool
	}{
		{50000, true},
		{0, true},
		{-5, true},
		{10000, true},
		{1, false},
		{9999, false},
		{1600, false},
	}

	want := r.ctrl.Target()
	for _, tt := range tests {
		err := r.ctrl.SetTargetPosition(tt.value)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrTargetOutOfRange)
		} else {
			require.NoError(t, err)
			want = tt.value
		}
		assert.Equal(t, want, r.ctrl.Target())
	}
}

func TestControllerStopWhileMoving(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200})
	r.home(t)
	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.run(func() bool { return r.ctrl.Position() >= 100 }, 500000))

	r.ctrl.Stop()
	assert.Equal(t, StateIdle, r.ctrl.State())
	assert.False(t, r.ctrl.Enabled())

	pos := r.ctrl.Position()
	r.clock.advance(100000)
	r.ctrl.Update()
	assert.Equal(t, pos, r.ctrl.Position())

	assert.ErrorIs(t, r.ctrl.MoveToTarget(), ErrCommandRejected)
	assert.ErrorIs(t, r.ctrl.ReturnToOrigin(), ErrCommandRejected)
	assert.NoError(t, r.ctrl.StartHoming())
}

func TestControllerStopReportsDisableFailure(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200})
	r.home(t)
	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.run(func() bool { return r.ctrl.Position() >= 10 }, 500000))

	r.gpio.failing[testEnablePin] = errors.New("driver fault")
	r.ctrl.Stop()
	assert.Equal(t, StateIdle, r.ctrl.State())
	assert.False(t, r.ctrl.Enabled())
	assert.Contains(t, strings.Join(r.messages, "\n"), "motor disable line: driver fault")

	pos := r.ctrl.Position()
	r.clock.advance(100000)
	r.ctrl.Update()
	assert.Equal(t, pos, r.ctrl.Position())
}

func TestControllerEnableFailureRejectsMotion(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200})
	r.home(t)

	lineErr := errors.New("driver fault")
	r.gpio.failing[testEnablePin] = lineErr
	assert.ErrorIs(t, r.ctrl.MoveToTarget(), lineErr)
	assert.Equal(t, StateHomed, r.ctrl.State())
	assert.False(t, r.ctrl.Enabled())
	assert.Contains(t, strings.Join(r.messages, "\n"), "motor enable line: driver fault")

	delete(r.gpio.failing, testEnablePin)
	require.NoError(t, r.ctrl.MoveToTarget())
	assert.Equal(t, StateMovingToTarget, r.ctrl.State())
}

func TestControllerStopKeepsSettledState(t *testing.T) {
	r := newRig(t, ControllerConfig{})
	r.home(t)

	r.ctrl.Stop()
	assert.Equal(t, StateHomed, r.ctrl.State())
	assert.False(t, r.ctrl.Enabled())
}

func TestControllerHomingTimeoutFault(t *testing.T) {
	r := newRig(t, ControllerConfig{MaxHomingSteps: 100})
	r.motor.SetPosition(1000)
	r.sensorAt = -1000000

	require.NoError(t, r.ctrl.StartHoming())
	require.True(t, r.runUntilState(StateError))
	assert.Equal(t, int32(900), r.ctrl.Position())
	assert.False(t, r.ctrl.Enabled())
	assert.True(t, r.hasEvent(EvtFault))

	r.ctrl.Stop()
	assert.Equal(t, StateError, r.ctrl.State(), "stop keeps the fault latched")

	assert.ErrorIs(t, r.ctrl.RunCycle(), ErrCommandRejected)
	r.sensorAt = 850
	require.NoError(t, r.ctrl.StartHoming())
	require.True(t, r.runUntilState(StateHomed))
	assert.Equal(t, int32(0), r.ctrl.Position())
}

func TestControllerRunCycle(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 400})

	require.NoError(t, r.ctrl.RunCycle())
	assert.Equal(t, StateHoming, r.ctrl.State(), "a cycle from IDLE homes first")
	require.True(t, r.runUntilState(StateHomed))

	require.NoError(t, r.ctrl.RunCycle())
	assert.Equal(t, StateMovingToTarget, r.ctrl.State())
	require.True(t, r.runUntilState(StateAtTarget))

	assert.ErrorIs(t, r.ctrl.RunCycle(), ErrCommandRejected)
}

func TestControllerLimitOrderDecidesResponse(t *testing.T) {
	tests := []struct {
		name         string
		distanceLast bool
		wantState    SystemState
	}{
		{"distance registered first", false, StateIdle},
		{"sensor registered first", true, StateReturningToOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r *rig
			distance := NewDistanceLimit("stroke", 3200, StopMotion())
			sensor := NewSensorLimit("occlusion", sensorFunc(func() bool { return r.motor.Position() >= 3200 }), Forward, ReverseMotion())

			if tt.distanceLast {
				r = newRig(t, ControllerConfig{TargetPosition: 9999}, sensor, distance)
			} else {
				r = newRig(t, ControllerConfig{TargetPosition: 9999}, distance, sensor)
			}
			r.home(t)

			require.NoError(t, r.ctrl.MoveToTarget())
			require.True(t, r.run(func() bool { return r.ctrl.State() != StateMovingToTarget }, 500000))
			assert.Equal(t, tt.wantState, r.ctrl.State())
			assert.Equal(t, int32(3200), r.ctrl.Position())
			assert.True(t, r.hasEvent(EvtLimit))
		})
	}
}

func TestControllerReverseSwapsPhase(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200},
		NewPositionLimit("soft max", 2000, Forward, ReverseMotion()))
	r.home(t)

	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.runUntilState(StateReturningToOrigin))
	assert.Equal(t, int32(2000), r.ctrl.Position())
	assert.Equal(t, Reverse, r.ctrl.Direction())
	assert.True(t, r.ctrl.Enabled())

	require.True(t, r.runUntilState(StateAtOrigin))
	assert.InDelta(t, 0, r.ctrl.Position(), ArrivalTolerance)
}

func TestControllerReverseOnUndirectedSensor(t *testing.T) {
	var r *rig
	hardStop := NewSensorLimit("hard stop", sensorFunc(func() bool { return r.motor.Position() >= 1000 }), Stopped, ReverseMotion())
	r = newRig(t, ControllerConfig{TargetPosition: 3200}, hardStop)
	r.home(t)

	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.runUntilState(StateAtOrigin))
	assert.InDelta(t, 0, r.ctrl.Position(), ArrivalTolerance)
	assert.False(t, r.ctrl.Enabled())

	limits := 0
	for _, evt := range r.ctrl.Events().Events() {
		if evt.EventType == EvtLimit {
			limits++
		}
	}
	assert.Equal(t, 1, limits, "the sensor reverses the axis once while it drives away")
}

func TestControllerReverseOnUndirectedPositionLimit(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200},
		NewPositionLimit("soft max", 1500, Stopped, ReverseMotion()))
	r.home(t)

	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.runUntilState(StateAtOrigin))
	assert.InDelta(t, 0, r.ctrl.Position(), ArrivalTolerance)

	require.NoError(t, r.ctrl.MoveToTarget(), "the next phase checks the limit again")
	require.True(t, r.runUntilState(StateReturningToOrigin))
	assert.Equal(t, int32(1500), r.ctrl.Position())
}

func TestControllerBackOff(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 3200},
		NewPositionLimit("bubble", 1000, Forward, BackOff(50)))
	r.home(t)

	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.run(func() bool { return r.hasEvent(EvtBackOffDone) }, 500000))

	assert.Equal(t, int32(950), r.ctrl.Position())
	assert.Equal(t, Forward, r.ctrl.Direction(), "direction restored after back-off")
	assert.Equal(t, StateMovingToTarget, r.ctrl.State())
	assert.Equal(t, uint32(400), r.profile.CurrentInterval(), "profile restarts from the deceleration start")
}

func TestControllerLimitsDuringHoming(t *testing.T) {
	tests := []struct {
		name     string
		response Response
	}{
		{"stop", StopMotion()},
		{"reverse acts as stop", ReverseMotion()},
		{"back-off acts as stop", BackOff(20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, ControllerConfig{}, NewPositionLimit("min", 900, Reverse, tt.response))
			r.motor.SetPosition(1000)
			r.sensorAt = -1000000

			require.NoError(t, r.ctrl.StartHoming())
			require.True(t, r.run(func() bool { return r.ctrl.State() != StateHoming }, 500000))
			assert.Equal(t, StateIdle, r.ctrl.State())
			assert.Equal(t, int32(900), r.ctrl.Position())
			assert.False(t, r.ctrl.Enabled())
		})
	}
}

func TestControllerNoneResponseContinues(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 500},
		NewPositionLimit("marker", 100, Forward, NoAction()))
	r.home(t)

	require.NoError(t, r.ctrl.MoveToTarget())
	require.True(t, r.runUntilState(StateAtTarget))
	assert.True(t, r.hasEvent(EvtLimit))
}

// driveTo brings a fresh rig into the requested state
func driveTo(t *testing.T, s SystemState) *rig {
	t.Helper()
	r := newRig(t, ControllerConfig{TargetPosition: 300, MaxHomingSteps: 50})

	switch s {
	case StateIdle:
	case StateHoming:
		r.motor.SetPosition(1000)
		require.NoError(t, r.ctrl.StartHoming())
	case StateError:
		r.motor.SetPosition(1000)
		r.sensorAt = -1000000
		require.NoError(t, r.ctrl.StartHoming())
		require.True(t, r.runUntilState(StateError))
	default:
		r.home(t)
	}

	switch s {
	case StateMovingToTarget, StateAtTarget, StateReturningToOrigin, StateAtOrigin:
		require.NoError(t, r.ctrl.MoveToTarget())
	}
	switch s {
	case StateAtTarget, StateReturningToOrigin, StateAtOrigin:
		require.True(t, r.runUntilState(StateAtTarget))
	}
	switch s {
	case StateReturningToOrigin, StateAtOrigin:
		require.NoError(t, r.ctrl.ReturnToOrigin())
	}
	if s == StateAtOrigin {
		require.True(t, r.runUntilState(StateAtOrigin))
	}

	require.Equal(t, s, r.ctrl.State())
	return r
}

func TestControllerRejectionCompleteness(t *testing.T) {
	commands := []struct {
		name    string
		allowed []SystemState
		call    func(c *Controller) error
	}{
		{"HOME", []SystemState{StateIdle, StateError, StateHomed}, (*Controller).StartHoming},
		{"TARGET", []SystemState{StateHomed, StateAtOrigin}, (*Controller).MoveToTarget},
		{"RETURN", []SystemState{StateAtTarget}, (*Controller).ReturnToOrigin},
		{"CYCLE", []SystemState{StateHomed, StateAtOrigin, StateIdle}, (*Controller).RunCycle},
	}
	states := []SystemState{
		StateIdle, StateHoming, StateHomed, StateMovingToTarget,
		StateAtTarget, StateReturningToOrigin, StateAtOrigin, StateError,
	}

	for _, cmd := range commands {
		for _, s := range states {
			allowed := false
			for _, a := range cmd.allowed {
				allowed = allowed || a == s
			}
			if allowed {
				continue
			}

			t.Run(cmd.name+" in "+s.String(), func(t *testing.T) {
				r := driveTo(t, s)
				pos, target, enabled, dir := r.ctrl.Position(), r.ctrl.Target(), r.ctrl.Enabled(), r.ctrl.Direction()

				err := cmd.call(r.ctrl)
				require.ErrorIs(t, err, ErrCommandRejected)
				assert.Contains(t, err.Error(), cmd.name)
				assert.Equal(t, s, r.ctrl.State())
				assert.Equal(t, pos, r.ctrl.Position())
				assert.Equal(t, target, r.ctrl.Target())
				assert.Equal(t, enabled, r.ctrl.Enabled())
				assert.Equal(t, dir, r.ctrl.Direction())
			})
		}
	}
}

func TestControllerSetSpeedRPM(t *testing.T) {
	r := newRig(t, ControllerConfig{MaxRPM: 300, TargetPosition: 3200})

	require.NoError(t, r.ctrl.SetSpeedRPM(60))
	assert.Equal(t, uint32(312), r.profile.TargetInterval())

	assert.ErrorIs(t, r.ctrl.SetSpeedRPM(0), ErrSpeedOutOfRange)
	assert.ErrorIs(t, r.ctrl.SetSpeedRPM(301), ErrSpeedOutOfRange)
	assert.Equal(t, uint32(312), r.profile.TargetInterval())

	r.home(t)
	require.NoError(t, r.ctrl.MoveToTarget())
	assert.ErrorIs(t, r.ctrl.SetSpeedRPM(120), ErrCommandRejected)
	assert.Equal(t, uint32(312), r.profile.TargetInterval())
}

func TestControllerStatus(t *testing.T) {
	r := newRig(t, ControllerConfig{TargetPosition: 1234})
	r.motor.SetPosition(42)

	st := r.ctrl.Status()
	assert.Equal(t, Status{
		State:      StateIdle,
		Position:   42,
		Direction:  Stopped,
		Enabled:    false,
		Target:     1234,
		IntervalUS: 100,
	}, st)
}

func TestControllerDiagnostics(t *testing.T) {
	r := newRig(t, ControllerConfig{})
	r.home(t)

	joined := strings.Join(r.messages, "\n")
	assert.Contains(t, joined, "IDLE -> HOMING")
	assert.Contains(t, joined, "HOMING -> HOMED")

	_ = r.ctrl.ReturnToOrigin()
	assert.True(t, r.hasEvent(EvtReject))
}
