package core

import (
	"errors"
	"fmt"
)

// ArrivalTolerance is the distance in steps at which a target counts as reached
const ArrivalTolerance = 1

var (
	// ErrCommandRejected is returned for a command issued from a state that does not accept it
	ErrCommandRejected = errors.New("command rejected")

	// ErrTargetOutOfRange is returned by SetTargetPosition for values outside the travel range
	ErrTargetOutOfRange = errors.New("target out of range")

	// ErrSpeedOutOfRange is returned by SetSpeedRPM for unsupported speeds
	ErrSpeedOutOfRange = errors.New("speed out of range")
)

// ControllerConfig holds the motion parameters of the controller
type ControllerConfig struct {
	TargetPosition int32  // Initial target for MoveToTarget
	MinTarget      int32  // Lowest accepted target
	MaxTarget      int32  // Highest accepted target (hardware travel)
	HomePosition   int32  // Position ReturnToOrigin drives to
	MaxHomingSteps int32  // Homing fault after this many steps, 0 = no limit
	HomingLimit    string // Name of the limit that marks the home position
	MaxRPM         uint16 // Highest speed accepted by SetSpeedRPM
}

// Status is a snapshot of the controller for host reports
type Status struct {
	State      SystemState
	Position   int32
	Direction  Direction
	Enabled    bool
	Target     int32
	IntervalUS uint32
}

// Controller sequences homing, target moves and returns to origin.
// It is the only stateful orchestrator: motor, profile and limits are
// owned by the caller and only driven from here.
type Controller struct {
	motor   *Motor
	profile *MotionProfile
	limits  *LimitManager
	clock   Clock
	cfg     ControllerConfig

	state          SystemState
	targetPosition int32 // Configured target
	activeTarget   int32 // Target of the current motion phase
	homingLimit    Limit
	reversedBy     Limit // skipped until it reports clear
	lastStepTime   uint32
	homingSteps    int32

	// Back-off in progress
	backOffRemaining int32
	backOffDriven    int32
	resumeDir        Direction

	debug  DebugWriter
	events EventRing
}

// NewController creates a controller in StateIdle
func NewController(motor *Motor, profile *MotionProfile, limits *LimitManager, clock Clock, cfg ControllerConfig) *Controller {
	if cfg.MinTarget == 0 {
		cfg.MinTarget = 1
	}
	if cfg.MaxTarget == 0 {
		cfg.MaxTarget = 9999
	}
	if cfg.MaxRPM == 0 {
		cfg.MaxRPM = 600
	}

	c := &Controller{
		motor:          motor,
		profile:        profile,
		limits:         limits,
		clock:          clock,
		cfg:            cfg,
		state:          StateIdle,
		targetPosition: cfg.TargetPosition,
	}
	if cfg.HomingLimit != "" {
		c.homingLimit = limits.Find(cfg.HomingLimit)
	}
	return c
}

// SetDebugWriter installs the sink for diagnostic messages
func (c *Controller) SetDebugWriter(w DebugWriter) {
	c.debug = w
}

// StartHoming drives towards the homing sensor at the slow homing speed
func (c *Controller) StartHoming() error {
	switch c.state {
	case StateIdle, StateError, StateHomed:
	default:
		return c.reject("HOME")
	}

	if err := c.beginMotion(Reverse); err != nil {
		return err
	}
	c.profile.ResetSlow()
	c.homingSteps = 0
	c.setState(StateHoming)
	return nil
}

// MoveToTarget drives forward to the configured target
func (c *Controller) MoveToTarget() error {
	switch c.state {
	case StateHomed, StateAtOrigin:
	default:
		return c.reject("TARGET")
	}

	if err := c.beginMotion(Forward); err != nil {
		return err
	}
	c.activeTarget = c.targetPosition
	c.profile.ResetForDirectionChange()
	c.events.Record(EvtMoveStart, c.clock.Micros(), c.motor.Position(), c.activeTarget)
	c.setState(StateMovingToTarget)
	return nil
}

// ReturnToOrigin drives back to the home position
func (c *Controller) ReturnToOrigin() error {
	if c.state != StateAtTarget {
		return c.reject("RETURN")
	}

	if err := c.beginMotion(Reverse); err != nil {
		return err
	}
	c.activeTarget = c.cfg.HomePosition
	c.profile.ResetForDirectionChange()
	c.events.Record(EvtMoveStart, c.clock.Micros(), c.motor.Position(), c.activeTarget)
	c.setState(StateReturningToOrigin)
	return nil
}

// RunCycle moves to the target from a settled state, or homes first from IDLE
func (c *Controller) RunCycle() error {
	switch c.state {
	case StateHomed, StateAtOrigin:
		return c.MoveToTarget()
	case StateIdle:
		return c.StartHoming()
	default:
		return c.reject("CYCLE")
	}
}

// SetTargetPosition sets the target used by the next MoveToTarget
func (c *Controller) SetTargetPosition(n int32) error {
	if n < c.cfg.MinTarget || n > c.cfg.MaxTarget {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrTargetOutOfRange, n, c.cfg.MinTarget, c.cfg.MaxTarget)
	}
	c.targetPosition = n
	return nil
}

// SetSpeedRPM retunes the steady-state step interval. Rejected while moving.
func (c *Controller) SetSpeedRPM(rpm uint16) error {
	if c.state.Moving() {
		return c.reject("RPM")
	}
	interval := c.motor.StepIntervalForRPM(rpm)
	if rpm == 0 || rpm > c.cfg.MaxRPM || interval == 0 {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrSpeedOutOfRange, rpm, c.cfg.MaxRPM)
	}
	c.profile.SetTargetInterval(interval)
	return nil
}

// Stop disables the motor immediately. Unsettled states fall back to IDLE;
// ERROR is kept so the fault stays visible until the next HOME.
func (c *Controller) Stop() {
	c.release()
	c.backOffRemaining = 0
	if c.state.Settled() || c.state == StateError || c.state == StateIdle {
		return
	}
	c.debugf("stopped at %d", c.motor.Position())
	c.setState(StateIdle)
}

// Update runs one iteration of the control loop. It never blocks beyond
// the motor's pulse and setup delays and issues at most one step per call,
// so it must be called more often than the shortest step interval.
func (c *Controller) Update() {
	c.checkArrival()

	if !c.motor.Enabled() || c.motor.Direction() == Stopped {
		return
	}

	now := c.clock.Micros()
	if Elapsed(now, c.lastStepTime) < c.profile.CurrentInterval() {
		return
	}

	if c.backOffRemaining > 0 {
		c.stepBackOff(now)
		return
	}

	pos, dir := c.motor.Position(), c.motor.Direction()

	switch c.state {
	case StateHoming:
		if lim := c.checkLimits(pos, dir); lim != nil {
			if lim == c.homingLimit {
				c.completeHoming()
				return
			}
			if c.handleLimit(lim, now) {
				return
			}
		}
		if c.cfg.MaxHomingSteps > 0 && c.homingSteps >= c.cfg.MaxHomingSteps {
			c.fault(fmt.Sprintf("homing sensor not found after %d steps", c.homingSteps))
			return
		}
		c.step(now)
		c.homingSteps++

	case StateMovingToTarget, StateReturningToOrigin:
		if withinTolerance(pos, c.activeTarget) {
			return
		}
		if lim := c.checkLimits(pos, dir); lim != nil && c.handleLimit(lim, now) {
			return
		}
		c.step(now)
	}
}

// checkLimits returns the first reached limit. The limit that reversed the
// axis is left out until it stops reporting reached, so a sensor that is
// still active while the axis drives away cannot reverse it again.
func (c *Controller) checkLimits(pos int32, dir Direction) Limit {
	skip := c.reversedBy
	if skip != nil && !skip.IsReached(pos, dir) {
		c.reversedBy = nil
	}
	return c.limits.CheckLimitsExcept(pos, dir, skip)
}

// handleLimit dispatches the response of a reached limit.
// Returns true if the motion of this tick was replaced by the response.
func (c *Controller) handleLimit(lim Limit, now uint32) bool {
	pos, dir := c.motor.Position(), c.motor.Direction()
	r := lim.Response()
	c.events.Record(EvtLimit, now, pos, int32(c.limitIndex(lim)))
	c.debugf("limit %s reached at %d moving %s: %s", lim.Name(), pos, dir, r)

	kind := r.Kind
	if c.state == StateHoming && (kind == ResponseReverse || kind == ResponseBackOff) {
		kind = ResponseStop
	}
	if kind == ResponseBackOff && r.Distance <= 0 {
		kind = ResponseStop
	}

	switch kind {
	case ResponseNone:
		return false

	case ResponseStop:
		c.release()
		c.setState(StateIdle)
		return true

	case ResponseReverse:
		c.reversedBy = lim
		c.motor.SetDirection(dir.Opposite())
		c.profile.ResetForDirectionChange()
		c.limits.SetReference(pos)
		c.lastStepTime = now
		switch c.state {
		case StateMovingToTarget:
			c.activeTarget = c.cfg.HomePosition
			c.setState(StateReturningToOrigin)
		case StateReturningToOrigin:
			c.activeTarget = c.targetPosition
			c.setState(StateMovingToTarget)
		}
		return true

	case ResponseBackOff:
		c.resumeDir = dir
		c.backOffRemaining = r.Distance
		c.backOffDriven = 0
		c.motor.SetDirection(dir.Opposite())
		c.profile.ResetForDirectionChange()
		c.lastStepTime = now
		return true
	}
	return false
}

// stepBackOff drives one back-off step and resumes the previous direction when done
func (c *Controller) stepBackOff(now uint32) {
	c.motor.Step()
	c.lastStepTime = now
	c.backOffRemaining--
	c.backOffDriven++

	if c.backOffRemaining == 0 {
		c.events.Record(EvtBackOffDone, now, c.motor.Position(), c.backOffDriven)
		c.debugf("backed off %d steps to %d", c.backOffDriven, c.motor.Position())
		c.motor.SetDirection(c.resumeDir)
		c.profile.ResetForDirectionChange()
	}
}

func (c *Controller) step(now uint32) {
	c.motor.Step()
	c.lastStepTime = now
	c.profile.Accelerate()
}

// checkArrival performs the internal arrival transitions
func (c *Controller) checkArrival() {
	if c.backOffRemaining > 0 {
		return
	}

	switch c.state {
	case StateMovingToTarget:
		if withinTolerance(c.motor.Position(), c.activeTarget) {
			c.release()
			c.setState(StateAtTarget)
		}
	case StateReturningToOrigin:
		if withinTolerance(c.motor.Position(), c.activeTarget) {
			c.release()
			c.setState(StateAtOrigin)
		}
	}
}

func (c *Controller) completeHoming() {
	before := c.motor.Position()
	c.motor.ResetPosition()
	c.release()
	c.limits.ResetAll()
	c.events.Record(EvtHomed, c.clock.Micros(), 0, before)
	c.debugf("home found after %d steps", c.homingSteps)
	c.setState(StateHomed)
}

// fault disables the motor and latches ERROR until the next HOME
func (c *Controller) fault(reason string) {
	c.release()
	c.events.Record(EvtFault, c.clock.Micros(), c.motor.Position(), c.homingSteps)
	c.debugf("fault: %s", reason)
	c.setState(StateError)
}

// beginMotion prepares limits and the motor for a new motion phase
func (c *Controller) beginMotion(dir Direction) error {
	if err := c.motor.Enable(); err != nil {
		c.debugf("motor %v", err)
		return err
	}
	c.backOffRemaining = 0
	c.reversedBy = nil
	c.limits.ResetAll()
	c.motor.SetDirection(dir)
	c.limits.SetReference(c.motor.Position())
	c.lastStepTime = c.clock.Micros()
	return nil
}

// release disables the motor and reports a driver that may still be powered
func (c *Controller) release() {
	if err := c.motor.Disable(); err != nil {
		c.debugf("motor %v", err)
	}
}

func (c *Controller) setState(s SystemState) {
	if s == c.state {
		return
	}
	c.events.Record(EvtStateChange, c.clock.Micros(), c.motor.Position(), int32(s))
	c.debugf("%s -> %s", c.state, s)
	c.state = s
}

func (c *Controller) reject(cmd string) error {
	c.events.Record(EvtReject, c.clock.Micros(), c.motor.Position(), int32(c.state))
	return fmt.Errorf("%w: %s not allowed in state %s", ErrCommandRejected, cmd, c.state)
}

func (c *Controller) limitIndex(lim Limit) int {
	for i := 0; i < c.limits.Count(); i++ {
		if c.limits.At(i) == lim {
			return i
		}
	}
	return -1
}

func (c *Controller) debugf(format string, args ...any) {
	if c.debug != nil {
		c.debug(fmt.Sprintf(format, args...))
	}
}

// State returns the current state
func (c *Controller) State() SystemState {
	return c.state
}

// Position returns the motor position
func (c *Controller) Position() int32 {
	return c.motor.Position()
}

// Direction returns the motor direction
func (c *Controller) Direction() Direction {
	return c.motor.Direction()
}

// Enabled reports whether the motor driver is enabled
func (c *Controller) Enabled() bool {
	return c.motor.Enabled()
}

// Target returns the configured target position
func (c *Controller) Target() int32 {
	return c.targetPosition
}

// Status returns a snapshot for host reports
func (c *Controller) Status() Status {
	return Status{
		State:      c.state,
		Position:   c.motor.Position(),
		Direction:  c.motor.Direction(),
		Enabled:    c.motor.Enabled(),
		Target:     c.targetPosition,
		IntervalUS: c.profile.CurrentInterval(),
	}
}

// Events returns the motion event ring
func (c *Controller) Events() *EventRing {
	return &c.events
}

func withinTolerance(pos, target int32) bool {
	d := pos - target
	if d < 0 {
		d = -d
	}
	return d <= ArrivalTolerance
}
