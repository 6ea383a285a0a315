package core

// Multiplier applied to the target interval when homing
const HomingSlowMultiplier = 10

// MotionProfile owns the inter-step delay. The current interval never
// drops below the target interval.
type MotionProfile struct {
	target          uint32 // Steady-state interval (µs)
	current         uint32 // Interval used for the next step (µs)
	accelStep       uint32 // Interval decrease per step (µs)
	decelMultiplier uint32 // Start interval = target * decelMultiplier
}

// NewMotionProfile creates a profile running at its target interval
func NewMotionProfile(target, accelStep, decelMultiplier uint32) *MotionProfile {
	if decelMultiplier == 0 {
		decelMultiplier = 1
	}
	return &MotionProfile{
		target:          target,
		current:         target,
		accelStep:       accelStep,
		decelMultiplier: decelMultiplier,
	}
}

// Accelerate shortens the current interval by one acceleration step, clamped to target
func (p *MotionProfile) Accelerate() {
	if p.current <= p.target {
		return
	}
	if p.current-p.target <= p.accelStep {
		p.current = p.target
		return
	}
	p.current -= p.accelStep
}

// ResetForDirectionChange restarts from the deceleration start interval
func (p *MotionProfile) ResetForDirectionChange() {
	p.current = saturatingMul(p.target, p.decelMultiplier)
}

// ResetSlow restarts from the homing start interval
func (p *MotionProfile) ResetSlow() {
	p.current = saturatingMul(p.target, HomingSlowMultiplier)
}

// CurrentInterval returns the interval the next step must wait for
func (p *MotionProfile) CurrentInterval() uint32 {
	return p.current
}

// TargetInterval returns the steady-state interval
func (p *MotionProfile) TargetInterval() uint32 {
	return p.target
}

// SetTargetInterval changes the steady-state interval, keeping current >= target
func (p *MotionProfile) SetTargetInterval(target uint32) {
	p.target = target
	if p.current < target {
		p.current = target
	}
}

// AtSpeed reports whether acceleration has finished
func (p *MotionProfile) AtSpeed() bool {
	return p.current == p.target
}

func saturatingMul(a, b uint32) uint32 {
	r := uint64(a) * uint64(b)
	if r > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(r)
}
