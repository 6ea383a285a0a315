package core

// fakeClock is a virtual microsecond clock. Delays advance it instantly.
type fakeClock struct {
	now    uint32
	delays []uint32
}

func (c *fakeClock) Micros() uint32 { return c.now }

func (c *fakeClock) DelayMicros(us uint32) {
	c.delays = append(c.delays, us)
	c.now += us
}

func (c *fakeClock) advance(us uint32) { c.now += us }

type pinWrite struct {
	pin   GPIOPin
	value bool
	at    uint32
}

// fakeGPIO records every write with the virtual time it happened at
type fakeGPIO struct {
	clock   *fakeClock
	levels  map[GPIOPin]bool
	outputs map[GPIOPin]bool
	pullUp  map[GPIOPin]bool
	writes  []pinWrite
	failing map[GPIOPin]error // SetPin on these pins fails
}

func newFakeGPIO(clock *fakeClock) *fakeGPIO {
	return &fakeGPIO{
		clock:   clock,
		levels:  make(map[GPIOPin]bool),
		outputs: make(map[GPIOPin]bool),
		pullUp:  make(map[GPIOPin]bool),
		failing: make(map[GPIOPin]error),
	}
}

func (g *fakeGPIO) ConfigureOutput(pin GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

func (g *fakeGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	g.pullUp[pin] = true
	g.levels[pin] = true
	return nil
}

func (g *fakeGPIO) ConfigureInputPullDown(pin GPIOPin) error {
	g.pullUp[pin] = false
	g.levels[pin] = false
	return nil
}

func (g *fakeGPIO) SetPin(pin GPIOPin, value bool) error {
	if err := g.failing[pin]; err != nil {
		return err
	}
	g.levels[pin] = value
	g.writes = append(g.writes, pinWrite{pin: pin, value: value, at: g.clock.now})
	return nil
}

func (g *fakeGPIO) ReadPin(pin GPIOPin) bool {
	return g.levels[pin]
}

// sensorFunc adapts a function to the Sensor interface
type sensorFunc func() bool

func (f sensorFunc) Active() bool { return f() }

const (
	testStepPin   GPIOPin = 2
	testDirPin    GPIOPin = 3
	testEnablePin GPIOPin = 4
	testSensorPin GPIOPin = 5
)

func testMotorConfig() MotorConfig {
	return MotorConfig{
		StepPin:            testStepPin,
		DirPin:             testDirPin,
		EnablePin:          testEnablePin,
		StepsPerRevolution: 200,
		Microsteps:         16,
		Logic:              ActiveLow,
	}
}

func newTestMotor() (*Motor, *fakeGPIO, *fakeClock) {
	clock := &fakeClock{}
	gpio := newFakeGPIO(clock)
	m := NewMotor(gpio, clock, testMotorConfig())
	if err := m.Begin(); err != nil {
		panic(err)
	}
	return m, gpio, clock
}

// fakeADC replays scripted readings per channel; an exhausted script
// repeats its last value
type fakeADC struct {
	configured map[ADCChannel]bool
	readings   map[ADCChannel][]uint16
	err        error
}

func newFakeADC() *fakeADC {
	return &fakeADC{
		configured: make(map[ADCChannel]bool),
		readings:   make(map[ADCChannel][]uint16),
	}
}

func (a *fakeADC) ConfigureChannel(ch ADCChannel) error {
	a.configured[ch] = true
	return nil
}

func (a *fakeADC) ReadRaw(ch ADCChannel) (uint16, error) {
	if a.err != nil {
		return 0, a.err
	}
	r := a.readings[ch]
	if len(r) == 0 {
		return 0, nil
	}
	v := r[0]
	if len(r) > 1 {
		a.readings[ch] = r[1:]
	}
	return v, nil
}
