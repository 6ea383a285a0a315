// Package console runs the syringe controller behind a line-oriented host protocol
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tinygo.org/x/drivers"

	"syringe/config"
	"syringe/console/cmdline"
	"syringe/core"
)

const maxLineLength = 256

var (
	// ErrNotInitialized is returned before Initialize succeeded
	ErrNotInitialized = errors.New("manager not initialized")

	// ErrLineTooLong is returned when an input line overflows the buffer
	ErrLineTooLong = errors.New("line too long")

	// ErrNoI2C is returned when a ToF limit is configured without an I2C bus
	ErrNoI2C = errors.New("tof limit requires an i2c bus")

	// ErrNoADC is returned when an analog limit is configured without an ADC
	ErrNoADC = errors.New("adc limit requires an adc driver")
)

// Hardware bundles the platform services the manager drives
type Hardware struct {
	GPIO   core.GPIODriver
	Clock  core.Clock
	I2C    drivers.I2C     // Optional, required by ToF limits
	ADC    core.ADCDriver  // Optional, required by analog limits
	Pulser core.StepPulser // Optional hardware step generator
}

// Manager owns the controller and translates host lines into commands
type Manager struct {
	config   *config.MachineConfig
	parser   *cmdline.Parser
	registry *CommandRegistry

	motor      *core.Motor
	profile    *core.MotionProfile
	limits     *core.LimitManager
	controller *core.Controller

	// Serial interface
	inputBuffer  []byte
	outputBuffer []byte
	overflow     bool

	// Status
	initialized bool
	running     bool
}

// NewManager creates a manager from a JSON configuration
func NewManager(configData []byte) (*Manager, error) {
	// Load configuration
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}

	return NewManagerWithConfig(cfg)
}

// NewManagerWithConfig creates a manager with an existing config
func NewManagerWithConfig(cfg *config.MachineConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mgr := &Manager{
		config:       cfg,
		parser:       cmdline.NewParser(),
		registry:     NewCommandRegistry(),
		inputBuffer:  make([]byte, 0, maxLineLength),
		outputBuffer: make([]byte, 0, 256),
	}
	mgr.registerCommands()

	return mgr, nil
}

// Initialize builds the motor, profile, limits and controller on hw
func (m *Manager) Initialize(hw Hardware) error {
	if m.initialized {
		return errors.New("already initialized")
	}
	if hw.GPIO == nil || hw.Clock == nil {
		return errors.New("gpio driver and clock are required")
	}

	motorCfg, err := m.config.CoreMotor()
	if err != nil {
		return err
	}
	motor := core.NewMotor(hw.GPIO, hw.Clock, motorCfg)
	if hw.Pulser != nil {
		motor.SetPulser(hw.Pulser)
	}
	if err := motor.Begin(); err != nil {
		return fmt.Errorf("motor: %w", err)
	}

	limits := core.NewLimitManager()
	for _, lc := range m.config.Limits {
		limit, err := buildLimit(lc, hw)
		if err != nil {
			return fmt.Errorf("limit %s: %w", lc.Name, err)
		}
		if !limits.Add(limit) {
			return fmt.Errorf("limit %s: limit manager full", lc.Name)
		}
	}

	m.motor = motor
	m.limits = limits
	m.profile = core.NewMotionProfile(m.config.ProfileInterval(), m.config.Profile.AccelStepUS, m.config.Profile.DecelMultiplier)
	m.controller = core.NewController(motor, m.profile, limits, hw.Clock, m.config.CoreController())
	m.controller.SetDebugWriter(m.diagnostic)

	m.initialized = true
	return nil
}

// buildLimit creates the core limit described by lc
func buildLimit(lc config.LimitConfig, hw Hardware) (core.Limit, error) {
	dir, err := config.ParseDirection(lc.Direction)
	if err != nil {
		return nil, err
	}
	response, err := lc.CoreResponse()
	if err != nil {
		return nil, err
	}

	switch lc.Kind {
	case config.KindPosition:
		return core.NewPositionLimit(lc.Name, lc.Threshold, dir, response), nil

	case config.KindDistance:
		return core.NewDistanceLimit(lc.Name, lc.MaxDistance, response), nil

	case config.KindSensor:
		var sensor core.Sensor
		switch lc.Source {
		case config.SourceToF:
			if hw.I2C == nil {
				return nil, ErrNoI2C
			}
			sensor, err = core.NewToFSensor(hw.I2C, core.ToFSensorConfig{ThresholdMM: lc.ThresholdMM})
		case config.SourceADC:
			if hw.ADC == nil {
				return nil, ErrNoADC
			}
			sensor, err = core.NewAnalogSensor(hw.ADC, core.AnalogSensorConfig{
				Channel:      core.ADCChannel(lc.Channel),
				Threshold:    lc.Level,
				TriggerAbove: lc.TriggerAbove,
				Hysteresis:   lc.Hysteresis,
				SampleCount:  lc.Samples,
			})
		default:
			pin, perr := core.LookupPin(lc.Pin)
			if perr != nil {
				return nil, perr
			}
			sensor, err = core.NewPinSensor(hw.GPIO, core.PinSensorConfig{
				Pin:         pin,
				ActiveLow:   lc.ActiveLow,
				PullUp:      lc.PullUp,
				SampleCount: lc.Samples,
			})
		}
		if err != nil {
			return nil, err
		}
		return core.NewSensorLimit(lc.Name, sensor, dir, response), nil
	}
	return nil, errors.New("unknown limit kind: " + lc.Kind)
}

// ProcessLine processes one host command line
func (m *Manager) ProcessLine(line string) error {
	if !m.initialized {
		return ErrNotInitialized
	}

	cmd := m.parser.ParseLine(line)
	if cmd == nil || cmd.IsComment() {
		return nil
	}
	return m.registry.Dispatch(cmd)
}

// ProcessByte processes a single byte of input (for serial streaming).
// Every complete line is answered with "ok" or an "Error:" line; the
// returned error is informational only.
func (m *Manager) ProcessByte(b byte) error {
	if b != '\n' && b != '\r' {
		if len(m.inputBuffer) >= maxLineLength {
			m.overflow = true
			return nil
		}
		m.inputBuffer = append(m.inputBuffer, b)
		return nil
	}

	line := strings.TrimSpace(string(m.inputBuffer))
	m.inputBuffer = m.inputBuffer[:0] // Clear buffer

	if m.overflow {
		m.overflow = false
		m.SendResponse("Error: " + ErrLineTooLong.Error() + "\n")
		return ErrLineTooLong
	}
	if len(line) == 0 {
		return nil
	}

	if err := m.ProcessLine(line); err != nil {
		m.SendResponse("Error: " + err.Error() + "\n")
		return err
	}

	// Send "ok" response
	m.SendResponse("ok\n")
	return nil
}

// SendResponse queues a response to be sent to the host
func (m *Manager) SendResponse(response string) {
	m.outputBuffer = append(m.outputBuffer, response...)
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	if len(m.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// diagnostic queues an informational line for the host
func (m *Manager) diagnostic(msg string) {
	m.SendResponse("# " + msg + "\n")
}

// Start begins operation
func (m *Manager) Start() error {
	if !m.initialized {
		return ErrNotInitialized
	}

	m.running = true
	m.SendResponse("Syringe controller ready (HELP for commands)\n")
	return nil
}

// Update runs one control loop iteration. Call it as often as possible.
func (m *Manager) Update() {
	if !m.running {
		return
	}
	m.controller.Update()
}

// Stop halts the control loop and disables the motor
func (m *Manager) Stop() {
	m.running = false
	if m.controller != nil {
		m.controller.Stop()
	}
}

// IsRunning returns whether the manager is running
func (m *Manager) IsRunning() bool {
	return m.running
}

// EmergencyStop disables the motor without stopping the control loop
func (m *Manager) EmergencyStop() {
	if m.controller == nil {
		return
	}
	m.controller.Stop()
	m.diagnostic("emergency stop")
}

// Controller returns the controller, nil before Initialize
func (m *Manager) Controller() *core.Controller {
	return m.controller
}

// Config returns the machine configuration
func (m *Manager) Config() *config.MachineConfig {
	return m.config
}

// Commands returns the registered host commands
func (m *Manager) Commands() []*Command {
	return m.registry.Commands()
}

// registerCommands installs the host protocol
func (m *Manager) registerCommands() {
	r := m.registry
	r.Register("HOME", "", "start homing", func(*cmdline.Command) error {
		return m.controller.StartHoming()
	})
	r.Register("TARGET", "", "move to the configured target", func(*cmdline.Command) error {
		return m.controller.MoveToTarget()
	})
	r.Register("RETURN", "", "return to origin", func(*cmdline.Command) error {
		return m.controller.ReturnToOrigin()
	})
	r.Register("CYCLE", "", "home if needed, then move to target", func(*cmdline.Command) error {
		return m.controller.RunCycle()
	})
	r.Register("SETTARGET", "<n>", "set the target position", m.cmdSetTarget)
	r.Alias("SET", "SETTARGET")
	r.Register("STOP", "", "emergency stop", func(*cmdline.Command) error {
		m.controller.Stop()
		return nil
	})
	r.Register("POS", "", "report position", func(*cmdline.Command) error {
		m.SendResponse("pos=" + strconv.Itoa(int(m.controller.Position())) + "\n")
		return nil
	})
	r.Register("STATUS", "", "report state, position, direction and enable", m.cmdStatus)
	r.Register("RPM", "<n>", "set the cruise speed", m.cmdRPM)
	r.Register("TRACE", "", "dump the motion event ring", func(*cmdline.Command) error {
		m.controller.Events().Dump(func(s string) { m.SendResponse(s + "\n") })
		return nil
	})
	r.Register("HELP", "", "list commands", m.cmdHelp)
}

func (m *Manager) cmdSetTarget(cmd *cmdline.Command) error {
	n, err := cmd.IntArg(0)
	if err != nil {
		return fmt.Errorf("SETTARGET: %w", err)
	}
	if err := m.controller.SetTargetPosition(n); err != nil {
		return err
	}
	m.SendResponse("target=" + strconv.Itoa(int(n)) + "\n")
	return nil
}

func (m *Manager) cmdRPM(cmd *cmdline.Command) error {
	rpm, err := cmd.UintArg(0)
	if err != nil {
		return fmt.Errorf("RPM: %w", err)
	}
	if err := m.controller.SetSpeedRPM(rpm); err != nil {
		return err
	}
	m.SendResponse("interval_us=" + strconv.FormatUint(uint64(m.profile.TargetInterval()), 10) + "\n")
	return nil
}

func (m *Manager) cmdStatus(*cmdline.Command) error {
	st := m.controller.Status()
	m.SendResponse(FormatStatus(st) + "\n")
	return nil
}

func (m *Manager) cmdHelp(*cmdline.Command) error {
	for _, c := range m.registry.Commands() {
		name := c.Name
		if aliases := m.registry.AliasesOf(c.Name); len(aliases) > 0 {
			name += "/" + strings.Join(aliases, "/")
		}
		if c.Usage != "" {
			name += " " + c.Usage
		}
		m.SendResponse(fmt.Sprintf("  %-16s %s\n", name, c.Help))
	}
	return nil
}

// FormatStatus renders a status snapshot as a single key=value line
func FormatStatus(st core.Status) string {
	return "state=" + st.State.String() +
		" pos=" + strconv.Itoa(int(st.Position)) +
		" dir=" + st.Direction.String() +
		" enabled=" + strconv.FormatBool(st.Enabled) +
		" target=" + strconv.Itoa(int(st.Target)) +
		" interval_us=" + strconv.FormatUint(uint64(st.IntervalUS), 10)
}
