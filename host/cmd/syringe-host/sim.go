package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"syringe/console"
	"syringe/host/sim"
)

var (
	simStart int32
	simSpeed int
	simTick  uint32
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the controller against a simulated plunger",
	Long: `Run the syringe controller on a simulated rig: a virtual GPIO bank and
clock driving a plunger model with a home switch.

The virtual clock follows wall time scaled by --speed. Type "plunger" at
the prompt to show the simulated plunger, which reports steps lost
against its mechanical stops.

Examples:
  syringe-host sim --start 1500
  syringe-host sim --speed 10 --config pump.json`,
	RunE: runSim,
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().Int32Var(&simStart, "start", 2000, "Initial plunger position in steps")
	simCmd.Flags().IntVar(&simSpeed, "speed", 1, "Simulation speed relative to wall time")
	simCmd.Flags().Uint32Var(&simTick, "tick", 25, "Virtual clock resolution in microseconds")
}

func runSim(cmd *cobra.Command, args []string) error {
	if simSpeed < 1 {
		return fmt.Errorf("--speed must be at least 1")
	}
	if simTick == 0 {
		return fmt.Errorf("--tick must be positive")
	}

	cfg, err := loadMachineConfig(configPath)
	if err != nil {
		return err
	}
	rig, err := sim.NewRig(cfg, simStart)
	if err != nil {
		return err
	}

	mgr, err := console.NewManagerWithConfig(cfg)
	if err != nil {
		return err
	}
	if err := mgr.Initialize(console.Hardware{GPIO: rig.GPIO, Clock: rig.Clock}); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Println(banner(
		"Syringe simulator",
		fmt.Sprintf("start=%d speed=%dx tick=%dus", simStart, simSpeed, simTick),
		`"plunger" shows the plunger, "quit" exits`,
	))

	clock := newRealtimeAdvance(rig, mgr, simTick, simSpeed)
	return serveConsole(ctx, cancel, mgr, "sim> ", clock.advance, func(s *session) {
		s.handle("plunger", func() { s.println(describePlunger(rig.Plunger)) })
	})
}

// describePlunger renders the simulated plunger as a key=value line
func describePlunger(p *sim.Plunger) string {
	return fmt.Sprintf("plunger=%d steps=%d lost=%d enabled=%t", p.Position(), p.Steps(), p.Lost(), p.Enabled())
}

// maxTicksPerAdvance bounds catch-up work after the host stalled
const maxTicksPerAdvance = 4000

// realtimeAdvance maps wall time onto the rig's virtual clock
type realtimeAdvance struct {
	rig   *sim.Rig
	u     sim.Updater
	tick  uint32
	speed int

	last    time.Time
	pending uint64

	now   func() time.Time
	sleep func(time.Duration)
}

func newRealtimeAdvance(rig *sim.Rig, u sim.Updater, tick uint32, speed int) *realtimeAdvance {
	return &realtimeAdvance{
		rig:   rig,
		u:     u,
		tick:  tick,
		speed: speed,
		last:  time.Now(),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// advance runs every tick that became due since the previous call
func (a *realtimeAdvance) advance() {
	now := a.now()
	a.pending += uint64(now.Sub(a.last).Microseconds()) * uint64(a.speed)
	a.last = now

	n := a.pending / uint64(a.tick)
	if n > maxTicksPerAdvance {
		n = maxTicksPerAdvance
		a.pending = 0
	} else {
		a.pending -= n * uint64(a.tick)
	}
	a.rig.Run(a.u, a.tick, int(n), func() bool { return false })

	a.sleep(time.Millisecond)
}
