package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"syringe/host/mcu"
)

var (
	sendTimeout time.Duration
	sendWait    bool
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [arg]",
	Short: "Send one command to a controller board",
	Long: `Send one command line to a controller over serial and print its reply.

With --wait, diagnostics are printed until the controller settles, which
is useful for motion commands such as HOME or CYCLE.

Exit codes:
  0 - Command accepted
  1 - Command rejected, timeout, or connection error

Examples:
  syringe-host send --port /dev/ttyACM0 STATUS
  syringe-host send -p /dev/ttyACM0 SETTARGET 2400
  syringe-host send -p /dev/ttyACM0 --wait CYCLE`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", mcu.DefaultTimeout, "Time to wait for the reply")
	sendCmd.Flags().BoolVar(&sendWait, "wait", false, "Keep printing diagnostics until the controller settles")
}

func runSend(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return errors.New("no serial port given (--port or SYRINGE_PORT)")
	}

	conn, err := mcu.Connect(portName, baudRate)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.Timeout = sendTimeout

	out := cmd.OutOrStdout()
	line := strings.Join(args, " ")
	reply, err := conn.Send(cmd.Context(), line)
	printReply(out, reply)
	if err != nil {
		fmt.Fprintln(out, styleLine("Error: "+err.Error()))
		return err
	}
	if !sendWait || !startedMotion(reply) {
		return nil
	}

	return waitSettled(cmd.Context(), conn, func(l string) {
		fmt.Fprintln(out, styleLine(l))
	})
}

// printReply prints the data and diagnostic lines of a reply
func printReply(out io.Writer, reply *mcu.Reply) {
	if reply == nil {
		return
	}
	for _, d := range reply.Diagnostics {
		fmt.Fprintln(out, styleLine("# "+d))
	}
	for _, l := range reply.Lines {
		fmt.Fprintln(out, styleLine(l))
	}
}

// settledStates are the transitions after which a motion command is done
var settledStates = []string{"-> HOMED", "-> AT_TARGET", "-> AT_ORIGIN", "-> IDLE", "-> ERROR"}

// waitSettled prints unsolicited lines until a transition into a settled
// state arrives. Every received line resets the idle timeout.
func waitSettled(ctx context.Context, conn *mcu.MCU, emit func(string)) error {
	for {
		idle := time.NewTimer(conn.Timeout)
		select {
		case <-ctx.Done():
			idle.Stop()
			return ctx.Err()
		case <-idle.C:
			return fmt.Errorf("no progress for %s", conn.Timeout)
		case l, ok := <-conn.Lines():
			idle.Stop()
			if !ok {
				return mcu.ErrClosed
			}
			emit(l)
			if isSettledLine(l) {
				return nil
			}
		}
	}
}

// startedMotion reports whether the reply's last transition entered a moving state
func startedMotion(reply *mcu.Reply) bool {
	if reply == nil || len(reply.Diagnostics) == 0 {
		return false
	}
	last := reply.Diagnostics[len(reply.Diagnostics)-1]
	for _, s := range []string{"-> HOMING", "-> MOVING_TO_TARGET", "-> RETURNING_TO_ORIGIN"} {
		if strings.HasSuffix(last, s) {
			return true
		}
	}
	return false
}

func isSettledLine(l string) bool {
	if !strings.HasPrefix(l, "#") {
		return false
	}
	for _, s := range settledStates {
		if strings.HasSuffix(l, s) {
			return true
		}
	}
	return false
}
