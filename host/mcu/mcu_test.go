package mcu

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syringe/config"
	"syringe/console"
	"syringe/host/sim"
)

// fakeController answers every line with the canned reply for its first word
func fakeController(t *testing.T, conn net.Conn, replies map[string]string) {
	t.Helper()
	go func() {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			word := strings.Fields(sc.Text())
			if len(word) == 0 {
				continue
			}
			reply, ok := replies[word[0]]
			if !ok {
				reply = "Error: unknown command: " + word[0] + "\n"
			}
			if _, err := io.WriteString(conn, reply); err != nil {
				return
			}
		}
	}()
}

func TestSendCollectsReply(t *testing.T) {
	host, dev := net.Pipe()
	fakeController(t, dev, map[string]string{
		"POS":  "pos=1200\r\nok\r\n",
		"HOME": "# IDLE -> HOMING\nok\n",
	})
	m := NewMCU(host)
	defer m.Close()

	reply, err := m.Send(context.Background(), "POS")
	require.NoError(t, err)
	assert.Equal(t, []string{"pos=1200"}, reply.Lines)

	reply, err = m.Send(context.Background(), "HOME")
	require.NoError(t, err)
	assert.Empty(t, reply.Lines)
	assert.Equal(t, []string{"IDLE -> HOMING"}, reply.Diagnostics)
}

func TestSendRejected(t *testing.T) {
	host, dev := net.Pipe()
	fakeController(t, dev, map[string]string{})
	m := NewMCU(host)
	defer m.Close()

	_, err := m.Send(context.Background(), "FROB")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "unknown command: FROB")
}

func TestSendTimeout(t *testing.T) {
	host, dev := net.Pipe()
	go io.Copy(io.Discard, dev)
	m := NewMCU(host)
	m.Timeout = 20 * time.Millisecond
	defer m.Close()

	_, err := m.Send(context.Background(), "POS")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAfterDisconnect(t *testing.T) {
	host, dev := net.Pipe()
	m := NewMCU(host)
	defer m.Close()
	dev.Close()

	_, err := m.Send(context.Background(), "POS")
	assert.Error(t, err)
}

// TestSendToSimulatedController runs the real console manager behind a pipe
func TestSendToSimulatedController(t *testing.T) {
	cfg := config.DefaultSyringeConfig()
	rig, err := sim.NewRig(cfg, 0)
	require.NoError(t, err)
	mgr, err := console.NewManagerWithConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize(console.Hardware{GPIO: rig.GPIO, Clock: rig.Clock}))
	require.NoError(t, mgr.Start())
	mgr.GetOutput()

	host, dev := net.Pipe()
	go func() {
		r := bufio.NewReader(dev)
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			mgr.ProcessByte(b)
			if out := mgr.GetOutput(); out != nil {
				if _, err := dev.Write(out); err != nil {
					return
				}
			}
		}
	}()

	m := NewMCU(host)
	defer m.Close()

	reply, err := m.Send(context.Background(), "status")
	require.NoError(t, err)
	require.Len(t, reply.Lines, 1)
	assert.True(t, strings.HasPrefix(reply.Lines[0], "state=IDLE"))

	_, err = m.Send(context.Background(), "SETTARGET 50000")
	assert.ErrorIs(t, err, ErrRejected)
}
