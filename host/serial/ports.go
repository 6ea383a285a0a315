package serial

import (
	"sort"
	"strings"

	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the host
type PortInfo struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// Known USB IDs of boards that run the syringe firmware
var knownBoards = map[string]string{
	"2E8A:000A": "Raspberry Pi Pico (TinyGo)",
	"2E8A:0003": "Raspberry Pi Pico (bootloader)",
	"2341:0043": "Arduino Uno",
	"2341:0042": "Arduino Mega 2560",
}

// Board returns a friendly board name for known USB IDs
func (p PortInfo) Board() string {
	if !p.USB {
		return ""
	}
	return knownBoards[strings.ToUpper(p.VID)+":"+strings.ToUpper(p.PID)]
}

// ListPorts enumerates serial ports, with USB details where the OS provides them
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil || len(details) == 0 {
		names, err := bugst.GetPortsList()
		if err != nil {
			return nil, err
		}
		ports := make([]PortInfo, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortInfo{Name: name})
		}
		sortPorts(ports)
		return ports, nil
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:    d.Name,
			USB:     d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}
	sortPorts(ports)
	return ports, nil
}

// sortPorts lists USB ports first, then by name
func sortPorts(ports []PortInfo) {
	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].USB != ports[j].USB {
			return ports[i].USB
		}
		return ports[i].Name < ports[j].Name
	})
}
