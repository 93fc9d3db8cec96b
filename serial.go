package quickcan

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	DefaultBaudrate    = 115200
	DefaultReadTimeout = 50 * time.Millisecond
)

// SerialConfig describes the serial link to the adapter.
type SerialConfig struct {
	Port        string
	Baudrate    int
	ReadTimeout time.Duration // bounds how long one Pump may block
}

// OpenSerial opens the adapter's serial port in 8N1 mode with a read timeout
// so Pump never blocks forever.
func OpenSerial(cfg SerialConfig) (serial.Port, error) {
	if cfg.Baudrate == 0 {
		cfg.Baudrate = DefaultBaudrate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	portName := cfg.Port
	if runtime.GOOS == "windows" {
		portName = strings.ToUpper(portName)
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open com port %q : %w", cfg.Port, err)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	p.ResetOutputBuffer()
	p.ResetInputBuffer()
	return p, nil
}

// Open opens the serial port described by cfg and wraps it in a Driver.
func Open(cfg SerialConfig, opts ...Opts) (*Driver, error) {
	p, err := OpenSerial(cfg)
	if err != nil {
		return nil, err
	}
	d, err := New(p, opts...)
	if err != nil {
		p.Close()
		return nil, err
	}
	return d, nil
}

type PortInfo struct {
	Name         string
	IsUSB        bool
	VID, PID     string
	SerialNumber string
	Product      string
}

func (p PortInfo) String() string {
	if !p.IsUSB {
		return p.Name
	}
	return fmt.Sprintf("%s (USB %s:%s serial %s)", p.Name, p.VID, p.PID, p.SerialNumber)
}

var ErrNoPorts = errors.New("no serial ports found")

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}
	out := make([]PortInfo, 0, len(ports))
	for _, port := range ports {
		out = append(out, PortInfo{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
		})
	}
	return out, nil
}
