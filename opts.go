package quickcan

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type Opts func(d *Driver) error

// OptLogger routes driver events to l.
func OptLogger(l logrus.FieldLogger) Opts {
	return func(d *Driver) error {
		if l == nil {
			return errors.New("nil logger")
		}
		d.ev.log = l
		return nil
	}
}

// OptOnEvent sets the hook receiving every driver and bus event.
func OptOnEvent(fn func(Event)) Opts {
	return func(d *Driver) error {
		d.ev.onEvent = fn
		return nil
	}
}

// OptDebug enables >> and << hex dumps of all transport traffic.
func OptDebug(enabled bool) Opts {
	return func(d *Driver) error {
		d.debug = enabled
		return nil
	}
}

// OptReadBufferSize sets how many bytes one Pump reads at most.
func OptReadBufferSize(n int) Opts {
	return func(d *Driver) error {
		if n < 1 {
			return errors.New("read buffer size must be positive")
		}
		d.readBuf = make([]byte, n)
		return nil
	}
}

// OptReassemblyLimit caps the bytes buffered for one packet candidate.
func OptReassemblyLimit(n int) Opts {
	return func(d *Driver) error {
		d.rs.SetLimit(n)
		return nil
	}
}

// OptClock replaces the receive timestamp source.
func OptClock(now func() time.Time) Opts {
	return func(d *Driver) error {
		if now == nil {
			return errors.New("nil clock")
		}
		d.now = now
		return nil
	}
}
