package quickcan

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quickcan/goquickcan/pkg/frame"
)

type EventType int

const (
	EventTypeError EventType = iota
	EventTypeWarning
	EventTypeInfo
	EventTypeDebug
)

func (et EventType) level() logrus.Level {
	switch et {
	case EventTypeError:
		return logrus.ErrorLevel
	case EventTypeWarning:
		return logrus.WarnLevel
	case EventTypeInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

func (et EventType) String() string {
	return strings.ToUpper(et.level().String())
}

// Event is something the Driver or Bus noticed. Command is set when the event
// is about one packet, Raw holds the bytes of debug dumps.
type Event struct {
	Type    EventType
	Command frame.Command
	Raw     []byte
	Details string
}

func (e Event) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "[%s]", e.Type)
	if e.Command != 0 {
		fmt.Fprintf(&out, " %s", e.Command)
	}
	if e.Details != "" {
		fmt.Fprintf(&out, " %s", e.Details)
	}
	if e.Raw != nil {
		fmt.Fprintf(&out, " %X", e.Raw)
	}
	return out.String()
}

// events hands every Event to the OnEvent hook and the logger.
type events struct {
	log     logrus.FieldLogger
	onEvent func(Event)
}

func newEvents() events {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return events{log: l}
}

func (e *events) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
	fields := logrus.Fields{}
	if ev.Command != 0 {
		fields["cmd"] = ev.Command.String()
	}
	if ev.Raw != nil {
		fields["raw"] = fmt.Sprintf("%X", ev.Raw)
	}
	e.log.WithFields(fields).Log(ev.Type.level(), ev.Details)
}

func (e *events) fail(cmd frame.Command, err error) {
	e.emit(Event{Type: EventTypeError, Command: cmd, Details: err.Error()})
}

func (e *events) warn(cmd frame.Command, details string) {
	e.emit(Event{Type: EventTypeWarning, Command: cmd, Details: details})
}

// dump reports raw traffic, dir is ">>" for writes and "<<" for reads.
func (e *events) dump(cmd frame.Command, dir string, raw []byte) {
	e.emit(Event{Type: EventTypeDebug, Command: cmd, Raw: append([]byte(nil), raw...), Details: dir})
}
