package frame

import "fmt"

// Command is the adapter command carried in byte 1 of every payload.
type Command byte

const (
	CmdCANSend     Command = 0x01
	CmdHeartbeat   Command = 0x02
	CmdAck         Command = 0x03
	CmdNack        Command = 0x04
	CmdDeviceInfo  Command = 0x10
	CmdPing        Command = 0x20
	CmdConfigGet   Command = 0x30
	CmdConfigSet   Command = 0x31
	CmdReset       Command = 0x40
	CmdSetFilter   Command = 0x41
	CmdClearFilter Command = 0x42
)

var commandNames = map[Command]string{
	CmdCANSend:     "CAN_SEND",
	CmdHeartbeat:   "HEARTBEAT",
	CmdAck:         "ACK",
	CmdNack:        "NACK",
	CmdDeviceInfo:  "DEVICE_INFO",
	CmdPing:        "PING",
	CmdConfigGet:   "CONFIG_GET",
	CmdConfigSet:   "CONFIG_SET",
	CmdReset:       "RESET",
	CmdSetFilter:   "SET_FILTER",
	CmdClearFilter: "CLEAR_FILTER",
}

// ParseCommand converts a wire byte into a Command.
func ParseCommand(b byte) (Command, error) {
	cmd := Command(b)
	if !cmd.Valid() {
		return 0, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, b)
	}
	return cmd, nil
}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(c))
}

// Commands returns every known command in wire order.
func Commands() []Command {
	return []Command{
		CmdCANSend, CmdHeartbeat, CmdAck, CmdNack, CmdDeviceInfo, CmdPing,
		CmdConfigGet, CmdConfigSet, CmdReset, CmdSetFilter, CmdClearFilter,
	}
}
