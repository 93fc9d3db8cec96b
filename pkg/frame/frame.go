package frame

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

// MaxDataLength is the largest payload the 4-bit length field can carry.
const MaxDataLength = 0x0F

const (
	flagLengthMask = 0x0F
	flagExtended   = 0x80
)

// CANFrame is one CAN message or adapter command body.
type CANFrame struct {
	ID        uint32 // 11-bit (std) or 29-bit (ext)
	Data      []byte
	Extended  bool
	Flags     byte
	Timestamp time.Time // set by the receiver, zero on outgoing frames
}

// NewFrame creates a new CANFrame and copies the data slice
func NewFrame(id uint32, data []byte, extended bool) *CANFrame {
	d := make([]byte, len(data))
	copy(d, data)
	return &CANFrame{
		ID:       id,
		Data:     d,
		Extended: extended,
		Flags:    flagsFor(len(d), extended),
	}
}

func flagsFor(dlc int, extended bool) byte {
	flags := byte(dlc) & flagLengthMask
	if extended {
		flags |= flagExtended
	}
	return flags
}

// DLC returns the length of the data
func (f *CANFrame) DLC() int {
	return len(f.Data)
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f *CANFrame) String() string {
	var out strings.Builder
	out.WriteString(f.idString() + " || ")
	out.WriteString(fmt.Sprintf("%-2d", len(f.Data)) + " || ")
	out.WriteString(fmt.Sprintf("%-44s", hexView(f.Data)))
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f.Data))
	return out.String()
}

func (f *CANFrame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("%s", f.idString()) + " || ")
	out.WriteString(fmt.Sprintf("%-2d", len(f.Data)) + " || ")
	out.WriteString(red("%-44s", hexView(f.Data)))
	out.WriteString(" || ")
	out.WriteString(yellow("%s", onlyPrintable(f.Data)))
	return out.String()
}

func (f *CANFrame) idString() string {
	if f.Extended {
		return fmt.Sprintf("0x%08X", f.ID)
	}
	return fmt.Sprintf("0x%03X", f.ID)
}

func hexView(data []byte) string {
	var out strings.Builder
	for i, b := range data {
		out.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 126 {
			out.WriteString("·")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
