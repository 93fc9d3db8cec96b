package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parseID reads a CAN identifier, hex with a 0x prefix and decimal otherwise.
func parseID(s string) (uint32, error) {
	v, err := parseNumber(s, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint32(v), nil
}

// parseHexBytes reads data bytes, always hex, 0x prefix optional.
func parseHexBytes(args []string) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(trimHex(a), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", a, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// parseBytes reads values the way parseID does, limited to one byte each.
func parseBytes(args []string) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := parseNumber(a, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", a, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func parseNumber(s string, bits int) (uint64, error) {
	if h := trimHex(s); h != s {
		return strconv.ParseUint(h, 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}

func trimHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
