package quickcan

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/quickcan/goquickcan/pkg/frame"
	"golang.org/x/mod/semver"
)

// DeviceInfo is the adapter's answer to DEVICE_INFO.
type DeviceInfo struct {
	Firmware string
	Raw      []byte
}

func (i DeviceInfo) String() string {
	if i.Firmware == "" {
		return fmt.Sprintf("firmware unknown (raw %X)", i.Raw)
	}
	return "firmware " + i.Firmware
}

// ParseDeviceInfo reads the firmware version string carried in a DEVICE_INFO
// reply. The version is ASCII, right padded with NULs.
func ParseDeviceInfo(f *frame.CANFrame) (DeviceInfo, error) {
	if f == nil {
		return DeviceInfo{}, errors.New("no device info frame")
	}
	info := DeviceInfo{Raw: append([]byte(nil), f.Data...)}
	v := bytes.TrimRight(f.Data, "\x00")
	for _, c := range v {
		if c < 0x20 || c > 0x7E {
			return info, fmt.Errorf("device info is not a version string: %X", f.Data)
		}
	}
	info.Firmware = strings.TrimSpace(string(v))
	return info, nil
}

// CheckFirmware returns ErrFirmwareTooOld when version is below minimum.
// Both are semantic versions, the leading "v" is optional.
func CheckFirmware(version, minimum string) error {
	v, m := canonical(version), canonical(minimum)
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid firmware version %q", version)
	}
	if !semver.IsValid(m) {
		return fmt.Errorf("invalid minimum firmware version %q", minimum)
	}
	if semver.Compare(v, m) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrFirmwareTooOld, semver.Canonical(v), semver.Canonical(m))
	}
	return nil
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
