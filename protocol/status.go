// Package protocol implements the fixed-size HID request/response framing
// used to drive every supported device: report packing/parsing, CRC,
// the command registry, and the quirk-to-protocol-version selector.
package protocol

// Status is the one-byte reply code a device places at offset 0 of a
// response report.
type Status byte

const (
	StatusUnknown     Status = 0x00
	StatusBusy        Status = 0x01
	StatusOK          Status = 0x02
	StatusFail        Status = 0x03
	StatusTimeout     Status = 0x04
	StatusUnsupported Status = 0x05
	StatusBadCRC      Status = 0xFE
	StatusOSError     Status = 0xFF
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusBusy:
		return "BUSY"
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusBadCRC:
		return "BAD_CRC"
	case StatusOSError:
		return "OS_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Transient reports whether a status should be retried rather than
// treated as a final answer: BUSY and any status this package doesn't
// otherwise recognize.
func (s Status) Transient() bool {
	switch s {
	case StatusBusy:
		return true
	case StatusOK, StatusFail, StatusTimeout, StatusUnsupported, StatusBadCRC, StatusOSError:
		return false
	default:
		return true
	}
}
