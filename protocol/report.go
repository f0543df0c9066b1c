package protocol

import "fmt"

// ReportSize is the fixed wire size of a standard Razer-style feature
// report: 1 status + 1 tid + 2 remaining + 1 protocol + 1 data_size + 1
// class + 1 id + 80 args + 1 crc + 1 reserved.
const ReportSize = 90

// ArgsSize is the number of usable argument bytes in a report.
const ArgsSize = 80

// Report is a single parsed 90-byte HID feature report, request or
// response.
type Report struct {
	Status           Status
	TransactionID    byte
	RemainingPackets uint16
	ProtocolType     byte
	DataSize         byte
	CommandClass     byte
	CommandID        byte
	Args             [ArgsSize]byte
	CRC              byte
}

// BuildRequest lays out a request report per the wire format and sets
// CRC = XOR(bytes[1..=86]). Status is always 0 on a request. args longer
// than ArgsSize is a programmer error and panics; shorter is zero-padded.
func BuildRequest(cmdClass, cmdID byte, dataSize byte, tid byte, remaining uint16, args []byte) [ReportSize]byte {
	if len(args) > ArgsSize {
		panic(fmt.Sprintf("protocol: args length %d exceeds %d", len(args), ArgsSize))
	}

	var buf [ReportSize]byte
	buf[0] = 0
	buf[1] = tid
	buf[2] = byte(remaining >> 8)
	buf[3] = byte(remaining)
	buf[4] = 0 // protocol_type reserved for future use, always 0 on the wire today
	buf[5] = dataSize
	buf[6] = cmdClass
	buf[7] = cmdID
	copy(buf[8:8+ArgsSize], args)
	buf[88] = xorRange(buf[:], 1, 87)
	buf[89] = 0
	return buf
}

// xorRange XORs buf[from:to] (to exclusive) together.
func xorRange(buf []byte, from, to int) byte {
	var v byte
	for i := from; i < to; i++ {
		v ^= buf[i]
	}
	return v
}

// ParseResponse validates and decodes a 90-byte response buffer against
// the expected transaction id, command class, and command id. CRC is
// checked only when status != OK: observed hardware returns a zero CRC
// on OK replies, so an OK with a mismatched CRC is accepted as-is, while
// a non-OK reply with a bad CRC is rejected and reported as BAD_CRC.
func ParseResponse(buf []byte, expectedTID, expectedClass, expectedID byte) (Status, []byte, error) {
	if len(buf) != ReportSize {
		return StatusUnknown, nil, fmt.Errorf("protocol: response length %d != %d", len(buf), ReportSize)
	}

	status := Status(buf[0])
	tid := buf[1]
	dataSize := buf[5]
	class := buf[6]
	id := buf[7]

	if status != StatusOK {
		want := xorRange(buf, 1, 87)
		if want != buf[88] {
			return StatusBadCRC, nil, nil
		}
	}

	if tid != expectedTID || class != expectedClass || id != expectedID {
		return status, nil, fmt.Errorf(
			"protocol: response mismatch: got tid=%#x class=%#x id=%#x, want tid=%#x class=%#x id=%#x",
			tid, class, id, expectedTID, expectedClass, expectedID)
	}

	if int(dataSize) > ArgsSize {
		dataSize = ArgsSize
	}
	data := make([]byte, dataSize)
	copy(data, buf[8:8+dataSize])
	return status, data, nil
}
