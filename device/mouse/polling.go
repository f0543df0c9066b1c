package mouse

import (
	"context"
	"fmt"

	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/protocol"
)

// standardRates is the report-rate set every mouse supports.
var standardRates = []int{125, 500, 1000}

// hyperpollingRates extends standardRates with the higher rates only
// HYPERPOLLING-capable hardware accepts.
var hyperpollingRates = []int{125, 500, 1000, 2000, 4000, 8000}

// standardRateCode and hyperpollingRateCode are two disjoint Hz-to-wire
// code tables: hyperpolling rates use a different numbering than the
// standard set even where the Hz value would otherwise collide with a
// meaningful standard byte.
var standardRateCode = map[int]byte{
	125:  0x08,
	500:  0x02,
	1000: 0x01,
}

var hyperpollingRateCode = map[int]byte{
	125:  0x08,
	500:  0x02,
	1000: 0x01,
	2000: 0x80,
	4000: 0x40,
	8000: 0x20,
}

// Polling drives the mouse's DPI-class report-rate commands.
type Polling struct {
	hyperpolling bool
	run          func(ctx context.Context, class, id byte, args []byte) ([]byte, error)
}

// NewPolling constructs a Polling mixin bound to run.
func NewPolling(hw *hardware.Entry, run func(ctx context.Context, class, id byte, args []byte) ([]byte, error)) *Polling {
	return &Polling{hyperpolling: hw != nil && hw.Quirks.Has(hardware.QuirkHyperpolling), run: run}
}

// AvailableRates lists the report rates (Hz) this mouse accepts.
func (p *Polling) AvailableRates() []int {
	if p.hyperpolling {
		return append([]int(nil), hyperpollingRates...)
	}
	return append([]int(nil), standardRates...)
}

func (p *Polling) codeTable() map[int]byte {
	if p.hyperpolling {
		return hyperpollingRateCode
	}
	return standardRateCode
}

// SetRate issues SET_POLLING_RATE for the given Hz value, rejecting any
// rate not in AvailableRates with a typed error.
func (p *Polling) SetRate(ctx context.Context, hz int) error {
	code, ok := p.codeTable()[hz]
	if !ok {
		return fmt.Errorf("mouse: polling rate %dHz not supported", hz)
	}
	_, err := p.run(ctx, protocol.ClassDPI, 0x04, []byte{code})
	return err
}

// Rate reads the current polling rate back from the device.
func (p *Polling) Rate(ctx context.Context) (int, error) {
	data, err := p.run(ctx, protocol.ClassDPI, 0x84, nil)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, fmt.Errorf("mouse: short GET_POLLING_RATE reply")
	}
	for hz, code := range p.codeTable() {
		if code == data[0] {
			return hz, nil
		}
	}
	return 0, fmt.Errorf("mouse: unrecognized polling rate code %#x", data[0])
}
