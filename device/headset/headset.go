// Package headset adapts the RAM/EEPROM-addressed wire protocol used by
// wireless headset hardware to the same device vocabulary (LEDs,
// firmware effects, identity) the rest of the daemon expects, even
// though the headset has no class/id command set and no lighting
// matrix. Outer code only ever sees Key/Path/Hardware plus the usual FX
// and identity accessors; it does not need to know the framing differs.
package headset

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
	"github.com/lumenhub/lumend/protocol"
)

// Fixed EEPROM addresses, common to both hardware revisions.
const (
	addrFirmwareVersion uint16 = 0x0030
	addrSerialNumber    uint16 = 0x7f00
)

// Revision-specific RAM addresses. Revision 1 (Rainie) has a single RGB
// slot; revision 2 (Kylie) has three, enabling the double/triple breathe
// effects.
const (
	addrRainieLEDMode uint16 = 0x1008
	addrRainieColor0  uint16 = 0x15DE

	addrKylieLEDMode uint16 = 0x172D
	addrKylieColor0  uint16 = 0x1741
	addrKylieColor1  uint16 = 0x1745
	addrKylieColor2  uint16 = 0x174D
)

// effectBits is the RAM-resident LED-mode bitfield. Multiple breathe
// flags are mutually exclusive; which one is set selects how many of
// the color slots are read back by the firmware.
type effectBits byte

const (
	bitOn             effectBits = 0x01
	bitBreatheSingle  effectBits = 0x02
	bitSpectrum       effectBits = 0x04
	bitSync           effectBits = 0x08
	bitBreatheDouble  effectBits = 0x10
	bitBreatheTriple  effectBits = 0x20
)

// colorCount reports how many RGB slots this mode reads, per the
// breathe-flag that's set.
func (b effectBits) colorCount() int {
	switch {
	case b&bitBreatheTriple != 0:
		return 3
	case b&bitBreatheDouble != 0:
		return 2
	case b&bitBreatheSingle != 0:
		return 1
	case b&bitOn != 0:
		return 1
	default:
		return 0
	}
}

// Headset is the device type for the 33/37-byte RAM/EEPROM-addressed
// protocol variant. It has no command-class vocabulary and no lighting
// matrix, so it implements just enough surface to be useful: firmware
// effect selection limited to this hardware's supported_fx, and cached
// identity fields.
type Headset struct {
	Key      string
	Path     string
	Hardware *hardware.Entry

	transport *protocol.HeadsetTransport
	prefs     *prefs.Config

	ledModeAddr uint16
	colorAddrs  []uint16

	mu        sync.Mutex
	firmware  string
	serial    string
	currentFX string
}

// New constructs a Headset bound to path. The revision (and therefore
// which RAM addresses are used) is read from hw.Revision: 1 selects the
// single-color Rainie layout, anything else the triple-color Kylie
// layout.
func New(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) *Headset {
	h := &Headset{
		Key:      key,
		Path:     path,
		Hardware: hw,
		prefs:    prefsCfg,
	}
	h.transport = &protocol.HeadsetTransport{
		Adapter:   adapter,
		Tracer:    tracer,
		DeviceKey: key,
		Open:      func() error { return adapter.Open(path, true) },
	}
	if hw.Revision == 1 {
		h.ledModeAddr = addrRainieLEDMode
		h.colorAddrs = []uint16{addrRainieColor0}
	} else {
		h.ledModeAddr = addrKylieLEDMode
		h.colorAddrs = []uint16{addrKylieColor0, addrKylieColor1, addrKylieColor2}
	}
	if prefsCfg != nil {
		h.restoreFX(context.Background(), prefsCfg.Snapshot())
	}
	return h
}

// restoreFX re-applies a previously persisted firmware effect and its
// colors. Headset has no LED/FX manager layering to hang a RestorePrefs
// observer off of, so it just replays the record directly at
// construction time.
func (h *Headset) restoreFX(ctx context.Context, rec prefs.Record) {
	if rec.FX == nil {
		return
	}
	_ = h.Activate(ctx, *rec.FX, decodeColors(rec.FXArgs))
}

// decodeColors recovers the []frame.RGB8 slice persisted by Activate's
// fx_args["colors"] entry, as round-tripped through JSON.
func decodeColors(args map[string]any) []frame.RGB8 {
	raw, ok := args["colors"].([]any)
	if !ok {
		return nil
	}
	out := make([]frame.RGB8, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, frame.RGB8{R: byteOf(m["R"]), G: byteOf(m["G"]), B: byteOf(m["B"])})
	}
	return out
}

func byteOf(v any) byte {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return byte(f)
}

// encodeColors converts colors to the JSON-friendly shape persisted in
// fx_args["colors"].
func encodeColors(colors []frame.RGB8) []map[string]any {
	out := make([]map[string]any, 0, len(colors))
	for _, c := range colors {
		out = append(out, map[string]any{"R": c.R, "G": c.G, "B": c.B})
	}
	return out
}

// Frame satisfies the device-manager's narrow "has animation?" probe
// alongside the matrix device types; a headset never has one.
func (h *Headset) Frame() *frame.Frame { return nil }

func (h *Headset) DeviceKey() string              { return h.Key }
func (h *Headset) DevicePath() string             { return h.Path }
func (h *Headset) HardwareEntry() *hardware.Entry { return h.Hardware }

// Close releases the underlying HID handle.
func (h *Headset) Close() error { return h.transport.Adapter.Close() }

// Identify fetches and caches firmware version and serial number from
// EEPROM. Safe to call more than once.
func (h *Headset) Identify(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.firmware != "" {
		return
	}
	h.firmware = h.fetchFirmware(ctx)
	h.serial = h.fetchSerial(ctx)
}

func (h *Headset) FirmwareVersion() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.firmware == "" {
		return "(unknown)"
	}
	return h.firmware
}

func (h *Headset) SerialNumber() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.serial == "" {
		return h.Key
	}
	return h.serial
}

func (h *Headset) fetchFirmware(ctx context.Context) string {
	data, err := h.transport.Read(ctx, protocol.HeadsetCommand{
		Destination: protocol.HeadsetReadEEPROM,
		Length:      2,
		Address:     addrFirmwareVersion,
	}, nil)
	if err != nil || len(data) < 2 {
		return "(unknown)"
	}
	return fmt.Sprintf("v%d.%d", data[0], data[1])
}

func (h *Headset) fetchSerial(ctx context.Context) string {
	data, err := h.transport.Read(ctx, protocol.HeadsetCommand{
		Destination: protocol.HeadsetReadEEPROM,
		Length:      16,
		Address:     addrSerialNumber,
	}, nil)
	if err != nil || len(data) == 0 {
		return h.Key
	}
	s := strings.TrimRight(string(data), "\x00")
	if s == "" {
		return h.Key
	}
	return s
}

// SupportedFX lists the firmware effects this hardware entry declares.
func (h *Headset) SupportedFX() []string {
	out := make([]string, 0, len(h.Hardware.SupportedFX))
	for name := range h.Hardware.SupportedFX {
		out = append(out, name)
	}
	return out
}

// Activate selects a firmware effect by name and, for the breathe
// effects, the colors to cycle through. Unknown or unsupported names
// are rejected; "disable" and the colorless effects ignore colors.
func (h *Headset) Activate(ctx context.Context, name string, colors []frame.RGB8) error {
	if !h.Hardware.SupportsFX(name) {
		return fmt.Errorf("headset: unsupported effect %q", name)
	}

	bits, err := h.resolveBits(name, len(colors))
	if err != nil {
		return err
	}

	if err := h.writeColors(ctx, bits.colorCount(), colors); err != nil {
		return err
	}
	if err := h.writeByte(ctx, h.ledModeAddr, byte(bits)); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentFX = name
	h.mu.Unlock()

	if h.prefs != nil && name != "disable" {
		_ = h.prefs.Update(func(r *prefs.Record) {
			r.FX = &name
			if len(colors) > 0 {
				r.FXArgs = map[string]any{"colors": encodeColors(colors)}
			}
		})
	}
	return nil
}

// CurrentFX returns the name of the most recently activated effect, or
// "" if none has been activated this session.
func (h *Headset) CurrentFX() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentFX
}

func (h *Headset) resolveBits(name string, numColors int) (effectBits, error) {
	switch name {
	case "disable":
		return 0, nil
	case "static":
		return bitOn, nil
	case "spectrum":
		return bitSpectrum, nil
	case "breathe":
		switch {
		case len(h.colorAddrs) >= 3 && numColors >= 3:
			return bitBreatheTriple, nil
		case len(h.colorAddrs) >= 2 && numColors >= 2:
			return bitBreatheDouble, nil
		default:
			return bitBreatheSingle, nil
		}
	default:
		return 0, fmt.Errorf("headset: effect %q has no bit mapping", name)
	}
}

func (h *Headset) writeColors(ctx context.Context, count int, colors []frame.RGB8) error {
	if count > len(h.colorAddrs) {
		count = len(h.colorAddrs)
	}
	for i := 0; i < count && i < len(colors); i++ {
		c := colors[i]
		args := []byte{0xFF, c.R, c.G, c.B}
		if err := h.transport.Write(ctx, protocol.HeadsetCommand{
			Destination: protocol.HeadsetWriteRAM,
			Length:      byte(len(args)),
			Address:     h.colorAddrs[i],
		}, args); err != nil {
			return err
		}
	}
	return nil
}

func (h *Headset) writeByte(ctx context.Context, addr uint16, value byte) error {
	return h.transport.Write(ctx, protocol.HeadsetCommand{
		Destination: protocol.HeadsetWriteRAM,
		Length:      1,
		Address:     addr,
	}, []byte{value})
}
