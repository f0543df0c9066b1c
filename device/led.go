package device

import (
	"context"
	"math"
	"sync"

	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/internal/util"
	"github.com/lumenhub/lumend/protocol"
)

// LEDMode names one of an LED's firmware animation modes.
type LEDMode int

const (
	LEDModeStatic LEDMode = iota
	LEDModeBlink
	LEDModePulse
	LEDModeSpectrum
)

const ledVarstore = 1

// ledWireID maps an LED zone to the numeric id used in SET/GET_LED_*
// command args, per the firmware's fixed LED enumeration.
var ledWireID = map[hardware.LEDType]byte{
	hardware.LEDScroll:    0x01,
	hardware.LEDBattery:   0x03,
	hardware.LEDLogo:      0x04,
	hardware.LEDBacklight: 0x05,
	hardware.LEDMacro:     0x07,
	hardware.LEDGame:      0x08,
	hardware.LEDProfileR:  0x0E,
	hardware.LEDProfileG:  0x0C,
	hardware.LEDProfileB:  0x0D,
}

// LEDState is one LED zone's cached value, matching the on-wire
// brightness/state/color/mode quadruple.
type LEDState struct {
	State      bool
	Brightness float64 // 0..100
	Color      frame.RGBA
	Mode       LEDMode
}

// LEDChangedEvent is fired by LEDManager whenever any LED's cached state
// changes, whether from a local write or a forced refresh.
type LEDChangedEvent struct {
	LED   hardware.LEDType
	State LEDState
}

// LEDController owns one LED zone's cache and wire access. Reads force a
// batched refresh when dirty; writes coalesce directly into the
// corresponding SET_LED_* command and update only the cached field they
// set. Only a refresh clears the dirty flag.
type LEDController struct {
	ledType  hardware.LEDType
	wireID   byte
	extended bool
	runner   func(ctx context.Context, class, id byte, args []byte) ([]byte, error)

	mu    sync.Mutex
	state LEDState
	dirty bool

	onChange func(LEDChangedEvent)
}

// LEDManager lazily constructs one LEDController per supported LED zone
// and fans device-level changes out through LEDChanged.
type LEDManager struct {
	hw     *hardware.Entry
	runner func(ctx context.Context, class, id byte, args []byte) ([]byte, error)

	mu          sync.Mutex
	controllers map[hardware.LEDType]*LEDController

	restoring bool

	LEDChanged util.Signal[LEDChangedEvent]
}

// NewLEDManager constructs a manager bound to run, typically Base.Run.
func NewLEDManager(hw *hardware.Entry, run func(ctx context.Context, class, id byte, args []byte) ([]byte, error)) *LEDManager {
	return &LEDManager{hw: hw, runner: run, controllers: map[hardware.LEDType]*LEDController{}}
}

// Get returns the cached controller for t, constructing it on first use.
// ok is false if the hardware entry does not expose this LED zone.
func (m *LEDManager) Get(t hardware.LEDType) (*LEDController, bool) {
	if m.hw == nil || !m.hw.SupportsLED(t) {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.controllers[t]; ok {
		return c, true
	}
	c := &LEDController{
		ledType:  t,
		wireID:   ledWireID[t],
		extended: m.hw.Quirks.Has(hardware.QuirkExtendedFXCmds),
		runner:   m.runner,
		dirty:    true,
		onChange: func(ev LEDChangedEvent) {
			m.mu.Lock()
			suppressed := m.restoring
			m.mu.Unlock()
			if !suppressed {
				m.LEDChanged.Fire(ev)
			}
		},
	}
	m.controllers[t] = c
	return c, true
}

// SetValues restores every (ledType -> config dict) pair produced by
// GetValues, suppressing LEDChanged fan-out for the duration so a bulk
// restore doesn't trigger N redundant notifications.
func (m *LEDManager) SetValues(ctx context.Context, values map[hardware.LEDType]map[string]any) error {
	m.mu.Lock()
	m.restoring = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.restoring = false
		m.mu.Unlock()
	}()

	for t, cfg := range values {
		c, ok := m.Get(t)
		if !ok {
			continue
		}
		if err := c.SetValues(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

// GetValues snapshots every constructed controller's config-tagged
// traits, keyed by LED zone.
func (m *LEDManager) GetValues() map[hardware.LEDType]map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[hardware.LEDType]map[string]any, len(m.controllers))
	for t, c := range m.controllers {
		out[t] = c.GetValues()
	}
	return out
}

func (c *LEDController) run(ctx context.Context, class, id byte, args []byte) ([]byte, error) {
	return c.runner(ctx, class, id, args)
}

func (c *LEDController) refreshIfDirty(ctx context.Context) error {
	c.mu.Lock()
	dirty := c.dirty
	c.mu.Unlock()
	if !dirty {
		return nil
	}
	return c.refresh(ctx)
}

// refresh batches state + color + mode + brightness reads and repopulates
// the cache.
func (c *LEDController) refresh(ctx context.Context) error {
	stateData, err := c.run(ctx, protocol.ClassStandardFX, 0x80, []byte{ledVarstore, c.wireID})
	if err != nil {
		return err
	}
	colorData, err := c.run(ctx, protocol.ClassStandardFX, 0x81, []byte{ledVarstore, c.wireID})
	if err != nil {
		return err
	}
	modeData, err := c.run(ctx, protocol.ClassStandardFX, 0x82, []byte{ledVarstore, c.wireID})
	if err != nil {
		return err
	}

	brightClass, brightGetID := byte(protocol.ClassStandardFX), byte(0x83)
	if c.extended {
		brightClass, brightGetID = protocol.ClassExtendedFX, 0x84
	}
	brightData, err := c.run(ctx, brightClass, brightGetID, []byte{ledVarstore, c.wireID})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if len(stateData) > 2 {
		c.state.State = stateData[2] != 0
	}
	if len(colorData) > 4 {
		c.state.Color = frame.RGBA{R: float64(colorData[2]) / 255, G: float64(colorData[3]) / 255, B: float64(colorData[4]) / 255, A: 1}
	}
	if len(modeData) > 2 {
		c.state.Mode = LEDMode(modeData[2])
	}
	if len(brightData) > 2 {
		c.state.Brightness = float64(brightData[2]) / 255 * 100
	}
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// State returns the cached LED state, forcing a refresh first if dirty.
func (c *LEDController) State(ctx context.Context) (LEDState, error) {
	if err := c.refreshIfDirty(ctx); err != nil {
		return LEDState{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, nil
}

// SetState writes SET_LED_STATE and updates the cache.
func (c *LEDController) SetState(ctx context.Context, on bool) error {
	v := byte(0)
	if on {
		v = 1
	}
	if _, err := c.run(ctx, protocol.ClassStandardFX, 0x00, []byte{ledVarstore, c.wireID, v}); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.State = on
	snapshot := c.state
	c.mu.Unlock()
	c.onChange(LEDChangedEvent{LED: c.ledType, State: snapshot})
	return nil
}

// SetColor writes SET_LED_COLOR and updates the cache.
func (c *LEDController) SetColor(ctx context.Context, color frame.RGBA) error {
	r, g, b := quantize8(color.R), quantize8(color.G), quantize8(color.B)
	if _, err := c.run(ctx, protocol.ClassStandardFX, 0x01, []byte{ledVarstore, c.wireID, r, g, b}); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Color = color
	snapshot := c.state
	c.mu.Unlock()
	c.onChange(LEDChangedEvent{LED: c.ledType, State: snapshot})
	return nil
}

// SetMode writes SET_LED_MODE and updates the cache.
func (c *LEDController) SetMode(ctx context.Context, mode LEDMode) error {
	if _, err := c.run(ctx, protocol.ClassStandardFX, 0x02, []byte{ledVarstore, c.wireID, byte(mode)}); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Mode = mode
	snapshot := c.state
	c.mu.Unlock()
	c.onChange(LEDChangedEvent{LED: c.ledType, State: snapshot})
	return nil
}

// SetBrightness writes SET_LED_BRIGHTNESS, routed to class 0x0F when the
// device uses extended FX commands, and additionally issues SET_LED_STATE
// whenever value crosses the 0 boundary.
func (c *LEDController) SetBrightness(ctx context.Context, value float64) error {
	c.mu.Lock()
	prev := c.state.Brightness
	c.mu.Unlock()

	scaled := byte(math.Round(value / 100 * 255))
	class, id := byte(protocol.ClassStandardFX), byte(0x03)
	if c.extended {
		class, id = protocol.ClassExtendedFX, 0x04
	}
	if _, err := c.run(ctx, class, id, []byte{ledVarstore, c.wireID, scaled}); err != nil {
		return err
	}

	c.mu.Lock()
	c.state.Brightness = value
	c.mu.Unlock()

	crossedZero := (prev == 0) != (value == 0)
	if crossedZero {
		if err := c.SetState(ctx, value > 0); err != nil {
			return err
		}
	}

	c.mu.Lock()
	snapshot := c.state
	c.mu.Unlock()
	c.onChange(LEDChangedEvent{LED: c.ledType, State: snapshot})
	return nil
}

// hasModes mirrors RGBCapable: every RGB-capable zone in the hardware
// database also exposes firmware animation modes.
func (c *LEDController) hasModes() bool { return c.ledType.RGBCapable() }

// GetValues returns only the config-tagged traits: brightness always,
// color when RGB-capable, mode when the zone has modes.
func (c *LEDController) GetValues() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]any{"brightness": c.state.Brightness}
	if c.ledType.RGBCapable() {
		out["color"] = c.state.Color
	}
	if c.hasModes() {
		out["mode"] = c.state.Mode
	}
	return out
}

// SetValues is the inverse of GetValues, applying whichever keys are
// present.
func (c *LEDController) SetValues(ctx context.Context, values map[string]any) error {
	if v, ok := values["brightness"].(float64); ok {
		if err := c.SetBrightness(ctx, v); err != nil {
			return err
		}
	}
	if v, ok := values["color"].(frame.RGBA); ok && c.ledType.RGBCapable() {
		if err := c.SetColor(ctx, v); err != nil {
			return err
		}
	}
	if v, ok := values["mode"].(LEDMode); ok && c.hasModes() {
		if err := c.SetMode(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func quantize8(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
