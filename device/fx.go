package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/internal/util"
	"github.com/lumenhub/lumend/protocol"
)

// builtinFX is the fixed catalog of firmware effects every device
// potentially exposes, filtered per-device by the hardware entry's
// supported_fx set. "custom_frame" and "disable" are exempt from
// preferences persistence: custom_frame is an internal follow-up issued
// by Commit, and disable needs no restore.
var builtinFX = []string{"static", "wave", "breathe", "spectrum", "custom_frame", "disable"}

var standardEffectID = map[string]byte{
	"static":       protocol.EffectStatic,
	"wave":         protocol.EffectWave,
	"breathe":      protocol.EffectBreathe,
	"spectrum":     protocol.EffectSpectrum,
	"custom_frame": protocol.EffectCustomFrame,
	"disable":      protocol.EffectDisable,
}

var extendedEffectID = map[string]byte{
	"static":       protocol.ExtEffectStatic,
	"wave":         protocol.ExtEffectWave,
	"breathe":      protocol.ExtEffectBreathe,
	"spectrum":     protocol.ExtEffectSpectrum,
	"custom_frame": protocol.ExtEffectCustomFrame,
	"disable":      protocol.ExtEffectDisable,
}

func noPersist(name string) bool { return name == "disable" || name == "custom_frame" }

// FXManager drives firmware effect activation: resolving the standard vs
// extended command family, issuing SET_EFFECT[_EXTENDED], tracking the
// currently active effect, and persisting it (except for the two exempt
// names) to preferences.
type FXManager struct {
	hw           *hardware.Entry
	run          func(ctx context.Context, class, id byte, args []byte) ([]byte, error)
	extended     bool
	extendedLED  byte

	stopAnimation func()
	persist       func(name string, args map[string]any)

	mu          sync.Mutex
	currentName string
	currentArgs map[string]any

	FXChanged util.Signal[string]
}

// NewFXManager constructs a manager bound to run (typically Base.Run).
// stopAnimation, if non-nil, is called before every Activate except
// "custom_frame" (which Frame.Commit issues from inside the running loop)
// so a running animation loop never races a firmware effect write; persist, if
// non-nil, is called after every non-exempt successful activation.
func NewFXManager(hw *hardware.Entry, run func(ctx context.Context, class, id byte, args []byte) ([]byte, error), stopAnimation func(), persist func(name string, args map[string]any)) *FXManager {
	return &FXManager{
		hw:            hw,
		run:           run,
		extended:      hw != nil && hw.Quirks.Has(hardware.QuirkExtendedFXCmds),
		extendedLED:   ledWireID[hardware.LEDBacklight],
		stopAnimation: stopAnimation,
		persist:       persist,
	}
}

// AvailableFX lists the builtin effect names supported by this device's
// hardware entry.
func (m *FXManager) AvailableFX() []string {
	var out []string
	for _, name := range builtinFX {
		if m.hw == nil || m.hw.SupportsFX(name) {
			out = append(out, name)
		}
	}
	return out
}

// CurrentFX returns the name and args of the most recently activated
// effect, or ("", nil) if none has been activated yet.
func (m *FXManager) CurrentFX() (string, map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentName, m.currentArgs
}

// Activate stops any running animation (except for "custom_frame", the
// follow-up to a frame the loop itself committed), issues the firmware effect
// command for name with the optional raw wire tail from args["raw"], and
// on success records it as current and persists it unless name is
// exempt. args is otherwise opaque and stored for IPC display/restore.
func (m *FXManager) Activate(ctx context.Context, name string, args map[string]any) error {
	if m.hw != nil && !m.hw.SupportsFX(name) {
		return fmt.Errorf("device: fx %q not supported", name)
	}

	table := standardEffectID
	class := byte(protocol.ClassStandardFX)
	id := byte(0x0A)
	if m.extended {
		table = extendedEffectID
		class = protocol.ClassExtendedFX
		id = 0x02
	}
	effectID, ok := table[name]
	if !ok {
		return fmt.Errorf("device: unknown fx %q", name)
	}

	if m.stopAnimation != nil && name != "custom_frame" {
		m.stopAnimation()
	}

	var raw []byte
	if v, ok := args["raw"].([]byte); ok {
		raw = v
	}

	var wireArgs []byte
	if m.extended {
		wireArgs = append([]byte{ledVarstore, m.extendedLED, effectID}, raw...)
	} else {
		wireArgs = append([]byte{effectID}, raw...)
	}

	if _, err := m.run(ctx, class, id, wireArgs); err != nil {
		return err
	}

	m.mu.Lock()
	m.currentName = name
	m.currentArgs = args
	m.mu.Unlock()

	if !noPersist(name) && m.persist != nil {
		m.persist(name, args)
	}
	m.FXChanged.Fire(name)
	return nil
}

// Disable is sugar for Activate(ctx, "disable", nil).
func (m *FXManager) Disable(ctx context.Context) error {
	return m.Activate(ctx, "disable", nil)
}
