// Package laptop adapts device.Base with the embedded-controller fan and
// power-mode command used on laptop hardware: a single combined command
// that atomically sets the game/power mode and a per-fan RPM target, plus
// an optional boost toggle gated by hardware capability.
package laptop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenhub/lumend/anim"
	"github.com/lumenhub/lumend/device"
	"github.com/lumenhub/lumend/frame"
	"github.com/lumenhub/lumend/hardware"
	"github.com/lumenhub/lumend/hid"
	"github.com/lumenhub/lumend/input"
	"github.com/lumenhub/lumend/internal/log"
	"github.com/lumenhub/lumend/prefs"
	"github.com/lumenhub/lumend/protocol"
)

// PowerMode names one of the firmware's fixed game-mode presets.
type PowerMode byte

const (
	PowerBalanced PowerMode = 0
	PowerGaming   PowerMode = 1
	PowerCreator  PowerMode = 2
	PowerCustom   PowerMode = 4
)

const fanStateRefresh = time.Second

// FanState is one fan's cached power-mode/RPM pair, as returned by
// GET_FAN_MODE.
type FanState struct {
	Mode PowerMode
	RPM  int // measured/target RPM, already scaled by 100
}

// SystemControl drives the combined SET_FAN_MODE command and the
// optional boost toggle. State is cached and refreshed at most once per
// second, coalesced by a lock plus a last-refresh timestamp so
// concurrent callers never issue redundant GET_FAN_MODE reads.
type SystemControl struct {
	hw  *hardware.Entry
	run func(ctx context.Context, class, id byte, args []byte) ([]byte, error)

	mu          sync.Mutex
	lastRefresh time.Time
	fans        []FanState
}

// NewSystemControl constructs a SystemControl bound to run (typically
// device.Base.Run), sized to one fan or two per hw.DualFan.
func NewSystemControl(hw *hardware.Entry, run func(ctx context.Context, class, id byte, args []byte) ([]byte, error)) *SystemControl {
	n := 1
	if hw != nil && hw.DualFan {
		n = 2
	}
	return &SystemControl{hw: hw, run: run, fans: make([]FanState, n)}
}

// FanCount reports how many independently addressable fans this model
// exposes.
func (s *SystemControl) FanCount() int { return len(s.fans) }

// refresh re-reads every fan's GET_FAN_MODE state if the cache is older
// than fanStateRefresh. Concurrent callers coalesce onto one refresh.
func (s *SystemControl) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastRefresh) < fanStateRefresh && !s.lastRefresh.IsZero() {
		return nil
	}

	fans := make([]FanState, len(s.fans))
	for i := range fans {
		data, err := s.run(ctx, protocol.ClassLaptopEC, 0x82, []byte{0x00, byte(i)})
		if err != nil {
			return fmt.Errorf("laptop: get fan mode: %w", err)
		}
		if len(data) < 4 {
			continue
		}
		fans[i] = FanState{Mode: PowerMode(data[2]), RPM: int(data[3]) * 100}
	}

	s.fans = fans
	s.lastRefresh = time.Now()
	return nil
}

// FanState returns the cached state of fan index fanID, refreshing first
// if the cache is stale.
func (s *SystemControl) FanState(ctx context.Context, fanID int) (FanState, error) {
	if err := s.refresh(ctx); err != nil {
		return FanState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fanID < 0 || fanID >= len(s.fans) {
		return FanState{}, fmt.Errorf("laptop: fan id %d out of range", fanID)
	}
	return s.fans[fanID], nil
}

// setFanMode issues SET_FAN_MODE for one fan and updates the cache.
func (s *SystemControl) setFanMode(ctx context.Context, fanID int, mode PowerMode, rpm int) error {
	s.mu.Lock()
	if fanID < 0 || fanID >= len(s.fans) {
		s.mu.Unlock()
		return fmt.Errorf("laptop: fan id %d out of range", fanID)
	}
	s.mu.Unlock()

	if _, err := s.run(ctx, protocol.ClassLaptopEC, 0x02, []byte{0x00, byte(fanID), byte(mode), byte(rpm / 100)}); err != nil {
		return err
	}

	s.mu.Lock()
	s.fans[fanID] = FanState{Mode: mode, RPM: rpm}
	s.mu.Unlock()
	return nil
}

// SetFanRPM sets fanID's manual RPM target. rpm==0 means "EC auto" and
// bypasses the model's [MinManualRPM, MaxRPM] bound.
func (s *SystemControl) SetFanRPM(ctx context.Context, fanID, rpm int) error {
	if rpm != 0 && s.hw != nil {
		if rpm < s.hw.MinManualRPM || rpm > s.hw.MaxRPM {
			return fmt.Errorf("laptop: rpm %d out of range [%d,%d]", rpm, s.hw.MinManualRPM, s.hw.MaxRPM)
		}
	}
	cur, err := s.FanState(ctx, fanID)
	if err != nil {
		return err
	}
	return s.setFanMode(ctx, fanID, cur.Mode, rpm)
}

// SetPowerMode changes every fan's power mode while preserving each
// fan's current RPM: it reads the fan's current RPM, then rewrites the
// power mode keeping that RPM, repeating per fan on dual-fan models.
func (s *SystemControl) SetPowerMode(ctx context.Context, mode PowerMode) error {
	for fanID := range s.fans {
		cur, err := s.FanState(ctx, fanID)
		if err != nil {
			return err
		}
		if err := s.setFanMode(ctx, fanID, mode, cur.RPM); err != nil {
			return err
		}
	}
	return nil
}

// SupportsBoost reports whether this model's hardware entry advertises
// the optional boost command.
func (s *SystemControl) SupportsBoost() bool {
	return s.hw != nil && s.hw.SupportsBoost
}

// SetBoost issues the model-gated SET_BOOST command. Returns an error if
// the hardware entry doesn't advertise boost support.
func (s *SystemControl) SetBoost(ctx context.Context, on bool) error {
	if !s.SupportsBoost() {
		return fmt.Errorf("laptop: boost not supported on %s", s.hw.Name)
	}
	v := byte(0)
	if on {
		v = 1
	}
	_, err := s.run(ctx, protocol.ClassLaptopEC, 0x0D, []byte{v})
	return err
}

// Laptop is the laptop device type: Base plus LEDs, firmware effects, a
// matrix frame/animation pipeline (most laptop keyboards have one), and
// the system-control fan/power surface.
type Laptop struct {
	*device.Base
	LEDs   *device.LEDManager
	FX     *device.FXManager
	System *SystemControl
	Input  *input.Queue

	frame *frame.Frame
	loop  *anim.Loop
	prefs *prefs.Config
}

// New constructs a Laptop bound to path, wiring brightness to the
// backlight (or logo, per quirk) LED and the system-control command
// surface. prefsCfg may be nil if preferences are not yet loaded.
func New(key, path string, hw *hardware.Entry, adapter hid.Adapter, tracer log.ProtocolTracer, prefsCfg *prefs.Config) *Laptop {
	base := device.NewBase(key, path, hw, adapter, tracer)
	l := &Laptop{
		Base:   base,
		LEDs:   device.NewLEDManager(hw, base.Run),
		Input:  input.NewQueue(hw),
		prefs:  prefsCfg,
	}
	l.System = NewSystemControl(hw, base.Run)
	l.FX = device.NewFXManager(hw, base.Run, l.stopAnimation, l.persistFX)

	base.SetBrightnessSetter(l.routeBrightness)
	base.PowerStateChanged.Connect(func(ps device.PowerState) {
		if l.loop != nil {
			l.loop.OnPowerStateChanged(anim.PowerState{Brightness: ps.Brightness, Suspended: ps.Suspended})
		}
	})

	if hw.HasMatrix() {
		l.frame = base.NewFrame(func(ctx context.Context) error { return l.FX.Activate(ctx, "custom_frame", nil) })
		l.loop = anim.New(l.frame, l.onLoopError)
	}
	if prefsCfg != nil {
		base.RestorePrefs.Connect(func(rec prefs.Record) {
			device.ApplyPrefs(context.Background(), base, l.LEDs, l.FX, l.loop, rec)
		})
		base.FireRestorePrefs(prefsCfg.Snapshot())
	}
	return l
}

// Frame returns the matrix frame compositor, or nil if this model has no
// lighting matrix.
func (l *Laptop) Frame() *frame.Frame { return l.frame }

// Loop returns the animation loop, or nil if this model has no lighting
// matrix.
func (l *Laptop) Loop() *anim.Loop { return l.loop }

func (l *Laptop) FXManager() *device.FXManager   { return l.FX }
func (l *Laptop) LEDManager() *device.LEDManager { return l.LEDs }

func (l *Laptop) routeBrightness(ctx context.Context, value float64) error {
	ledType := hardware.LEDBacklight
	if l.Hardware.Quirks.Has(hardware.QuirkLogoLEDBrightness) {
		ledType = hardware.LEDLogo
	}
	led, ok := l.LEDs.Get(ledType)
	if !ok {
		return nil
	}
	return led.SetBrightness(ctx, value*100)
}

func (l *Laptop) stopAnimation() {
	if l.loop != nil {
		l.loop.Stop()
	}
}

func (l *Laptop) persistFX(name string, args map[string]any) {
	if l.prefs == nil {
		return
	}
	_ = l.prefs.Update(func(r *prefs.Record) {
		r.FX = &name
		r.FXArgs = args
	})
}

func (l *Laptop) onLoopError() {
	if l.frame != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.frame.Reset(ctx)
	}
}
