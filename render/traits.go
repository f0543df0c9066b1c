package render

import (
	"fmt"
	"reflect"

	"github.com/lumenhub/lumend/frame"
)

// SetTraits applies a config-tagged trait bag to a renderer's exported
// fields (including promoted fields from an embedded BaseTraits), the same
// shape persisted by preferences and accepted over the control API's
// SetLayerTraits method. Unknown keys are ignored rather than rejected, so
// a client can push a superset of traits across renderer types.
func SetTraits(r Renderer, traits map[string]any) error {
	v := reflect.ValueOf(r)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("render: traits target must be a non-nil pointer")
	}
	elem := v.Elem()
	for name, val := range traits {
		field := findField(elem, name)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		if err := assign(field, val); err != nil {
			return fmt.Errorf("render: trait %q: %w", name, err)
		}
	}
	return nil
}

// GetTraits snapshots every exported field on a renderer, including those
// promoted from an embedded BaseTraits, keyed by field name. Used to build
// the preferences layer record and the control API's LayerTraits view.
func GetTraits(r Renderer) map[string]any {
	out := map[string]any{}
	v := reflect.ValueOf(r)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	collectFields(v, out)
	return out
}

func collectFields(v reflect.Value, out map[string]any) {
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)
		if sf.Anonymous && fv.Kind() == reflect.Struct {
			collectFields(fv, out)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		out[sf.Name] = fv.Interface()
	}
}

// findField looks up name case-insensitively across a struct's exported
// fields, descending into anonymous (embedded) struct fields such as
// BaseTraits.
func findField(v reflect.Value, name string) reflect.Value {
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous {
			if f := findField(v.Field(i), name); f.IsValid() {
				return f
			}
			continue
		}
		if equalFold(sf.Name, name) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

var rgbaType = reflect.TypeOf(frame.RGBA{})

func assign(field reflect.Value, val any) error {
	if field.Type() == rgbaType {
		c, err := decodeRGBA(val)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(c))
		return nil
	}
	if field.Type() == reflect.PointerTo(rgbaType) {
		if val == nil {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		c, err := decodeRGBA(val)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(&c))
		return nil
	}

	rv := reflect.ValueOf(val)
	switch field.Kind() {
	case reflect.Bool:
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", val)
		}
		field.SetBool(b)
	case reflect.String:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
		field.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := asNumber(val)
		if !ok {
			return fmt.Errorf("expected number, got %T", val)
		}
		field.SetInt(int64(f))
	case reflect.Float32, reflect.Float64:
		f, ok := asNumber(val)
		if !ok {
			return fmt.Errorf("expected number, got %T", val)
		}
		field.SetFloat(f)
	default:
		if rv.IsValid() && rv.Type().AssignableTo(field.Type()) {
			field.Set(rv)
			return nil
		}
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

func decodeRGBA(val any) (frame.RGBA, error) {
	m, ok := val.(map[string]any)
	if !ok {
		return frame.RGBA{}, fmt.Errorf("expected color object, got %T", val)
	}
	return frame.RGBA{R: toFloat(m["R"]), G: toFloat(m["G"]), B: toFloat(m["B"]), A: toFloat(m["A"])}, nil
}

func asNumber(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func toFloat(v any) float64 {
	f, _ := asNumber(v)
	return f
}
