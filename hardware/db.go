package hardware

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var bundled embed.FS

// Database is the loaded, fully-resolved hardware database. Lookups are
// read-only; the database is built once at startup and never mutated.
type Database struct {
	entries []*Entry
	byKey   map[lookupKey]*Entry
}

type lookupKey struct {
	productID uint16
	devType   DeviceType
}

// Load reads and resolves the bundled hardware database. It is the
// normal entry point for daemon startup.
func Load() (*Database, error) {
	data, err := bundled.ReadFile("data/hardware.yaml")
	if err != nil {
		return nil, fmt.Errorf("hardware: read bundled database: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and resolves a hardware database from raw YAML bytes.
// Exposed so tests and alternate deployments can supply a custom file.
func LoadBytes(data []byte) (*Database, error) {
	var raw rawDatabase
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("hardware: parse database: %w", err)
	}
	return resolve(raw)
}

// resolve walks each raw entry up its Parent chain, merging unset fields
// from ancestors, and coerces the result into a flat, immutable Entry
// snapshot. The tree itself is discarded; only resolved snapshots are
// retained; a corrupt database (cycle, bad enum, missing required field)
// is a fatal startup condition.
func resolve(raw rawDatabase) (*Database, error) {
	db := &Database{byKey: make(map[lookupKey]*Entry)}

	resolved := make(map[string]*Entry, len(raw))
	var resolveOne func(key string, visiting map[string]bool) (*Entry, error)

	resolveOne = func(key string, visiting map[string]bool) (*Entry, error) {
		if e, ok := resolved[key]; ok {
			return e, nil
		}
		r, ok := raw[key]
		if !ok {
			return nil, fmt.Errorf("hardware: parent reference %q not found", key)
		}
		if visiting[key] {
			return nil, fmt.Errorf("hardware: inheritance cycle at %q", key)
		}
		visiting[key] = true

		var parent *Entry
		if r.Parent != nil {
			p, err := resolveOne(*r.Parent, visiting)
			if err != nil {
				return nil, fmt.Errorf("hardware: resolving %q: %w", key, err)
			}
			parent = p
		}

		e, err := coerce(key, r, parent)
		if err != nil {
			return nil, err
		}
		resolved[key] = e
		return e, nil
	}

	for key := range raw {
		e, err := resolveOne(key, map[string]bool{})
		if err != nil {
			return nil, err
		}
		db.entries = append(db.entries, e)
		db.byKey[lookupKey{productID: e.ProductID, devType: e.Type}] = e
	}

	return db, nil
}

func coerce(key string, r *rawEntry, parent *Entry) (*Entry, error) {
	e := &Entry{}
	if parent != nil {
		*e = *parent
	}

	if r.Name != nil {
		e.Name = *r.Name
	}
	if r.Manufacturer != nil {
		e.Manufacturer = *r.Manufacturer
	}
	if r.Type != nil {
		t, err := ParseDeviceType(*r.Type)
		if err != nil {
			return nil, fmt.Errorf("hardware: entry %q: %w", key, err)
		}
		e.Type = t
	}
	if r.VendorID != nil {
		v, err := parseHexU16(*r.VendorID)
		if err != nil {
			return nil, fmt.Errorf("hardware: entry %q: vendor_id: %w", key, err)
		}
		e.VendorID = v
	}
	if r.ProductID != nil {
		v, err := parseHexU16(*r.ProductID)
		if err != nil {
			return nil, fmt.Errorf("hardware: entry %q: product_id: %w", key, err)
		}
		e.ProductID = v
	}
	if r.Dimensions != nil {
		e.Dimensions = &Dimensions{Rows: r.Dimensions.Rows, Cols: r.Dimensions.Cols}
	}
	if len(r.SupportedFX) > 0 {
		set := make(map[string]struct{}, len(r.SupportedFX))
		for _, v := range r.SupportedFX {
			set[v] = struct{}{}
		}
		e.SupportedFX = set
	}
	if len(r.SupportedLEDs) > 0 {
		set := make(map[LEDType]struct{}, len(r.SupportedLEDs))
		for _, v := range r.SupportedLEDs {
			l, err := ParseLEDType(v)
			if err != nil {
				return nil, fmt.Errorf("hardware: entry %q: %w", key, err)
			}
			set[l] = struct{}{}
		}
		e.SupportedLEDs = set
	}
	if len(r.Quirks) > 0 {
		set := make(QuirkSet, len(r.Quirks))
		for _, v := range r.Quirks {
			q, err := ParseQuirk(v)
			if err != nil {
				return nil, fmt.Errorf("hardware: entry %q: %w", key, err)
			}
			set[q] = struct{}{}
		}
		e.Quirks = set
	}
	if len(r.KeyMapping) > 0 {
		m := make(map[uint16][]Point, len(r.KeyMapping))
		for code, pts := range r.KeyMapping {
			c, err := strconv.ParseUint(strings.TrimPrefix(code, "0x"), 16, 16)
			if err != nil {
				return nil, fmt.Errorf("hardware: entry %q: key_mapping code %q: %w", key, code, err)
			}
			flat := make([]Point, len(pts))
			for i, p := range pts {
				flat[i] = Point{Row: p.Row, Col: p.Col}
			}
			m[uint16(c)] = flat
		}
		e.KeyMapping = m
	}
	if r.KeyFixups != nil {
		fx := &KeyFixups{}
		for _, idx := range r.KeyFixups.Insert {
			fx.Insert = append(fx.Insert, FixupInsert{Index: idx})
		}
		fx.Delete = append(fx.Delete, r.KeyFixups.Delete...)
		for _, c := range r.KeyFixups.Copy {
			fx.Copy = append(fx.Copy, FixupCopy{From: c[0], To: c[1]})
		}
		e.KeyFixups = fx
	}
	if len(r.RowOffsets) > 0 {
		e.RowOffsets = r.RowOffsets
	}
	if r.MacroKeys != nil {
		e.MacroKeys = *r.MacroKeys
	}
	if r.Revision != nil {
		e.Revision = *r.Revision
	}
	if r.MinManualRPM != nil {
		e.MinManualRPM = *r.MinManualRPM
	}
	if r.MaxRPM != nil {
		e.MaxRPM = *r.MaxRPM
	}
	if r.DualFan != nil {
		e.DualFan = *r.DualFan
	}
	if r.SupportsBoost != nil {
		e.SupportsBoost = *r.SupportsBoost
	}

	if e.Name == "" {
		return nil, fmt.Errorf("hardware: entry %q: missing name after resolution", key)
	}
	return e, nil
}

func parseHexU16(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// Get looks up a hardware entry by product id, optionally narrowed by
// device type. With devType == "" every type is searched. Returns nil,
// false for an unrecognized product id (an UnknownDevice condition,
// which the caller is expected to ignore rather than surface as an
// error).
func (db *Database) Get(productID uint16, devType DeviceType) (*Entry, bool) {
	if devType != "" {
		e, ok := db.byKey[lookupKey{productID: productID, devType: devType}]
		return e, ok
	}
	for k, e := range db.byKey {
		if k.productID == productID {
			return e, true
		}
	}
	return nil, false
}

// All returns every resolved entry in the database, in unspecified order.
func (db *Database) All() []*Entry {
	out := make([]*Entry, len(db.entries))
	copy(out, db.entries)
	return out
}

// VendorIDs returns the distinct vendor ids named anywhere in the
// database, for seeding a devicemgr.Manager's enumeration scope.
func (db *Database) VendorIDs() []uint16 {
	seen := make(map[uint16]struct{})
	var out []uint16
	for _, e := range db.entries {
		if _, ok := seen[e.VendorID]; !ok {
			seen[e.VendorID] = struct{}{}
			out = append(out, e.VendorID)
		}
	}
	return out
}
