package hardware

// rawEntry mirrors the bundled YAML schema before type coercion and
// hierarchical resolution. Every field is a pointer or nil-able so an
// entry can leave a field unset and inherit it from Parent.
type rawEntry struct {
	Name         *string       `yaml:"name"`
	Manufacturer *string       `yaml:"manufacturer"`
	Type         *string       `yaml:"type"`
	VendorID     *string       `yaml:"vendor_id"`
	ProductID    *string       `yaml:"product_id"`
	Parent       *string       `yaml:"parent"`
	Dimensions   *rawDims      `yaml:"dimensions"`
	SupportedFX  []string      `yaml:"supported_fx"`
	SupportedLEDs []string     `yaml:"supported_leds"`
	Quirks       []string      `yaml:"quirks"`
	KeyMapping   map[string][]rawPoint `yaml:"key_mapping"`
	KeyFixups    *rawKeyFixups `yaml:"key_fixups"`
	RowOffsets   []int         `yaml:"row_offsets"`
	MacroKeys    *bool         `yaml:"macro_keys"`
	Revision     *int          `yaml:"revision"`

	MinManualRPM *int  `yaml:"min_manual_rpm"`
	MaxRPM       *int  `yaml:"max_rpm"`
	DualFan      *bool `yaml:"dual_fan"`
	SupportsBoost *bool `yaml:"supports_boost"`
}

type rawDims struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

type rawPoint struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

type rawKeyFixups struct {
	Insert []int `yaml:"insert"`
	Delete []int `yaml:"delete"`
	Copy   [][2]int `yaml:"copy"`
}

// rawDatabase is the top-level shape of the bundled hardware data file: a
// flat map of symbolic model key to raw entry. Model keys are arbitrary
// identifiers used only to express Parent references within the file;
// external lookups are by product id, optionally narrowed by type.
type rawDatabase map[string]*rawEntry
