package layout

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ForceConfig tunes the iterative physics simulation. The defaults scale
// themselves down for dense graphs (past 200 and 500 visible nodes) inside
// the engine; the values here are the base, small-graph settings.
type ForceConfig struct {
	LinkDistance   float64 `toml:"link_distance"`
	LinkStrength   float64 `toml:"link_strength"`
	RepelStrength  float64 `toml:"repel_strength"`
	RepelMax       float64 `toml:"repel_max_distance"`
	CenterStrength float64 `toml:"center_strength"`
	CollidePadding float64 `toml:"collide_padding"`
	AlphaMin       float64 `toml:"alpha_min"`
	AlphaDecay     float64 `toml:"alpha_decay"`
	VelocityDecay  float64 `toml:"velocity_decay"`
}

// PackConfig tunes the hierarchical circle packing.
type PackConfig struct {
	RootPadding    float64 `toml:"root_padding"`
	NestedPadding  float64 `toml:"nested_padding"`
	MinRadius      float64 `toml:"min_radius"`
	LabelMinRadius float64 `toml:"label_min_radius"`
}

// Config bundles the tunable layout parameters. A TOML file can override any
// subset; unset keys keep their defaults.
type Config struct {
	Force ForceConfig `toml:"force"`
	Pack  PackConfig  `toml:"pack"`
}

// DefaultConfig returns the built-in tuning.
func DefaultConfig() Config {
	return Config{
		Force: ForceConfig{
			LinkDistance:   32,
			LinkStrength:   0.55,
			RepelStrength:  -85,
			RepelMax:       165,
			CenterStrength: 0.04,
			CollidePadding: 2,
			AlphaMin:       0.004,
			AlphaDecay:     0.0228,
			VelocityDecay:  0.38,
		},
		Pack: PackConfig{
			RootPadding:    14,
			NestedPadding:  4,
			MinRadius:      6,
			LabelMinRadius: 11,
		},
	}
}

// LoadConfigFile reads a TOML tuning file over the defaults. Keys absent
// from the file keep their default values.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}
