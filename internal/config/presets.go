package config

// Presets are named starting points for run configuration: pick one
// with --preset, then override individual fields.
var Presets = map[string]*Config{
	"default": {
		Solver: "rk45", Dt: 0.1, Duration: 5.0,
		Adaptive: true, Tolerance: 1e-6, MinStep: 1e-12, CheckFinite: true,
	},
	"accurate": {
		Solver: "rk45", Dt: 0.01, Duration: 5.0,
		Adaptive: true, Tolerance: 1e-9, MinStep: 1e-14, CheckFinite: true,
	},
	"fast": {
		Solver: "rk4", Dt: 0.05, Duration: 5.0,
		Adaptive: false, CheckFinite: false,
	},
	"fixed": {
		Solver: "euler", Dt: 0.001, Duration: 5.0,
		Adaptive: false, CheckFinite: true,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
