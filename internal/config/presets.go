package config

import "sort"

var Presets = map[string]*Config{
	"n30": func() *Config {
		c := DefaultConfig()
		c.Target = 30
		c.Kappa = 1
		c.Sim.Duration = 100
		return c
	}(),
	"pair10": func() *Config {
		c := DefaultConfig()
		c.Target = 10
		c.Isolation = "exclude"
		c.Kappa = 1
		c.Sim.Duration = 60
		c.Search.Hi = 2
		c.Search.Threshold = 0.9
		c.Search.Tolerance = 1e-3
		c.Sweep.KappaMax = 2
		return c
	}(),
	"scaling": func() *Config {
		c := DefaultConfig()
		c.Target = 200
		c.Frequencies = "identity"
		c.Sim.Duration = 200
		c.Sim.AverageTail = 50
		c.Search.Repeats = 3
		c.Sweep.TargetFrom = 200
		c.Sweep.TargetTo = 1000
		c.Sweep.TargetStep = 100
		return c
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
