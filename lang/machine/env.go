package machine

import "github.com/caarlos0/env/v6"

// envConfig carries VM resource knobs that may be overridden by environment
// variables, for embedders that want to tune limits without recompiling.
type envConfig struct {
	// MaxSteps caps the number of instructions a single Interpret call may
	// execute before it is aborted with a runtime error. Zero means no limit.
	MaxSteps int `env:"EMBER_MAX_STEPS" envDefault:"0"`
	// GCGrowFactor overrides the default multiplier applied to bytesAllocated
	// to compute the next collection threshold. Zero keeps the built-in default.
	GCGrowFactor int `env:"EMBER_GC_GROW_FACTOR" envDefault:"0"`
}

func loadEnvConfig() envConfig {
	var cfg envConfig
	// Malformed environment values are not fatal: fall back to the defaults
	// rather than refusing to start the engine over a tuning knob.
	_ = env.Parse(&cfg)
	return cfg
}
