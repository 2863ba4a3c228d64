package cli

import "github.com/caarlos0/env/v6"

// Config holds the debug and GC knobs a salmon invocation reads from its
// environment rather than its argument list — the dials a developer
// flips while chasing a GC bug or watching the dispatch loop, never
// something a script's own argv should carry.
type Config struct {
	TraceExecution   bool `env:"SALMON_TRACE_EXECUTION" envDefault:"false"`
	PrintCode        bool `env:"SALMON_PRINT_CODE" envDefault:"false"`
	StressGC         bool `env:"SALMON_STRESS_GC" envDefault:"false"`
	LogGC            bool `env:"SALMON_LOG_GC" envDefault:"false"`
	GCHeapGrowFactor int  `env:"SALMON_GC_HEAP_GROW_FACTOR" envDefault:"0"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
