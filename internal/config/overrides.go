package config

// Overrides holds command-line values that take priority over the file.
// Zero values leave the config untouched.
type Overrides struct {
	ConfigPath string // Explicit config file
	Debug      bool
	LogFile    string
	Alignment  string
	Difference string
	Workers    int
	Metrics    bool
}

// apply applies CLI overrides to the config.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if o.Alignment != "" {
		cfg.Engine.Alignment.Strategy = o.Alignment
	}
	if o.Difference != "" {
		cfg.Engine.Difference.Strategy = o.Difference
	}
	if o.Workers > 0 {
		cfg.Loading.Workers = o.Workers
	}
	if o.Metrics {
		cfg.Metrics.Enabled = true
	}
}
