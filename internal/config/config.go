// Package config carries the run-wide settings shared by the CLI commands.
package config

// RunConfig bundles where an experiment run reads questions from and writes
// results to, plus the execution knobs that are not part of the experiment
// definition itself.
type RunConfig struct {
	resultsDir string
	dataDir    string
	parallel   int
	verbose    bool
	dryRun     bool
}

// Option configures a RunConfig.
type Option func(*RunConfig)

// WithResultsDir sets the directory experiment output is written to.
func WithResultsDir(dir string) Option {
	return func(c *RunConfig) {
		c.resultsDir = dir
	}
}

// WithDataDir sets the directory question banks are loaded from.
func WithDataDir(dir string) Option {
	return func(c *RunConfig) {
		c.dataDir = dir
	}
}

// WithParallel sets how many experiments run concurrently.
func WithParallel(n int) Option {
	return func(c *RunConfig) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// WithVerbose enables per-trial progress output.
func WithVerbose(verbose bool) Option {
	return func(c *RunConfig) {
		c.verbose = verbose
	}
}

// WithDryRun enables enumeration without API calls.
func WithDryRun(dryRun bool) Option {
	return func(c *RunConfig) {
		c.dryRun = dryRun
	}
}

// NewRunConfig creates a RunConfig with defaults and applies options.
func NewRunConfig(opts ...Option) *RunConfig {
	c := &RunConfig{
		resultsDir: "results",
		dataDir:    "data",
		parallel:   1,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ResultsDir returns the experiment output directory.
func (c *RunConfig) ResultsDir() string { return c.resultsDir }

// DataDir returns the question bank directory.
func (c *RunConfig) DataDir() string { return c.dataDir }

// Parallel returns the experiment concurrency.
func (c *RunConfig) Parallel() int { return c.parallel }

// Verbose reports whether per-trial progress output is enabled.
func (c *RunConfig) Verbose() bool { return c.verbose }

// DryRun reports whether trials should be enumerated but not executed.
func (c *RunConfig) DryRun() bool { return c.dryRun }
