// Package suite drives a whole benchmarking session: it loads the suite
// configuration, runs every target through the sample collector, derives
// summaries and aggregates, and assembles the report artifact.
package suite

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/paiml/ruchy-docker/pkg/collector"
)

// Duration wraps time.Duration with YAML decoding of "30s"-style strings.
type Duration time.Duration

// UnmarshalYAML decodes a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "cannot parse duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// TargetConfig describes one target inside a benchmark block. Zero-valued
// iteration and timeout fields inherit the suite defaults.
type TargetConfig struct {
	ID             string   `yaml:"id"`
	Command        string   `yaml:"command"`
	WorkDir        string   `yaml:"workdir"`
	ExpectedResult int64    `yaml:"expected_result"`
	Warmup         *int     `yaml:"warmup"`
	Measurements   *int     `yaml:"measurements"`
	Timeout        Duration `yaml:"timeout"`
}

// BenchmarkConfig groups the targets measuring one benchmark.
type BenchmarkConfig struct {
	Name    string         `yaml:"name"`
	Targets []TargetConfig `yaml:"targets"`
}

// Defaults apply to every target that does not override them.
type Defaults struct {
	Warmup       int      `yaml:"warmup"`
	Measurements int      `yaml:"measurements"`
	Timeout      Duration `yaml:"timeout"`
}

// Config is the suite file: the full target list plus the baseline target
// every speedup is computed against.
type Config struct {
	Baseline   string            `yaml:"baseline"`
	Defaults   Defaults          `yaml:"defaults"`
	Benchmarks []BenchmarkConfig `yaml:"benchmarks"`
}

// LoadConfig reads and validates a suite file.
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read suite file %q", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates suite YAML.
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "cannot decode suite file")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate fails fast on configuration errors, before any process is
// spawned.
func (c *Config) validate() error {
	if c.Baseline == "" {
		return errors.New("suite has no baseline target")
	}
	if len(c.Benchmarks) == 0 {
		return errors.New("suite has no benchmarks")
	}

	for _, benchmark := range c.Benchmarks {
		if benchmark.Name == "" {
			return errors.New("benchmark without a name")
		}
		if len(benchmark.Targets) == 0 {
			return errors.Errorf("benchmark %q has no targets", benchmark.Name)
		}

		baselinePresent := false
		seen := map[string]bool{}
		for _, target := range benchmark.Targets {
			if seen[target.ID] {
				return errors.Errorf("benchmark %q defines target %q twice", benchmark.Name, target.ID)
			}
			seen[target.ID] = true
			if target.ID == c.Baseline {
				baselinePresent = true
			}
		}
		if !baselinePresent {
			return errors.Errorf("benchmark %q is missing the baseline target %q", benchmark.Name, c.Baseline)
		}
	}

	// Aggregation needs every target measured on every benchmark, so an
	// asymmetric suite is rejected here, before any process is spawned.
	reference := c.Benchmarks[0]
	referenceSet := map[string]bool{}
	for _, target := range reference.Targets {
		referenceSet[target.ID] = true
	}
	for _, benchmark := range c.Benchmarks[1:] {
		for _, target := range benchmark.Targets {
			if !referenceSet[target.ID] {
				return errors.Errorf("benchmark %q defines target %q which benchmark %q does not",
					benchmark.Name, target.ID, reference.Name)
			}
		}
		if len(benchmark.Targets) != len(reference.Targets) {
			for id := range referenceSet {
				if !containsTarget(benchmark.Targets, id) {
					return errors.Errorf("benchmark %q is missing target %q defined by benchmark %q",
						benchmark.Name, id, reference.Name)
				}
			}
		}
	}

	for _, target := range c.Targets() {
		if err := target.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func containsTarget(targets []TargetConfig, id string) bool {
	for _, target := range targets {
		if target.ID == id {
			return true
		}
	}
	return false
}

// ApplyOverrides mutates the suite with command line overrides and
// re-validates it. Zero values leave the corresponding setting untouched.
func (c *Config) ApplyOverrides(baseline string, warmup, measurements int) error {
	if baseline != "" {
		c.Baseline = baseline
	}
	if warmup > 0 {
		c.Defaults.Warmup = warmup
		for i := range c.Benchmarks {
			for j := range c.Benchmarks[i].Targets {
				c.Benchmarks[i].Targets[j].Warmup = nil
			}
		}
	}
	if measurements > 0 {
		c.Defaults.Measurements = measurements
		for i := range c.Benchmarks {
			for j := range c.Benchmarks[i].Targets {
				c.Benchmarks[i].Targets[j].Measurements = nil
			}
		}
	}
	return c.validate()
}

// Targets resolves the suite into immutable collector targets with the
// defaults applied.
func (c *Config) Targets() []collector.Target {
	var targets []collector.Target
	for _, benchmark := range c.Benchmarks {
		for _, targetConfig := range benchmark.Targets {
			target := collector.Target{
				Benchmark:             benchmark.Name,
				ID:                    targetConfig.ID,
				Command:               targetConfig.Command,
				WorkDir:               targetConfig.WorkDir,
				Timeout:               time.Duration(c.Defaults.Timeout),
				WarmupIterations:      c.Defaults.Warmup,
				MeasurementIterations: c.Defaults.Measurements,
				ExpectedResult:        targetConfig.ExpectedResult,
			}
			if targetConfig.Warmup != nil {
				target.WarmupIterations = *targetConfig.Warmup
			}
			if targetConfig.Measurements != nil {
				target.MeasurementIterations = *targetConfig.Measurements
			}
			if targetConfig.Timeout != 0 {
				target.Timeout = time.Duration(targetConfig.Timeout)
			}
			targets = append(targets, target)
		}
	}
	return targets
}
