// Package config loads the application configuration of the neosage command.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/dataset"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Neo4j Neo4jConfig `yaml:"neo4j"`
	// Sampling is the flat sampling map, see sampling.ParseConfig.
	Sampling map[string]any `yaml:"sampling"`
	Training TrainingConfig `yaml:"training"`
}

// Neo4jConfig holds the connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// TrainingConfig selects the training nodes and how they are batched.
type TrainingConfig struct {
	// Labels selects the training nodes; empty or "*" means every node.
	Labels     []string `yaml:"labels"`
	BatchSize  int      `yaml:"batchSize"`
	Epochs     int      `yaml:"epochs"`
	RandomSeed int64    `yaml:"randomSeed"`
	Shuffle    bool     `yaml:"shuffle"`
	DropLast   bool     `yaml:"dropLast"`
	Prefetch   int      `yaml:"prefetch"`
}

// DefaultConfig returns a configuration for a local Neo4j holding the Cora graph.
func DefaultConfig() Config {
	return Config{
		Neo4j: Neo4jConfig{
			URI:      "neo4j://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Sampling: map[string]any{
			sampling.KeyFeatureProperties: []any{"features"},
			sampling.KeySampleSizes:       []any{10, 5},
			sampling.KeyNegativesPerSeed:  1,
		},
		Training: TrainingConfig{
			Labels:     []string{"TRAIN"},
			BatchSize:  64,
			Epochs:     10,
			RandomSeed: 42,
			Shuffle:    true,
			Prefetch:   2,
		},
	}
}

// LoadConfig reads the YAML configuration file using strict parsing, on top of the
// defaults, then applies the NEO4J_* environment overrides. An empty path yields
// the defaults with the overrides applied.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("YAML syntax error in config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides the Neo4j settings from NEO4J_URI, NEO4J_USERNAME,
// NEO4J_PASSWORD and NEO4J_DATABASE.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for name, dst := range map[string]*string{
		"NEO4J_URI":      &c.Neo4j.URI,
		"NEO4J_USERNAME": &c.Neo4j.Username,
		"NEO4J_PASSWORD": &c.Neo4j.Password,
		"NEO4J_DATABASE": &c.Neo4j.Database,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
}

// SamplingConfig validates the sampling section.
func (c Config) SamplingConfig() (sampling.Config, error) {
	return sampling.ParseConfig(c.Sampling)
}

// LabelFilter returns the training node filter.
func (t TrainingConfig) LabelFilter() sampling.Filter {
	for _, l := range t.Labels {
		if l == sampling.Wildcard {
			return sampling.MatchAny()
		}
	}
	if len(t.Labels) == 0 {
		return sampling.MatchAny()
	}
	return sampling.OneOf(t.Labels...)
}

// DatasetOptions returns the batching options of the training section.
func (t TrainingConfig) DatasetOptions() dataset.Options {
	return dataset.Options{
		BatchSize: t.BatchSize,
		DropLast:  t.DropLast,
		Shuffle:   t.Shuffle,
		Seed:      t.RandomSeed,
		Prefetch:  t.Prefetch,
	}
}
