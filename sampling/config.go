package sampling

import (
	"fmt"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration map keys.
const (
	KeyFeatureProperties = "featureProperties"
	KeyNodeLabels        = "nodeLabels"
	KeyRelationshipTypes = "relationshipTypes"
	KeySampleSizes       = "sampleSizes"
	KeyNegativesPerSeed  = "negativesPerSeed"
)

// MaxCount bounds every fan-out and negativesPerSeed value.
const MaxCount = math.MaxInt32

// Defaults applied when a key is absent.
var (
	DefaultFanouts          = []int{10, 5}
	DefaultNegativesPerSeed = 1
)

// Config is the validated, immutable description of how batches are sampled.
// Build it with NewConfig, ParseConfig or LoadConfig; the zero value is not valid.
type Config struct {
	features   []string
	nodeLabels Filter
	relTypes   Filter
	fanouts    []int
	negatives  int
}

// Option customises a Config built by NewConfig.
type Option func(*Config)

// WithNodeLabels restricts neighbors and negatives to nodes accepted by f.
func WithNodeLabels(f Filter) Option {
	return func(c *Config) { c.nodeLabels = f }
}

// WithRelationshipTypes restricts traversal to relationship types accepted by f.
func WithRelationshipTypes(f Filter) Option {
	return func(c *Config) { c.relTypes = f }
}

// WithFanouts sets the per-hop fan-out, outermost hop first.
func WithFanouts(fanouts ...int) Option {
	return func(c *Config) { c.fanouts = slices.Clone(fanouts) }
}

// WithNegativesPerSeed sets how many negatives are drawn for each seed.
func WithNegativesPerSeed(n int) Option {
	return func(c *Config) { c.negatives = n }
}

// NewConfig builds a Config from the required feature properties and options.
// Unset options take the package defaults: match-any filters, DefaultFanouts and
// DefaultNegativesPerSeed.
func NewConfig(featureProperties []string, opts ...Option) (Config, error) {
	c := Config{
		features:  slices.Clone(featureProperties),
		fanouts:   slices.Clone(DefaultFanouts),
		negatives: DefaultNegativesPerSeed,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ParseConfig builds a Config from a flat key-value map such as the one decoded from
// YAML or JSON, or passed by a procedure call. Lists may be given as []string, []any
// or a single string; integers may be any integer kind or an integral float.
// Unknown keys are rejected.
func ParseConfig(raw map[string]any) (Config, error) {
	var unknown []string
	for k := range raw {
		switch k {
		case KeyFeatureProperties, KeyNodeLabels, KeyRelationshipTypes, KeySampleSizes, KeyNegativesPerSeed:
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrConfiguration, strings.Join(unknown, ", "))
	}

	v, ok := raw[KeyFeatureProperties]
	if !ok || v == nil {
		return Config{}, fmt.Errorf("%w: %s must be provided", ErrConfiguration, KeyFeatureProperties)
	}
	features, err := stringList(KeyFeatureProperties, v)
	if err != nil {
		return Config{}, err
	}

	var opts []Option
	if v, ok := raw[KeyNodeLabels]; ok && v != nil {
		f, err := parseFilter(KeyNodeLabels, v)
		if err != nil {
			return Config{}, err
		}
		opts = append(opts, WithNodeLabels(f))
	}
	if v, ok := raw[KeyRelationshipTypes]; ok && v != nil {
		f, err := parseFilter(KeyRelationshipTypes, v)
		if err != nil {
			return Config{}, err
		}
		opts = append(opts, WithRelationshipTypes(f))
	}
	if v, ok := raw[KeySampleSizes]; ok && v != nil {
		sizes, err := intList(KeySampleSizes, v)
		if err != nil {
			return Config{}, err
		}
		opts = append(opts, WithFanouts(sizes...))
	}
	if v, ok := raw[KeyNegativesPerSeed]; ok && v != nil {
		n, err := intValue(KeyNegativesPerSeed, v)
		if err != nil {
			return Config{}, err
		}
		opts = append(opts, WithNegativesPerSeed(n))
	}
	return NewConfig(features, opts...)
}

// LoadConfig reads a flat YAML mapping from path and parses it with ParseConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read sampling config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return ParseConfig(raw)
}

func (c *Config) validate() error {
	if len(c.features) == 0 {
		return fmt.Errorf("%w: %s must not be empty", ErrConfiguration, KeyFeatureProperties)
	}
	for _, p := range c.features {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: %s contains a blank name", ErrConfiguration, KeyFeatureProperties)
		}
	}
	if len(c.fanouts) == 0 {
		return fmt.Errorf("%w: %s must have at least one hop", ErrConfiguration, KeySampleSizes)
	}
	for i, k := range c.fanouts {
		if k < 0 {
			return fmt.Errorf("%w: %s[%d] is negative (%d)", ErrConfiguration, KeySampleSizes, i, k)
		}
		if k > MaxCount {
			return fmt.Errorf("%w: %s[%d] exceeds %d", ErrConfiguration, KeySampleSizes, i, MaxCount)
		}
	}
	if c.negatives < 0 {
		return fmt.Errorf("%w: %s is negative (%d)", ErrConfiguration, KeyNegativesPerSeed, c.negatives)
	}
	if c.negatives > MaxCount {
		return fmt.Errorf("%w: %s exceeds %d", ErrConfiguration, KeyNegativesPerSeed, MaxCount)
	}
	if !c.nodeLabels.IsAny() && len(c.nodeLabels.names) == 0 {
		return fmt.Errorf("%w: %s is an empty set", ErrConfiguration, KeyNodeLabels)
	}
	if !c.relTypes.IsAny() && len(c.relTypes.names) == 0 {
		return fmt.Errorf("%w: %s is an empty set", ErrConfiguration, KeyRelationshipTypes)
	}
	return nil
}

// FeatureProperties returns the property names concatenated into each feature row.
func (c Config) FeatureProperties() []string { return slices.Clone(c.features) }

// NodeLabels returns the label filter applied to neighbors and negatives.
func (c Config) NodeLabels() Filter { return c.nodeLabels }

// RelationshipTypes returns the relationship type filter applied to traversal.
func (c Config) RelationshipTypes() Filter { return c.relTypes }

// Fanouts returns the per-hop fan-out, outermost hop first.
func (c Config) Fanouts() []int { return slices.Clone(c.fanouts) }

// Hops returns the number of expansion hops.
func (c Config) Hops() int { return len(c.fanouts) }

// FanoutAt returns the fan-out used at expansion hop h, where hop 0 is the hop
// closest to the batch. It reads the configured list from the end because the list
// is ordered outermost hop first.
func (c Config) FanoutAt(h int) int { return c.fanouts[len(c.fanouts)-1-h] }

// NegativesPerSeed returns the number of negatives drawn per seed.
func (c Config) NegativesPerSeed() int { return c.negatives }

// Map renders the configuration back into the flat map accepted by ParseConfig.
func (c Config) Map() map[string]any {
	m := map[string]any{
		KeyFeatureProperties: c.FeatureProperties(),
		KeySampleSizes:       c.Fanouts(),
		KeyNegativesPerSeed:  c.negatives,
		KeyNodeLabels:        []string{Wildcard},
		KeyRelationshipTypes: []string{Wildcard},
	}
	if !c.nodeLabels.IsAny() {
		m[KeyNodeLabels] = c.nodeLabels.Names()
	}
	if !c.relTypes.IsAny() {
		m[KeyRelationshipTypes] = c.relTypes.Names()
	}
	return m
}

func parseFilter(key string, v any) (Filter, error) {
	names, err := stringList(key, v)
	if err != nil {
		return Filter{}, err
	}
	if len(names) == 0 {
		return Filter{}, fmt.Errorf("%w: %s is an empty list", ErrConfiguration, key)
	}
	if slices.Contains(names, Wildcard) {
		return MatchAny(), nil
	}
	return OneOf(names...), nil
}

func stringList(key string, v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is %T, want string", ErrConfiguration, key, i, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, want a list of strings", ErrConfiguration, key, v)
	}
}

func intList(key string, v any) ([]int, error) {
	switch t := v.(type) {
	case []int:
		return slices.Clone(t), nil
	case []int64:
		out := make([]int, len(t))
		for i, e := range t {
			n, err := intValue(fmt.Sprintf("%s[%d]", key, i), e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []any:
		out := make([]int, 0, len(t))
		for i, e := range t {
			n, err := intValue(fmt.Sprintf("%s[%d]", key, i), e)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, want a list of integers", ErrConfiguration, key, v)
	}
}

func intValue(key string, v any) (int, error) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int8:
		n = int64(t)
	case int16:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint:
		return uintToInt(key, uint64(t))
	case uint8:
		n = int64(t)
	case uint16:
		n = int64(t)
	case uint32:
		n = int64(t)
	case uint64:
		return uintToInt(key, t)
	case float32:
		return floatToInt(key, float64(t))
	case float64:
		return floatToInt(key, t)
	default:
		return 0, fmt.Errorf("%w: %s is %T, want an integer", ErrConfiguration, key, v)
	}
	if n > MaxCount || n < -MaxCount {
		return 0, fmt.Errorf("%w: %s is %d, out of range", ErrConfiguration, key, n)
	}
	return int(n), nil
}

func uintToInt(key string, u uint64) (int, error) {
	if u > MaxCount {
		return 0, fmt.Errorf("%w: %s is %d, out of range", ErrConfiguration, key, u)
	}
	return int(u), nil
}

func floatToInt(key string, f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %s is %v, want an integer", ErrConfiguration, key, f)
	}
	if f > MaxCount || f < -MaxCount {
		return 0, fmt.Errorf("%w: %s is %v, out of range", ErrConfiguration, key, f)
	}
	return int(f), nil
}
