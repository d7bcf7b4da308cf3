package sampling

import "errors"

// Sentinel errors. Every one of them aborts the whole sampling call; callers decide
// whether to resample with a fresh seed or give up.
var (
	// ErrConfiguration indicates an invalid or incomplete sampling configuration.
	ErrConfiguration = errors.New("sampling: invalid configuration")

	// ErrNoSeeds is returned when a batch is requested for an empty seed list.
	ErrNoSeeds = errors.New("sampling: empty seed batch")

	// ErrNoCompliantNeighbor is returned when a seed has no incoming neighbor that
	// passes the relationship and label filters. The seed is never silently dropped.
	ErrNoCompliantNeighbor = errors.New("sampling: seed has no compliant positive neighbor")

	// ErrEmptyNegativePool is returned when no stored node matches the label filter.
	ErrEmptyNegativePool = errors.New("sampling: negative pool is empty")

	// ErrFeatureShape is returned when a node lacks a configured property, carries a
	// non-numeric value, or produces a feature vector of the wrong width.
	ErrFeatureShape = errors.New("sampling: feature shape mismatch")

	// ErrNodeNotFound is returned by Graph implementations for unknown ids.
	ErrNodeNotFound = errors.New("sampling: node not found")
)

// Reason maps err to a short, stable label suitable for metric dimensions.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNoSeeds):
		return "no_seeds"
	case errors.Is(err, ErrNoCompliantNeighbor):
		return "no_compliant_neighbor"
	case errors.Is(err, ErrEmptyNegativePool):
		return "empty_negative_pool"
	case errors.Is(err, ErrFeatureShape):
		return "feature_shape"
	case errors.Is(err, ErrNodeNotFound):
		return "node_not_found"
	default:
		return "store"
	}
}
